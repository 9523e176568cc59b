package port

import "github.com/dreschagin/crm-dashboard/internal/application/dto"

// NotificationService определяет интерфейс для отправки уведомлений (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// BroadcastHealth отправляет текущее состояние здоровья всем подключенным клиентам
	BroadcastHealth(health *dto.HealthViewModel)

	// BroadcastDashboard отправляет пересчитанный дашборд всем подключенным клиентам
	BroadcastDashboard(dashboard *dto.CustomerDashboardViewModel)

	// BroadcastAlert отправляет alert всем подключенным клиентам
	BroadcastAlert(alert *dto.HealthAlertDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
