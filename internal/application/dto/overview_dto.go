package dto

// OverviewDTO - дашборд клиентов и состояние здоровья в одном ответе
type OverviewDTO struct {
	Customers Result[CustomerDashboardViewModel] `json:"customers"`
	Health    *HealthViewModel                   `json:"health"`
}
