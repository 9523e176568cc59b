package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// Типы сообщений, которые получает UI
const (
	MessageHealth    = "health"
	MessageDashboard = "dashboard"
	MessageAlert     = "alert"
)

// Hub управляет WebSocket клиентами и рассылает сообщения
// Реализует интерфейс port.NotificationService
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast сообщений
	broadcast chan Message

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для удаления клиентов
	unregister chan *Client

	// Закрывается при остановке Run
	done chan struct{}

	// Mutex для защиты clients map и lastHealth
	mu sync.RWMutex

	// Последнее состояние здоровья, отправляется новым клиентам сразу после подключения
	lastHealth *dto.HealthViewModel

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает hub до отмены контекста (должен быть запущен в отдельной goroutine)
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			last := h.lastHealth
			total := len(h.clients)
			h.mu.Unlock()

			if last != nil {
				h.deliver(client, Message{Type: MessageHealth, Data: last})
			}
			h.logger.Debug("Client registered", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Канал клиента заполнен, закрываем соединение
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client channel full, disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

// deliver отправляет сообщение одному клиенту без блокировки hub
func (h *Hub) deliver(client *Client, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	select {
	case client.send <- message:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastHealth отправляет состояние здоровья всем клиентам (реализация port.NotificationService)
func (h *Hub) BroadcastHealth(health *dto.HealthViewModel) {
	h.mu.Lock()
	h.lastHealth = health
	h.mu.Unlock()

	h.enqueue(Message{Type: MessageHealth, Data: health})
}

// BroadcastDashboard отправляет модель дашборда всем клиентам (реализация port.NotificationService)
func (h *Hub) BroadcastDashboard(dashboard *dto.CustomerDashboardViewModel) {
	h.enqueue(Message{Type: MessageDashboard, Data: dashboard})
}

// BroadcastAlert отправляет alert всем клиентам (реализация port.NotificationService)
func (h *Hub) BroadcastAlert(alert *dto.HealthAlertDTO) {
	h.enqueue(Message{Type: MessageAlert, Data: alert})
}

func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", "type", message.Type)
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "health", "dashboard" или "alert"
	Data interface{} `json:"data"`
}
