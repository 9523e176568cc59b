package entity

import (
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// Customer представляет нормализованную запись клиента
// Создается из сырой записи источника; все поля уже приведены к допустимым значениям
type Customer struct {
	id         string
	name       string
	email      string
	totalSpent valueobject.Money
	orderCount int
	segment    valueobject.Segment
}

// NewCustomer создает клиента (Factory Method)
// Отрицательное количество заказов приводится к нулю, невалидный сегмент - к SegmentNew
func NewCustomer(
	id, name, email string,
	totalSpent valueobject.Money,
	orderCount int,
	segment valueobject.Segment,
) *Customer {
	if orderCount < 0 {
		orderCount = 0
	}
	if err := segment.Validate(); err != nil {
		segment = valueobject.SegmentNew
	}

	return &Customer{
		id:         id,
		name:       name,
		email:      email,
		totalSpent: totalSpent,
		orderCount: orderCount,
		segment:    segment,
	}
}

// ID возвращает идентификатор клиента
func (c *Customer) ID() string {
	return c.id
}

// Name возвращает имя клиента
func (c *Customer) Name() string {
	return c.name
}

// Email возвращает email клиента
func (c *Customer) Email() string {
	return c.email
}

// TotalSpent возвращает сумму всех покупок (LTV)
func (c *Customer) TotalSpent() valueobject.Money {
	return c.totalSpent
}

// OrderCount возвращает количество заказов
func (c *Customer) OrderCount() int {
	return c.orderCount
}

// Segment возвращает сегмент клиента
func (c *Customer) Segment() valueobject.Segment {
	return c.segment
}

// Domain Methods

// IsActive проверяет, относится ли клиент к активным (active или vip)
func (c *Customer) IsActive() bool {
	return c.segment.IsActive()
}

// IsNew проверяет, является ли клиент новым
func (c *Customer) IsNew() bool {
	return c.segment == valueobject.SegmentNew
}

// IsAtRisk проверяет, является ли клиент кандидатом на возврат (inactive)
func (c *Customer) IsAtRisk() bool {
	return c.segment == valueobject.SegmentInactive
}

// SpentMoreThan сравнивает LTV двух клиентов
func (c *Customer) SpentMoreThan(other *Customer) bool {
	return c.totalSpent.Cmp(other.totalSpent) > 0
}
