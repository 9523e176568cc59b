package entity

import (
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// CustomerDashboard - результат агрегации списка клиентов
// Все суммы ограничены valueobject.MaxMoneyAmount на запись, поэтому конечны в float64
type CustomerDashboard struct {
	TotalCustomers  int
	NewThisMonth    int
	ActiveCustomers int
	ActivePercent   float64

	AverageValue valueobject.Money
	TopValue     valueobject.Money
	TotalValue   valueobject.Money

	// Segments в порядке первого появления во входных данных
	Segments     []SegmentStats
	TopCustomers []RankedCustomer
	AtRisk       []AtRiskCustomer
}

// SegmentStats - агрегат по одному сегменту
type SegmentStats struct {
	Segment    valueobject.Segment
	Count      int
	Percent    float64
	TotalValue valueobject.Money
}

// RankedCustomer - позиция в рейтинге по LTV (Rank начинается с 1)
type RankedCustomer struct {
	Rank     int
	Customer *Customer
}

// AtRiskCustomer - клиент-кандидат на возврат
type AtRiskCustomer struct {
	Customer  *Customer
	RiskScore int
	// RiskScoreComputed=false означает заглушку: нет данных о давности и частоте заказов
	RiskScoreComputed bool
}
