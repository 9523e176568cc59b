package dto

import (
	"github.com/samber/lo"

	"github.com/dreschagin/crm-dashboard/internal/domain/entity"
)

// Поля дашборда, которые не вычисляются: для них нет исходных данных.
// Пустая коллекция означает "еще недоступно", а не бизнес-факт "ноль".
const (
	FieldAcquisitionChannels = "acquisitionChannels"
	FieldLoyaltyPrograms     = "loyaltyPrograms"
	FieldRecentActivity      = "recentActivity"
	FieldInsights            = "insights"
	FieldPeriodChanges       = "periodChanges"
	FieldChurn               = "churn"
	FieldRiskScore           = "riskScore"
)

// CustomerDashboardViewModel - полностью вычисленная модель CRM дашборда
type CustomerDashboardViewModel struct {
	Summary       CustomerSummaryDTO  `json:"summary"`
	LifetimeValue LifetimeValueDTO    `json:"lifetimeValue"`
	Segments      []SegmentSummaryDTO `json:"segments"`
	TopCustomers  []TopCustomerDTO    `json:"topCustomers"`
	AtRisk        []AtRiskCustomerDTO `json:"atRisk"`

	AcquisitionChannels []AcquisitionChannelDTO `json:"acquisitionChannels"`
	LoyaltyPrograms     []LoyaltyProgramDTO     `json:"loyaltyPrograms"`
	RecentActivity      []ActivityDTO           `json:"recentActivity"`
	Insights            []InsightDTO            `json:"insights"`

	// Unavailable перечисляет поля, которые не вычислены из-за отсутствия данных
	Unavailable []string `json:"unavailable"`
}

// CustomerSummaryDTO содержит сводные счетчики.
// Поля изменений и оттока равны nil (JSON null): исторических данных нет.
type CustomerSummaryDTO struct {
	TotalCustomers  int     `json:"totalCustomers"`
	NewThisMonth    int     `json:"newThisMonth"`
	ActiveCustomers int     `json:"activeCustomers"`
	ActivePercent   float64 `json:"activePercent"`

	CustomersChange    *float64 `json:"customersChange"`
	NewThisMonthChange *float64 `json:"newThisMonthChange"`
	ActiveChange       *float64 `json:"activeChange"`
	ChurnRate          *float64 `json:"churnRate"`
	ChurnChange        *float64 `json:"churnChange"`
}

// LifetimeValueDTO содержит статистику LTV
type LifetimeValueDTO struct {
	Average float64 `json:"average"`
	// TopDecileValue - LTV самого крупного клиента (прокси для перцентиля на малых выборках)
	TopDecileValue float64 `json:"topDecileValue"`
	Total          float64 `json:"total"`
}

// SegmentSummaryDTO - агрегат по одному сегменту
type SegmentSummaryDTO struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
	TotalValue float64 `json:"totalValue"`
	ColorToken string  `json:"colorToken"`
	IconToken  string  `json:"iconToken"`
}

// TopCustomerDTO - позиция в рейтинге клиентов по LTV
type TopCustomerDTO struct {
	Rank       int     `json:"rank"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	TotalSpent float64 `json:"totalSpent"`
	OrderCount int     `json:"orderCount"`
	Segment    string  `json:"segment"`
}

// AtRiskCustomerDTO - клиент-кандидат на возврат
type AtRiskCustomerDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	TotalSpent float64 `json:"totalSpent"`
	OrderCount int     `json:"orderCount"`
	RiskScore  int     `json:"riskScore"`
	// RiskScoreComputed=false означает, что RiskScore - заглушка (нет данных о давности и частоте)
	RiskScoreComputed bool `json:"riskScoreComputed"`
}

// AcquisitionChannelDTO - канал привлечения (не вычисляется)
type AcquisitionChannelDTO struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// LoyaltyProgramDTO - уровень программы лояльности (не вычисляется)
type LoyaltyProgramDTO struct {
	Tier    string `json:"tier"`
	Members int    `json:"members"`
}

// ActivityDTO - событие в ленте активности (не вычисляется)
type ActivityDTO struct {
	CustomerID string `json:"customerId"`
	Action     string `json:"action"`
	At         string `json:"at"`
}

// InsightDTO - AI подсказка (не вычисляется)
type InsightDTO struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewCustomerDashboardViewModel конвертирует доменный результат агрегации в модель для UI.
// Невычисляемые коллекции - пустые (не nil), чтобы сериализоваться как [].
func NewCustomerDashboardViewModel(d *entity.CustomerDashboard) *CustomerDashboardViewModel {
	return &CustomerDashboardViewModel{
		Summary: CustomerSummaryDTO{
			TotalCustomers:  d.TotalCustomers,
			NewThisMonth:    d.NewThisMonth,
			ActiveCustomers: d.ActiveCustomers,
			ActivePercent:   d.ActivePercent,
		},
		LifetimeValue: LifetimeValueDTO{
			Average:        d.AverageValue.Float64(),
			TopDecileValue: d.TopValue.Float64(),
			Total:          d.TotalValue.Float64(),
		},
		Segments: lo.Map(d.Segments, func(s entity.SegmentStats, _ int) SegmentSummaryDTO {
			return NewSegmentSummaryDTO(s)
		}),
		TopCustomers: lo.Map(d.TopCustomers, func(r entity.RankedCustomer, _ int) TopCustomerDTO {
			return NewTopCustomerDTO(r.Rank, r.Customer)
		}),
		AtRisk: lo.Map(d.AtRisk, func(c entity.AtRiskCustomer, _ int) AtRiskCustomerDTO {
			return NewAtRiskCustomerDTO(c.Customer, c.RiskScore, c.RiskScoreComputed)
		}),
		AcquisitionChannels: []AcquisitionChannelDTO{},
		LoyaltyPrograms:     []LoyaltyProgramDTO{},
		RecentActivity:      []ActivityDTO{},
		Insights:            []InsightDTO{},
		Unavailable:         UnavailableFields(),
	}
}

// NewSegmentSummaryDTO конвертирует агрегат сегмента
func NewSegmentSummaryDTO(s entity.SegmentStats) SegmentSummaryDTO {
	return SegmentSummaryDTO{
		Key:        s.Segment.String(),
		Name:       s.Segment.Label(),
		Count:      s.Count,
		Percent:    s.Percent,
		TotalValue: s.TotalValue.Float64(),
		ColorToken: s.Segment.ColorToken(),
		IconToken:  s.Segment.IconToken(),
	}
}

// NewTopCustomerDTO конвертирует Entity в позицию рейтинга
func NewTopCustomerDTO(rank int, c *entity.Customer) TopCustomerDTO {
	return TopCustomerDTO{
		Rank:       rank,
		ID:         c.ID(),
		Name:       c.Name(),
		Email:      c.Email(),
		TotalSpent: c.TotalSpent().Float64(),
		OrderCount: c.OrderCount(),
		Segment:    c.Segment().String(),
	}
}

// NewAtRiskCustomerDTO конвертирует Entity в запись списка риска
func NewAtRiskCustomerDTO(c *entity.Customer, riskScore int, computed bool) AtRiskCustomerDTO {
	return AtRiskCustomerDTO{
		ID:                c.ID(),
		Name:              c.Name(),
		Email:             c.Email(),
		TotalSpent:        c.TotalSpent().Float64(),
		OrderCount:        c.OrderCount(),
		RiskScore:         riskScore,
		RiskScoreComputed: computed,
	}
}

// UnavailableFields возвращает список невычисляемых полей
func UnavailableFields() []string {
	return []string{
		FieldAcquisitionChannels,
		FieldLoyaltyPrograms,
		FieldRecentActivity,
		FieldInsights,
		FieldPeriodChanges,
		FieldChurn,
		FieldRiskScore,
	}
}
