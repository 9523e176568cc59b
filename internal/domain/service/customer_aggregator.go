package service

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dreschagin/crm-dashboard/internal/domain/entity"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

const (
	// DefaultTopCustomersLimit - размер рейтинга клиентов по LTV
	DefaultTopCustomersLimit = 5
	// DefaultAtRiskLimit - максимальный размер списка клиентов в зоне риска
	DefaultAtRiskLimit = 4
	// PlaceholderRiskScore используется, пока нет данных о давности и частоте заказов
	PlaceholderRiskScore = 50
)

// CustomerAggregator строит модель CRM дашборда из списка клиентов (Domain Service)
// Не хранит состояния и безопасен для конкурентного использования
type CustomerAggregator struct {
	topLimit    int
	atRiskLimit int
}

// NewCustomerAggregator создает агрегатор с лимитами по умолчанию (5 и 4)
func NewCustomerAggregator() *CustomerAggregator {
	return NewCustomerAggregatorWithLimits(DefaultTopCustomersLimit, DefaultAtRiskLimit)
}

// NewCustomerAggregatorWithLimits создает агрегатор с заданными лимитами
// Неположительные значения заменяются значениями по умолчанию
func NewCustomerAggregatorWithLimits(topLimit, atRiskLimit int) *CustomerAggregator {
	if topLimit <= 0 {
		topLimit = DefaultTopCustomersLimit
	}
	if atRiskLimit <= 0 {
		atRiskLimit = DefaultAtRiskLimit
	}

	return &CustomerAggregator{
		topLimit:    topLimit,
		atRiskLimit: atRiskLimit,
	}
}

// segmentBucket накапливает агрегаты одного сегмента
type segmentBucket struct {
	count int
	total decimal.Decimal
}

// Aggregate вычисляет дашборд по нормализованным клиентам. Никогда не возвращает ошибку:
// некорректные поля записей уже приведены к значениям по умолчанию при создании Entity.
func (a *CustomerAggregator) Aggregate(customers []*entity.Customer) *entity.CustomerDashboard {
	total := len(customers)

	sum := decimal.Zero
	top := valueobject.ZeroMoney()
	var newCount, activeCount int

	// Порядок сегментов - порядок первого появления во входных данных
	order := make([]valueobject.Segment, 0, len(valueobject.AllSegments()))
	buckets := make(map[valueobject.Segment]*segmentBucket)

	for _, c := range customers {
		spent := c.TotalSpent()
		sum = sum.Add(spent.Decimal())
		if spent.Cmp(top) > 0 {
			top = spent
		}

		bucket, ok := buckets[c.Segment()]
		if !ok {
			bucket = &segmentBucket{total: decimal.Zero}
			buckets[c.Segment()] = bucket
			order = append(order, c.Segment())
		}
		bucket.count++
		bucket.total = bucket.total.Add(spent.Decimal())

		if c.IsNew() {
			newCount++
		}
		if c.IsActive() {
			activeCount++
		}
	}

	average := decimal.Zero
	if total > 0 {
		average = sum.Div(decimal.NewFromInt(int64(total)))
	}

	segments := lo.Map(order, func(segment valueobject.Segment, _ int) entity.SegmentStats {
		bucket := buckets[segment]
		return entity.SegmentStats{
			Segment:    segment,
			Count:      bucket.count,
			Percent:    percentOf(bucket.count, total),
			TotalValue: valueobject.NewMoney(bucket.total),
		}
	})

	return &entity.CustomerDashboard{
		TotalCustomers:  total,
		NewThisMonth:    newCount,
		ActiveCustomers: activeCount,
		ActivePercent:   percentOf(activeCount, total),
		AverageValue:    valueobject.NewMoney(average),
		TopValue:        top,
		TotalValue:      valueobject.NewMoney(sum),
		Segments:        segments,
		TopCustomers:    a.topCustomers(customers),
		AtRisk:          a.atRiskCustomers(customers),
	}
}

// topCustomers возвращает рейтинг по LTV; при равенстве сохраняется исходный порядок
func (a *CustomerAggregator) topCustomers(customers []*entity.Customer) []entity.RankedCustomer {
	sorted := make([]*entity.Customer, len(customers))
	copy(sorted, customers)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SpentMoreThan(sorted[j])
	})

	return lo.Map(lo.Slice(sorted, 0, a.topLimit), func(c *entity.Customer, i int) entity.RankedCustomer {
		return entity.RankedCustomer{Rank: i + 1, Customer: c}
	})
}

// atRiskCustomers возвращает inactive клиентов в исходном порядке
func (a *CustomerAggregator) atRiskCustomers(customers []*entity.Customer) []entity.AtRiskCustomer {
	inactive := lo.Filter(customers, func(c *entity.Customer, _ int) bool {
		return c.IsAtRisk()
	})

	return lo.Map(lo.Slice(inactive, 0, a.atRiskLimit), func(c *entity.Customer, _ int) entity.AtRiskCustomer {
		return entity.AtRiskCustomer{Customer: c, RiskScore: PlaceholderRiskScore}
	})
}

// percentOf вычисляет долю в процентах; при total == 0 возвращает 0
func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
