package valueobject

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces - точность хранения сумм (знаков после запятой)
	MoneyPlaces = 4

	// maxMoneyExponent ограничивает порядок суммы: ненулевое значение с большим порядком
	// заведомо превышает MaxMoneyAmount
	maxMoneyExponent = 15
	// minMoneyExponent - порог, ниже которого строка разбирается через float64,
	// чтобы масштабирование decimal не зависело от длины экспоненты
	minMoneyExponent = -18
)

// MaxMoneyAmount - наибольшая допустимая сумма одной записи (10^15).
// Суммы больше считаются некорректными и дают ноль, поэтому итоги остаются конечными в float64.
var MaxMoneyAmount = decimal.New(1, maxMoneyExponent)

// Money представляет неотрицательную денежную сумму (Value Object)
// Иммутабельный объект
type Money struct {
	amount decimal.Decimal
}

// ZeroMoney возвращает нулевую сумму
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// NewMoney создает Money из decimal. Отрицательные значения приводятся к нулю.
func NewMoney(amount decimal.Decimal) Money {
	if amount.IsNegative() {
		return ZeroMoney()
	}
	return Money{amount: amount}
}

// ParseMoney разбирает сумму из строки.
// Пустое, нечисловое, отрицательное или превышающее MaxMoneyAmount значение дает ноль,
// ошибка не возвращается. Результат округляется до MoneyPlaces знаков.
func ParseMoney(raw string) Money {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ZeroMoney()
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil || amount.Sign() <= 0 {
		return ZeroMoney()
	}

	// Порядок проверяется до любых операций: Round и Cmp масштабируют на 10^|exp|
	if amount.Exponent() > maxMoneyExponent {
		return ZeroMoney()
	}
	if amount.Exponent() < minMoneyExponent {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			return ZeroMoney()
		}
		amount = decimal.NewFromFloat(f)
	}

	amount = amount.Round(MoneyPlaces)
	if amount.GreaterThan(MaxMoneyAmount) {
		return ZeroMoney()
	}

	return NewMoney(amount)
}

// Decimal возвращает точное значение
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Float64 возвращает значение для отображения
func (m Money) Float64() float64 {
	return m.amount.InexactFloat64()
}

// Add складывает две суммы
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Cmp сравнивает суммы: -1, 0, +1
func (m Money) Cmp(other Money) int {
	return m.amount.Cmp(other.amount)
}

// IsZero проверяет, что сумма равна нулю
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String возвращает строковое представление с двумя знаками
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// ParseCount разбирает неотрицательный счетчик (например, количество заказов).
// Дробная часть отбрасывается, нечисловое или отрицательное значение дает ноль.
func ParseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return max(n, 0)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}

	return int(f)
}
