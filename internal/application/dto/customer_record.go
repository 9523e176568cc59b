package dto

import (
	"bytes"
	"encoding/json"

	"github.com/dreschagin/crm-dashboard/internal/domain/entity"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
)

// CustomerRecord представляет сырую запись клиента от внешнего источника
// Числовые поля могут прийти строкой или числом, поэтому хранятся как RawValue
type CustomerRecord struct {
	ID         RawValue `json:"id" csv:"id"`
	Name       string   `json:"name" csv:"name"`
	Email      string   `json:"email" csv:"email"`
	TotalSpent RawValue `json:"totalSpent" csv:"total_spent"`
	OrderCount RawValue `json:"orderCount" csv:"order_count"`
	Segment    string   `json:"segment" csv:"segment"`
}

// RawValue хранит текстовое представление скалярного значения из JSON или CSV.
// Декодирование никогда не завершается ошибкой: null, объекты и массивы дают пустую строку.
type RawValue string

// UnmarshalJSON принимает строку, число, bool или null
func (v *RawValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*v = ""
			return nil
		}
		*v = RawValue(s)
	case '{', '[', 'n':
		// объект, массив или null
		*v = ""
	default:
		*v = RawValue(trimmed)
	}

	return nil
}

// UnmarshalCSV реализует gocsv.TypeUnmarshaller
func (v *RawValue) UnmarshalCSV(field string) error {
	*v = RawValue(field)
	return nil
}

// String возвращает исходный текст
func (v RawValue) String() string {
	return string(v)
}

// ToEntity нормализует запись в Domain Entity.
// Нечисловой totalSpent -> 0, отсутствующий orderCount -> 0, неизвестный сегмент -> new.
func (r CustomerRecord) ToEntity() *entity.Customer {
	return entity.NewCustomer(
		r.ID.String(),
		r.Name,
		r.Email,
		valueobject.ParseMoney(r.TotalSpent.String()),
		valueobject.ParseCount(r.OrderCount.String()),
		valueobject.ParseSegment(r.Segment),
	)
}

// ToCustomerEntities конвертирует слайс записей с сохранением порядка
func ToCustomerEntities(records []CustomerRecord) []*entity.Customer {
	customers := make([]*entity.Customer, len(records))
	for i, r := range records {
		customers[i] = r.ToEntity()
	}
	return customers
}
