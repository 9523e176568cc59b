package postgres

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
)

// CustomerDBModel представляет строку таблицы клиентов.
// Все колонки читаются как nullable текст: типы в CRM базе не гарантированы.
type CustomerDBModel struct {
	ID         sql.NullString
	Name       sql.NullString
	Email      sql.NullString
	TotalSpent sql.NullString
	OrderCount sql.NullString
	Segment    sql.NullString
}

// ToRecord конвертирует DB Model в сырую запись клиента
func (m *CustomerDBModel) ToRecord() dto.CustomerRecord {
	return dto.CustomerRecord{
		ID:         dto.RawValue(m.ID.String),
		Name:       m.Name.String,
		Email:      m.Email.String,
		TotalSpent: dto.RawValue(m.TotalSpent.String),
		OrderCount: dto.RawValue(m.OrderCount.String),
		Segment:    m.Segment.String,
	}
}

// ScanCustomerRow сканирует строку БД в CustomerDBModel
func ScanCustomerRow(row interface {
	Scan(dest ...interface{}) error
}) (*CustomerDBModel, error) {
	var model CustomerDBModel

	err := row.Scan(
		&model.ID,
		&model.Name,
		&model.Email,
		&model.TotalSpent,
		&model.OrderCount,
		&model.Segment,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}

// quoteTable экранирует имя таблицы, допускается схема: "crm.customers"
func quoteTable(name string) string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// selectCustomersQuery строит запрос выборки клиентов
func selectCustomersQuery(table string) string {
	return `
		SELECT id, name, email, total_spent, order_count, segment
		FROM ` + quoteTable(table) + `
		ORDER BY id
	`
}
