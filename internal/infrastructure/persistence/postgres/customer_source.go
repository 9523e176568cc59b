package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const DefaultTable = "customers"

// PoolConfig - параметры пула соединений
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CustomerSource реализует port.CustomerSource поверх таблицы клиентов PostgreSQL.
// Токен вызывающего не используется: доступ определяется учетной записью БД.
type CustomerSource struct {
	db     *sql.DB
	query  string
	logger *logger.Logger
}

// Open открывает пул соединений и проверяет доступность БД
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewCustomerSource создает источник клиентов для указанной таблицы
func NewCustomerSource(db *sql.DB, table string, log *logger.Logger) *CustomerSource {
	if table == "" {
		table = DefaultTable
	}
	return &CustomerSource{
		db:     db,
		query:  selectCustomersQuery(table),
		logger: log,
	}
}

// FetchCustomers читает всех клиентов из таблицы
func (s *CustomerSource) FetchCustomers(ctx context.Context, _ string) ([]dto.CustomerRecord, error) {
	if s.db == nil {
		return nil, port.ErrNotConfigured
	}

	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, &port.TransportError{Err: fmt.Errorf("failed to query customers: %w", err)}
	}
	defer rows.Close()

	records, err := scanCustomers(rows)
	if err != nil {
		return nil, &port.TransportError{Err: err}
	}

	s.logger.Debug("Customers loaded from database", "count", len(records))

	return records, nil
}

type rowIterator interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanCustomers(rows rowIterator) ([]dto.CustomerRecord, error) {
	records := make([]dto.CustomerRecord, 0)
	for rows.Next() {
		model, err := ScanCustomerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		records = append(records, model.ToRecord())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	return records, nil
}

// Close закрывает пул соединений
func (s *CustomerSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
