package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/domain/service"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

// DashboardCacheKeyPrefix - префикс ключей кеша дашборда клиентов
const DashboardCacheKeyPrefix = "crm:dashboard:customers:"

// GetCustomerDashboardUseCase загружает клиентов и строит модель дашборда
type GetCustomerDashboardUseCase struct {
	source     port.CustomerSource
	aggregator *service.CustomerAggregator
	cache      port.Cache
	publisher  *PublishDashboardKPIsUseCase
	logger     *logger.Logger
}

// NewGetCustomerDashboardUseCase создает новый use case
// cache и publisher опциональны (nil отключает кеширование и публикацию KPI)
func NewGetCustomerDashboardUseCase(
	source port.CustomerSource,
	aggregator *service.CustomerAggregator,
	cache port.Cache,
	publisher *PublishDashboardKPIsUseCase,
	logger *logger.Logger,
) *GetCustomerDashboardUseCase {
	return &GetCustomerDashboardUseCase{
		source:     source,
		aggregator: aggregator,
		cache:      cache,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute возвращает Result дашборда. Ошибки источника не схлопываются:
// причина (not_configured | unauthorized | transport) передается вызывающему.
func (uc *GetCustomerDashboardUseCase) Execute(ctx context.Context, token string) dto.Result[dto.CustomerDashboardViewModel] {
	cacheKey := DashboardCacheKey(token)

	if uc.cache != nil {
		var cached dto.CustomerDashboardViewModel
		if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
			uc.logger.Debug("Cache hit for customer dashboard", "key", cacheKey)
			return dto.Ready(&cached)
		}
	}

	records, err := uc.source.FetchCustomers(ctx, token)
	if err != nil {
		reason := port.ClassifyError(err)
		uc.logger.Warn("Failed to fetch customers", "reason", reason.String(), "error", err.Error())
		return dto.Failed[dto.CustomerDashboardViewModel](reason, fmt.Sprintf("failed to fetch customers: %v", err))
	}

	uc.logger.Debug("Fetched customers", "count", len(records))

	vm := dto.NewCustomerDashboardViewModel(uc.aggregator.Aggregate(dto.ToCustomerEntities(records)))

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cacheKey, vm); err != nil {
			uc.logger.Warn("Failed to cache customer dashboard", "error", err.Error())
		}
	}

	if uc.publisher != nil {
		if err := uc.publisher.Execute(ctx, vm); err != nil {
			uc.logger.Warn("Failed to publish dashboard KPIs", "error", err.Error())
		}
	}

	return dto.Ready(vm)
}

// Invalidate удаляет закешированный дашборд вызывающего; кеши других токенов не затрагиваются
func (uc *GetCustomerDashboardUseCase) Invalidate(ctx context.Context, token string) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.Delete(ctx, DashboardCacheKey(token)); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

// DashboardCacheKey строит ключ кеша по отпечатку токена.
// Сам токен в ключ не попадает.
func DashboardCacheKey(token string) string {
	if token == "" {
		return DashboardCacheKeyPrefix + "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return DashboardCacheKeyPrefix + hex.EncodeToString(sum[:8])
}
