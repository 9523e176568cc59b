package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/application/usecase"

	// Domain
	"github.com/dreschagin/crm-dashboard/internal/domain/service"

	// Infrastructure
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/backend"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/cache/memory"
	redisCache "github.com/dreschagin/crm-dashboard/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/crm-dashboard/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/crm-dashboard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/crm-dashboard/internal/infrastructure/storage/s3"

	// Interfaces
	"github.com/dreschagin/crm-dashboard/internal/healthwatch"
	httpInterface "github.com/dreschagin/crm-dashboard/internal/interfaces/http"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/crm-dashboard/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/crm-dashboard/pkg/config"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.NewWithFormat(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()
	log.Info("Starting CRM Dashboard", "customer_source", cfg.Customers.Kind, "cache", cfg.Cache.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Observability: Prometheus всегда, CloudWatch по флагу
	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := prometheus.New(registry)

	var cloudWatchPublisher *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.Enabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			Region:            cfg.CloudWatch.Region,
			DefaultDimensions: map[string]string{"Service": "crm-dashboard"},
			FlushInterval:     cfg.CloudWatch.FlushInterval,
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		cloudWatchPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.CloudWatch.Namespace)
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	kpis := newKPIFanout(metrics, cloudWatchPublisher)

	// 4. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	var natsPublisher *natsInfra.NATSPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			natsPublisher = publisherImpl
			eventPublisher = publisherImpl
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 5. CRM backend: health probe всегда, источник клиентов по CUSTOMER_SOURCE
	backendClient := backend.NewClient(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		APIToken:     cfg.Backend.APIToken,
		Timeout:      cfg.Backend.Timeout,
		RetryMax:     cfg.Backend.RetryMax,
		RetryWaitMin: cfg.Backend.RetryWaitMin,
		RetryWaitMax: cfg.Backend.RetryWaitMax,
	}, log).WithProbeObserver(metrics.ObserveProbe)

	if !backendClient.Configured() {
		log.Warn("BACKEND_BASE_URL is not set, health checks will report unknown")
	}

	customerSource, db, err := newCustomerSource(ctx, cfg, backendClient, log)
	if err != nil {
		log.Error("Failed to initialize customer source", err, "kind", cfg.Customers.Kind)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	// 6. Кэш дашборда
	dashboardCache, closeCache, err := newCache(ctx, cfg.Cache, log)
	if err != nil {
		log.Error("Failed to initialize cache", err, "driver", cfg.Cache.Driver)
		os.Exit(1)
	}
	defer closeCache()

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// 7. Dependency Injection - Application Layer (Use Cases)
	aggregator := service.NewCustomerAggregatorWithLimits(cfg.Dashboard.TopCustomersLimit, cfg.Dashboard.AtRiskLimit)
	reducer := service.NewHealthReducer()

	publishKPIsUC := usecase.NewPublishDashboardKPIsUseCase(kpis, eventPublisher, hub, log)
	dashboardUC := usecase.NewGetCustomerDashboardUseCase(customerSource, aggregator, dashboardCache, publishKPIsUC, log)
	healthUC := usecase.NewGetHealthStatusUseCase(backendClient, reducer, log)
	overviewUC := usecase.NewGetOverviewUseCase(dashboardUC, healthUC)
	monitorUC := usecase.NewMonitorHealthUseCase(healthUC, hub, eventPublisher, kpis, log, cfg.Monitor.Interval)

	// 8. Dependency Injection - Interfaces Layer (HTTP Handlers)
	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	handlers := httpInterface.Handlers{
		Dashboard: handler.NewDashboardAPIHandler(dashboardUC, healthUC, overviewUC, authConfig, log),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, log),
	}
	if cfg.Monitor.Enabled {
		handlers.Status = healthwatch.NewHandler(monitorUC)
	}
	if cfg.Monitor.WatchURL != "" {
		handlers.Healthwatch = handler.NewHealthwatchAPIHandler(cfg.Monitor.WatchURL, cfg.Backend.Timeout, log)
		log.Info("Healthwatch proxy enabled", "url", cfg.Monitor.WatchURL)
	}

	router := httpInterface.NewRouter(handlers, metrics, cfg.Security, log)

	// 9. Запускаем фоновые процессы
	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	if cfg.Monitor.Enabled {
		go func() {
			monitorUC.RunOnce(ctx)
			monitorUC.Start(ctx)
		}()
		log.Info("Health monitor started", "interval", cfg.Monitor.Interval.String())
	} else {
		log.Warn("Health monitor is disabled")
	}

	// 10. Настраиваем HTTP сервер
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 11. Ожидаем сигнал для graceful shutdown
	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем монитор и hub
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Flushing KPI buffers...")
	if err := kpis.Flush(shutdownCtx); err != nil {
		log.Error("Failed to flush KPIs", err)
	}
	if cloudWatchPublisher != nil {
		if err := cloudWatchPublisher.Close(shutdownCtx); err != nil {
			log.Error("Failed to close CloudWatch publisher", err)
		}
	}

	if natsPublisher != nil {
		_ = natsPublisher.Close()
	}

	log.Info("Server stopped gracefully")
}

// newKPIFanout собирает получателей KPI; nil *MetricsPublisher не попадает в интерфейс
func newKPIFanout(metrics *prometheus.Metrics, cw *cloudwatch.MetricsPublisher) *observability.KPIFanout {
	if cw == nil {
		return observability.NewKPIFanout(metrics)
	}
	return observability.NewKPIFanout(metrics, cw)
}

// newCustomerSource выбирает источник клиентов. Для postgres возвращается *sql.DB,
// который закрывает вызывающий.
func newCustomerSource(
	ctx context.Context,
	cfg *config.Config,
	client *backend.Client,
	log *logger.Logger,
) (applicationPort.CustomerSource, *sql.DB, error) {
	switch cfg.Customers.Kind {
	case config.SourcePostgres:
		db, err := postgres.Open(ctx, cfg.Database.DSN(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("Database connected successfully", "table", cfg.Database.Table)
		return postgres.NewCustomerSource(db, cfg.Database.Table, log), db, nil

	case config.SourceS3:
		source, err := s3storage.NewCustomerExportSource(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Format:          s3storage.Format(cfg.S3.Format),
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Customer export source initialized", "bucket", cfg.S3.Bucket, "key", cfg.S3.Key)
		return source, nil, nil

	default:
		return client, nil, nil
	}
}

// newCache возвращает nil cache для драйвера none
func newCache(ctx context.Context, cfg config.CacheConfig, log *logger.Logger) (applicationPort.Cache, func(), error) {
	switch cfg.Driver {
	case config.CacheRedis:
		cache, err := redisCache.NewRedisCache(ctx, redisCache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("Redis cache connected", "addr", cfg.RedisAddr, "ttl", cfg.TTL.String())
		return cache, func() { _ = cache.Close() }, nil

	case config.CacheMemory:
		cache := memory.NewMemoryCache(cfg.TTL)
		log.Info("In-memory cache initialized", "ttl", cfg.TTL.String())
		return cache, func() { _ = cache.Close() }, nil

	default:
		log.Warn("Dashboard cache is disabled")
		return nil, func() {}, nil
	}
}
