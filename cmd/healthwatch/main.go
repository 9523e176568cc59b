package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"

	applicationPort "github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/internal/application/usecase"
	"github.com/dreschagin/crm-dashboard/internal/domain/service"
	"github.com/dreschagin/crm-dashboard/internal/healthwatch"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/backend"
	natsInfra "github.com/dreschagin/crm-dashboard/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/crm-dashboard/internal/infrastructure/observability/prometheus"
	"github.com/dreschagin/crm-dashboard/pkg/config"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()
	log.Info(
		"Starting healthwatch",
		"interval", cfg.Monitor.Interval.String(),
		"port", cfg.Monitor.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := prometheus.New(promclient.NewRegistry())

	client := backend.NewClient(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		APIToken:     cfg.Backend.APIToken,
		Timeout:      cfg.Backend.Timeout,
		RetryMax:     cfg.Backend.RetryMax,
		RetryWaitMin: cfg.Backend.RetryWaitMin,
		RetryWaitMax: cfg.Backend.RetryWaitMax,
	}, log).WithProbeObserver(metrics.ObserveProbe)

	if !client.Configured() {
		log.Warn("BACKEND_BASE_URL is not set, every cycle will report unknown")
	}

	var events applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisher, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, transitions will not be published", "error", initErr.Error())
		} else {
			defer publisher.Close()
			events = publisher
		}
	}

	kpis := observability.NewKPIFanout(metrics)
	if cfg.CloudWatch.Enabled {
		publisher, initErr := cloudwatch.NewMetricsPublisher(ctx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.Namespace,
			Region:            cfg.CloudWatch.Region,
			DefaultDimensions: map[string]string{"Service": "healthwatch"},
			FlushInterval:     cfg.CloudWatch.FlushInterval,
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = publisher.Close(closeCtx)
		}()
		kpis = observability.NewKPIFanout(metrics, publisher)
	}

	healthUC := usecase.NewGetHealthStatusUseCase(client, service.NewHealthReducer(), log)
	monitor := usecase.NewMonitorHealthUseCase(healthUC, nil, events, kpis, log, cfg.Monitor.Interval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", healthwatch.NewHandler(monitor).Routes())

	monitor.RunOnce(ctx)
	go monitor.Start(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Monitor.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		log.Info("Healthwatch HTTP server started", "port", cfg.Monitor.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Healthwatch HTTP server failed", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Healthwatch HTTP server shutdown failed", err)
	}

	log.Info("Healthwatch stopped")
}
