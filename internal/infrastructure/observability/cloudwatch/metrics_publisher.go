package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// Metric names published by the dashboard
const (
	MetricTotalCustomers  = "TotalCustomers"
	MetricActivePercent   = "ActiveCustomersPercent"
	MetricAverageLTV      = "AverageLifetimeValue"
	MetricTopDecileValue  = "TopCustomerValue"
	MetricAtRiskCustomers = "AtRiskCustomers"
	MetricSegmentSize     = "SegmentCustomers"
	MetricHealthSeverity  = "BackendHealthSeverity"
	MetricAuthRequired    = "BackendAuthRequired"
)

// putMetricDataAPI is the subset of the CloudWatch client the publisher uses
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig holds configuration for CloudWatch KPI publishing.
type MetricsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "CRMDashboard")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffer size before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
}

// kpiPoint is one buffered data point
type kpiPoint struct {
	name       string
	value      float64
	unit       types.StandardUnit
	dimensions map[string]string
	timestamp  time.Time
}

// MetricsPublisher implements port.KPIPublisher on top of CloudWatch PutMetricData.
type MetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	logger            *logger.Logger

	buffer     []kpiPoint
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewMetricsPublisher creates a new CloudWatch KPI publisher and starts its flush loop.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig, log *logger.Logger) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log), nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig, log *logger.Logger) *MetricsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}

	p := &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		logger:            log,
		buffer:            make([]kpiPoint, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p
}

// PublishDashboard buffers the headline KPIs of a computed dashboard.
func (p *MetricsPublisher) PublishDashboard(ctx context.Context, vm *dto.CustomerDashboardViewModel) error {
	if vm == nil {
		return nil
	}

	now := time.Now()
	points := []kpiPoint{
		{name: MetricTotalCustomers, value: float64(vm.Summary.TotalCustomers), unit: types.StandardUnitCount, timestamp: now},
		{name: MetricActivePercent, value: vm.Summary.ActivePercent, unit: types.StandardUnitPercent, timestamp: now},
		{name: MetricAverageLTV, value: vm.LifetimeValue.Average, unit: types.StandardUnitNone, timestamp: now},
		{name: MetricTopDecileValue, value: vm.LifetimeValue.TopDecileValue, unit: types.StandardUnitNone, timestamp: now},
		{name: MetricAtRiskCustomers, value: float64(len(vm.AtRisk)), unit: types.StandardUnitCount, timestamp: now},
	}
	for _, segment := range vm.Segments {
		points = append(points, kpiPoint{
			name:       MetricSegmentSize,
			value:      float64(segment.Count),
			unit:       types.StandardUnitCount,
			dimensions: map[string]string{"Segment": segment.Key},
			timestamp:  now,
		})
	}

	return p.enqueue(ctx, points)
}

// PublishHealth buffers the backend health severity (0 healthy .. 3 unknown).
func (p *MetricsPublisher) PublishHealth(ctx context.Context, health *dto.HealthViewModel) error {
	if health == nil {
		return nil
	}

	authRequired := 0.0
	if health.AuthRequired {
		authRequired = 1
	}

	timestamp := health.CheckedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return p.enqueue(ctx, []kpiPoint{
		{name: MetricHealthSeverity, value: float64(health.OverallLevel.Severity()), unit: types.StandardUnitNone, timestamp: timestamp},
		{name: MetricAuthRequired, value: authRequired, unit: types.StandardUnitCount, timestamp: timestamp},
	})
}

func (p *MetricsPublisher) enqueue(ctx context.Context, points []kpiPoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, points...)
	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered data points.
func (p *MetricsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining data points.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *MetricsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				// точки остаются в буфере до следующего тика
				p.logger.Warn("CloudWatch flush failed", "error", err.Error())
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *MetricsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, point := range p.buffer {
		data = append(data, p.convertToDatum(point))
	}

	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := min(i+maxMetricsPerRequest, len(data))
		if err := p.publishBatchWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// publishBatchWithRetry publishes a batch of data points with exponential backoff retry.
func (p *MetricsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *MetricsPublisher) convertToDatum(point kpiPoint) types.MetricDatum {
	dimensions := make([]types.Dimension, 0, len(p.defaultDimensions)+len(point.dimensions))
	for key, value := range p.defaultDimensions {
		dimensions = append(dimensions, types.Dimension{Name: aws.String(key), Value: aws.String(value)})
	}
	for key, value := range point.dimensions {
		dimensions = append(dimensions, types.Dimension{Name: aws.String(key), Value: aws.String(value)})
	}

	return types.MetricDatum{
		MetricName: aws.String(point.name),
		Value:      aws.Float64(point.value),
		Unit:       point.unit,
		Timestamp:  aws.Time(point.timestamp),
		Dimensions: dimensions,
	}
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
