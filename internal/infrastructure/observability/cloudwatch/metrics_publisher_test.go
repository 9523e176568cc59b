package cloudwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/domain/valueobject"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	fails  int
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fails > 0 {
		f.fails--
		return nil, errors.New("throttled")
	}
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakeCloudWatch) data() []types.MetricDatum {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []types.MetricDatum
	for _, in := range f.inputs {
		all = append(all, in.MetricData...)
	}
	return all
}

func newTestPublisher(t *testing.T, client putMetricDataAPI, bufferSize int) *MetricsPublisher {
	t.Helper()

	p := newMetricsPublisher(client, MetricsPublisherConfig{
		Namespace:         "CRMDashboard/Test",
		DefaultDimensions: map[string]string{"Environment": "test"},
		BufferSize:        bufferSize,
		FlushInterval:     time.Hour,
	}, logger.NewNop())
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func sampleDashboard() *dto.CustomerDashboardViewModel {
	return &dto.CustomerDashboardViewModel{
		Summary:       dto.CustomerSummaryDTO{TotalCustomers: 3, ActiveCustomers: 1, ActivePercent: 33.3},
		LifetimeValue: dto.LifetimeValueDTO{Average: 50, TopDecileValue: 100},
		Segments: []dto.SegmentSummaryDTO{
			{Key: "vip", Count: 1},
			{Key: "new", Count: 2},
		},
		AtRisk: []dto.AtRiskCustomerDTO{{ID: "3"}},
	}
}

func TestMetricsPublisher_PublishDashboardBuffersUntilFlush(t *testing.T) {
	client := &fakeCloudWatch{}
	p := newTestPublisher(t, client, 100)

	if err := p.PublishDashboard(context.Background(), sampleDashboard()); err != nil {
		t.Fatalf("PublishDashboard() error: %v", err)
	}
	if len(client.data()) != 0 {
		t.Fatalf("expected no data before flush")
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	data := client.data()
	if len(data) != 7 {
		t.Fatalf("expected 7 data points, got %d", len(data))
	}

	values := map[string]float64{}
	for _, d := range data {
		if d.Dimensions[0].Name == nil || *d.Dimensions[0].Name != "Environment" {
			t.Fatalf("expected default dimension first, got %v", d.Dimensions)
		}
		if *d.MetricName == MetricSegmentSize {
			values[MetricSegmentSize+"/"+*d.Dimensions[1].Value] = *d.Value
			continue
		}
		values[*d.MetricName] = *d.Value
	}

	expected := map[string]float64{
		MetricTotalCustomers:       3,
		MetricActivePercent:        33.3,
		MetricAverageLTV:           50,
		MetricTopDecileValue:       100,
		MetricAtRiskCustomers:      1,
		MetricSegmentSize + "/vip": 1,
		MetricSegmentSize + "/new": 2,
	}
	for name, want := range expected {
		if values[name] != want {
			t.Errorf("%s = %v, want %v", name, values[name], want)
		}
	}
}

func TestMetricsPublisher_AutoFlushOnFullBuffer(t *testing.T) {
	client := &fakeCloudWatch{}
	p := newTestPublisher(t, client, 2)

	health := &dto.HealthViewModel{OverallLevel: valueobject.HealthDegraded, CheckedAt: time.Now()}
	if err := p.PublishHealth(context.Background(), health); err != nil {
		t.Fatalf("PublishHealth() error: %v", err)
	}

	data := client.data()
	if len(data) != 2 {
		t.Fatalf("expected auto flush of 2 points, got %d", len(data))
	}
	if *data[0].MetricName != MetricHealthSeverity || *data[0].Value != 1 {
		t.Fatalf("unexpected severity datum: %s=%v", *data[0].MetricName, *data[0].Value)
	}
	if data[1].Unit != types.StandardUnitCount || *data[1].Value != 0 {
		t.Fatalf("unexpected auth datum: %v", *data[1].Value)
	}
}

func TestMetricsPublisher_RetriesTransientErrors(t *testing.T) {
	client := &fakeCloudWatch{fails: 2}
	p := newTestPublisher(t, client, 100)

	_ = p.PublishHealth(context.Background(), &dto.HealthViewModel{OverallLevel: valueobject.HealthHealthy})
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("expected flush to succeed after retries, got %v", err)
	}
	if len(client.data()) != 2 {
		t.Fatalf("expected 2 data points, got %d", len(client.data()))
	}
}

func TestMetricsPublisher_KeepsBufferOnFailure(t *testing.T) {
	client := &fakeCloudWatch{fails: maxRetries}
	p := newTestPublisher(t, client, 100)

	_ = p.PublishHealth(context.Background(), &dto.HealthViewModel{OverallLevel: valueobject.HealthUnknown})
	if err := p.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush error")
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("expected second flush to succeed, got %v", err)
	}
	if len(client.data()) != 2 {
		t.Fatalf("expected buffered points to be published, got %d", len(client.data()))
	}
}

func TestNewMetricsPublisher_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config MetricsPublisherConfig
	}{
		{name: "missing namespace", config: MetricsPublisherConfig{Region: "us-east-1"}},
		{name: "missing region", config: MetricsPublisherConfig{Namespace: "CRMDashboard"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMetricsPublisher(context.Background(), tt.config, logger.NewNop()); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
