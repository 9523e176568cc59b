package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gocarina/gocsv"

	"github.com/dreschagin/crm-dashboard/internal/application/dto"
	"github.com/dreschagin/crm-dashboard/internal/application/port"
	"github.com/dreschagin/crm-dashboard/pkg/logger"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"

	maxExportBytes = 64 << 20
)

type Config struct {
	Bucket          string
	Key             string
	Format          Format
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// CustomerExportSource reads a customer export (JSON or CSV) from an S3 bucket.
// It implements port.CustomerSource; the caller token is not used.
type CustomerExportSource struct {
	client getObjectAPI
	bucket string
	key    string
	format Format
	logger *logger.Logger
}

func NewCustomerExportSource(ctx context.Context, cfg Config, log *logger.Logger) (*CustomerExportSource, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("s3 object key is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "ru-central1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if strings.TrimSpace(cfg.AccessKeyID) != "" && strings.TrimSpace(cfg.SecretAccessKey) != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = &endpoint
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return newCustomerExportSource(client, cfg, log)
}

func newCustomerExportSource(client getObjectAPI, cfg Config, log *logger.Logger) (*CustomerExportSource, error) {
	format := Format(strings.ToLower(string(cfg.Format)))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		return nil, fmt.Errorf("unsupported export format: %s", cfg.Format)
	}

	return &CustomerExportSource{
		client: client,
		bucket: strings.TrimSpace(cfg.Bucket),
		key:    strings.TrimSpace(cfg.Key),
		format: format,
		logger: log,
	}, nil
}

// FetchCustomers downloads and decodes the export object
func (s *CustomerExportSource) FetchCustomers(ctx context.Context, _ string) ([]dto.CustomerRecord, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &s.key,
	})
	if err != nil {
		return nil, &port.TransportError{Err: fmt.Errorf("get object s3://%s/%s: %w", s.bucket, s.key, err)}
	}
	defer output.Body.Close()

	body, err := io.ReadAll(io.LimitReader(output.Body, maxExportBytes))
	if err != nil {
		return nil, &port.TransportError{Err: fmt.Errorf("read export: %w", err)}
	}

	records, skipped, err := decodeExport(s.format, body)
	if err != nil {
		return nil, &port.TransportError{Err: fmt.Errorf("decode %s export: %w", s.format, err)}
	}
	if skipped > 0 {
		s.logger.Warn("Skipped malformed export rows", "key", s.key, "skipped", skipped)
	}

	s.logger.Debug("Customer export loaded", "key", s.key, "format", string(s.format), "records", len(records))

	return records, nil
}

func decodeExport(format Format, body []byte) ([]dto.CustomerRecord, int, error) {
	if format == FormatCSV {
		return decodeCSV(body)
	}
	return dto.DecodeCustomerList(body)
}

func decodeCSV(body []byte) ([]dto.CustomerRecord, int, error) {
	body = []byte(strings.TrimPrefix(string(body), "\ufeff"))
	if len(strings.TrimSpace(string(body))) == 0 {
		return []dto.CustomerRecord{}, 0, nil
	}

	var records []dto.CustomerRecord
	if err := gocsv.UnmarshalBytes(body, &records); err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []dto.CustomerRecord{}
	}

	return records, 0, nil
}
