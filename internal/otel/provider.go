// Package otel builds the OpenTelemetry log pipeline bridged into slog.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled without a writer or an
// OTLP endpoint.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

const defaultBatchTimeout = 5 * time.Second

// Config holds OTel configuration
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // JSON records, one export batch at a time
	Endpoint     string    // OTLP/HTTP collector, optional
	Insecure     bool
}

// Provider owns the log provider. Every method is a no-op when disabled.
type Provider struct {
	logProvider *sdklog.LoggerProvider
	enabled     bool
}

// New builds the pipeline. A disabled config returns a no-op provider.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}
	if cfg.LogWriter == nil && cfg.Endpoint == "" {
		return nil, ErrNoExporter
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporters, err := buildExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}

	return &Provider{logProvider: sdklog.NewLoggerProvider(opts...), enabled: true}, nil
}

func buildExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var exporters []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter))
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		exporters = append(exporters, exp)
	}

	return exporters, nil
}

// LoggerProvider returns the provider for the otelslog bridge, nil when
// disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

func (p *Provider) Enabled() bool {
	return p.enabled
}

// Flush exports pending records.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the provider. Records logged afterwards are
// dropped.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
