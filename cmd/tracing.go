package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/humandex/internal/config"
	"github.com/lehigh-university-libraries/humandex/internal/metrics"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// initTracing installs the tracer provider described by cfg. The returned
// function flushes pending spans and is safe to call when tracing is off.
func initTracing(ctx context.Context, cfg config.TracingConfig, out io.Writer) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	var exporter sdktrace.SpanExporter
	if strings.EqualFold(cfg.Exporter, "stdout") {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return noop, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		exporter = exp
	}

	shutdown, err := metrics.InitProvider(ctx, metrics.ProviderConfig{
		ServiceName:    "humandex",
		ServiceVersion: Version,
		TraceExporter:  exporter,
	})
	if err != nil {
		return noop, fmt.Errorf("failed to init tracing: %w", err)
	}
	slog.Debug("Tracing enabled", "exporter", cfg.Exporter)
	return shutdown, nil
}
