package metrics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func restoreTracerProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInitProviderRecordsSpans(t *testing.T) {
	restoreTracerProvider(t)
	exp := tracetest.NewInMemoryExporter()

	shutdown, err := InitProvider(context.Background(), ProviderConfig{TraceExporter: exp})
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	defer shutdown(context.Background())

	_, ok := StartSpan(context.Background(), "ok")
	EndSpan(ok, nil)
	_, failed := StartSpan(context.Background(), "failed")
	EndSpan(failed, errors.New("boom"))

	tp, isSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !isSDK {
		t.Fatalf("Expected SDK tracer provider, got %T", otel.GetTracerProvider())
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush failed: %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "ok" || spans[0].Status.Code == codes.Error {
		t.Errorf("Unexpected first span: %s %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Name != "failed" || spans[1].Status.Code != codes.Error {
		t.Errorf("Expected failed span with error status, got %s %v", spans[1].Name, spans[1].Status)
	}
	if svc, ok := spans[0].Resource.Set().Value("service.name"); !ok || svc.AsString() != "humandex" {
		t.Errorf("Expected service.name humandex, got %v", svc)
	}
}

func TestLoggerAddsTraceIDs(t *testing.T) {
	restoreTracerProvider(t)
	if _, err := InitProvider(context.Background(), ProviderConfig{}); err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, span := StartSpan(context.Background(), "logged")
	Logger(ctx).Info("inside")
	EndSpan(span, nil)

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatal("Expected a valid span context with a provider installed")
	}
	if !strings.Contains(buf.String(), "trace_id="+sc.TraceID().String()) {
		t.Errorf("Expected trace_id in log line, got %q", buf.String())
	}

	buf.Reset()
	Logger(context.Background()).Info("outside")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("Expected no trace_id without a span, got %q", buf.String())
	}
}
