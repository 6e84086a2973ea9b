package trace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var logger = log.WithField("package", "trace")

const (
	TRACER_NAME     = "github.com/gh-nvat/vdiffchk"
	TRACE_FILE_NAME = "trace.json"
)

var tracer oteltrace.Tracer = noop.NewTracerProvider().Tracer(TRACER_NAME)

// InitTracer installs the global tracer. When enabled, spans are exported to <outputDir>/trace.json
// once the returned shutdown func is called; otherwise spans are no-ops.
func InitTracer(service string, enable bool, outputDir string) (func(), error) {
	if !enable {
		tracer = noop.NewTracerProvider().Tracer(TRACER_NAME)
		return func() {}, nil
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, TRACE_FILE_NAME)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithPrettyPrint())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(TRACER_NAME)
	logger.WithField("service", service).WithField("filePath", path).Info("Performance tracing enabled")

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.WithField("error", err).Warn("Failed to shutdown tracer")
		}
		if err := f.Close(); err != nil {
			logger.WithField("error", err).Warn("Failed to close trace file")
		}
		tracer = noop.NewTracerProvider().Tracer(TRACER_NAME)
	}, nil
}

// StartSpan starts a span under ctx. Callers must End() it.
func StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, name)
}
