package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Log formats accepted by Instrument.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatOTel = "otel"
)

const instrumentationName = "github.com/guilded-university/tokenvault"

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Instrument sets the default slog logger for the given level and format.
// The returned ShutdownFunc must be called before exit to flush exporters.
func Instrument(ctx context.Context, level slog.Level, format string) (ShutdownFunc, error) {
	return instrument(ctx, os.Stderr, os.Getenv, level, format)
}

func instrument(ctx context.Context, w io.Writer, getenv func(string) string, level slog.Level, format string) (ShutdownFunc, error) {
	handler, shutdown, err := newHandler(ctx, w, getenv, level, format)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(slog.New(handler))
	return shutdown, nil
}

func newHandler(ctx context.Context, w io.Writer, getenv func(string) string, level slog.Level, format string) (slog.Handler, ShutdownFunc, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "", FormatText:
		return slog.NewTextHandler(w, opts), noopShutdown, nil
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), noopShutdown, nil
	case FormatOTel:
		provider, err := newLoggerProvider(ctx, w, getenv, level)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otel logger provider: %w", err)
		}
		global.SetLoggerProvider(provider)

		handler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
		return handler, provider.Shutdown, nil
	default:
		return nil, nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// newLoggerProvider builds an SDK logger provider that drops records below level.
func newLoggerProvider(ctx context.Context, w io.Writer, getenv func(string) string, level slog.Level) (*sdklog.LoggerProvider, error) {
	var processor sdklog.Processor

	if endpointConfigured(getenv) {
		exporter, err := newOTLPExporter(ctx, getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
		if err != nil {
			return nil, err
		}
		processor = sdklog.NewBatchProcessor(exporter)
	} else {
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		// CLI invocations are short lived, export synchronously
		processor = sdklog.NewSimpleProcessor(exporter)
	}

	filtered := minsev.NewLogProcessor(processor, severityFor(level))
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(filtered)), nil
}

func endpointConfigured(getenv func(string) string) bool {
	return getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") != "" || getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// newOTLPExporter creates an OTLP exporter. Endpoint, headers and TLS are read
// from the standard OTEL_EXPORTER_OTLP_* variables by the exporters themselves.
func newOTLPExporter(ctx context.Context, protocol string) (sdklog.Exporter, error) {
	switch protocol {
	case "grpc":
		exporter, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp grpc exporter: %w", err)
		}
		return exporter, nil
	case "", "http/protobuf":
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp http exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported otlp protocol: %s", protocol)
	}
}

func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
