// Package observability installs the process-wide slog logger.
//
// Supported formats:
//   - text: human-readable key=value lines on stderr
//   - json: one JSON object per line on stderr
//   - otel: slog records bridged into an OpenTelemetry log pipeline
//
// The otel pipeline exports over OTLP when OTEL_EXPORTER_OTLP_LOGS_ENDPOINT or
// OTEL_EXPORTER_OTLP_ENDPOINT is set (protocol chosen by
// OTEL_EXPORTER_OTLP_PROTOCOL, "grpc" or "http/protobuf"), and to stderr
// otherwise.
package observability
