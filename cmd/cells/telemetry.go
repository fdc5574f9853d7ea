package main

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newLogger builds the CLI's slog logger.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newTracerProvider returns a provider exporting spans to w as JSON. batch
// selects a batching span processor instead of a synchronous one.
func newTracerProvider(w io.Writer, batch bool) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	if batch {
		return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
	}
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)), nil
}
