package probe

import (
	"context"
	"errors"

	"github.com/vango-dev/cells/pkg/cells"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "cells"

// TracerConfig configures the OpenTelemetry probe.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "cells").
	TracerName string

	// Provider supplies the tracer. Default: the global provider.
	Provider trace.TracerProvider

	// Context is the parent of every root span (default: context.Background()).
	Context context.Context

	// Recomputations adds an event per derivation recomputation.
	// Disabled by default.
	Recomputations bool
}

// TracerOption configures the OpenTelemetry probe.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithContext sets the parent context for root spans.
func WithContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// WithRecomputations enables recomputation events.
func WithRecomputations(enabled bool) TracerOption {
	return func(c *TracerConfig) {
		c.Recomputations = enabled
	}
}

// Tracer is a cells.Probe that records each transaction as a span. Nested
// transactions become child spans; reactions and cycles become events on the
// innermost open span. Reactions outside any transaction get a span of their
// own.
type Tracer struct {
	tracer         trace.Tracer
	root           context.Context
	recomputations bool

	// stack holds the open spans, innermost last.
	stack []openSpan
}

type openSpan struct {
	ctx  context.Context
	span trace.Span
}

// NewTracer creates the probe.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	return &Tracer{
		tracer:         config.Provider.Tracer(config.TracerName),
		root:           config.Context,
		recomputations: config.Recomputations,
	}
}

func (t *Tracer) parent() context.Context {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1].ctx
	}
	return t.root
}

func (t *Tracer) current() trace.Span {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1].span
	}
	return nil
}

// Recomputed implements cells.Probe.
func (t *Tracer) Recomputed(cell uint64) {
	if !t.recomputations {
		return
	}
	if span := t.current(); span != nil {
		span.AddEvent("cells.recompute", trace.WithAttributes(
			attribute.Int64("cells.cell", int64(cell)),
		))
	}
}

// Reacted implements cells.Probe.
func (t *Tracer) Reacted(reactor uint64) {
	attrs := trace.WithAttributes(attribute.Int64("cells.reactor", int64(reactor)))
	if span := t.current(); span != nil {
		span.AddEvent("cells.react", attrs)
		return
	}
	_, span := t.tracer.Start(t.root, "cells.react", attrs)
	span.End()
}

// TxnBegan implements cells.Probe.
func (t *Tracer) TxnBegan(name string, depth int) {
	spanName := "cells.txn"
	if name != "" {
		spanName = "cells.txn " + name
	}
	ctx, span := t.tracer.Start(t.parent(), spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cells.txn.name", name),
			attribute.Int("cells.txn.depth", depth),
		),
	)
	t.stack = append(t.stack, openSpan{ctx: ctx, span: span})
}

// TxnEnded implements cells.Probe.
func (t *Tracer) TxnEnded(_ string, _ int, outcome cells.Outcome, modified int) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	span := t.stack[n-1].span
	t.stack = t.stack[:n-1]

	span.SetAttributes(
		attribute.String("cells.txn.outcome", outcome.String()),
		attribute.Int("cells.txn.modified", modified),
	)
	if outcome == cells.Aborted {
		span.SetStatus(codes.Error, "aborted")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Cycle implements cells.Probe.
func (t *Tracer) Cycle(err error) {
	attrs := trace.WithAttributes(attribute.String("cells.cycle.kind", cycleKind(err)))
	span := t.current()
	if span == nil {
		_, span = t.tracer.Start(t.root, "cells.cycle")
		defer span.End()
	}
	span.RecordError(err, attrs)
	span.SetStatus(codes.Error, err.Error())
}

// cycleKind names the sentinel behind a cycle error for labels.
func cycleKind(err error) string {
	switch {
	case errors.Is(err, cells.ErrCyclicalUpdate):
		return "cyclical_update"
	case errors.Is(err, cells.ErrReactorCycle):
		return "reactor_cycle"
	default:
		return "unknown"
	}
}
