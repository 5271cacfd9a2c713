// Package tracing exports scheduler traces as OpenTelemetry spans.
//
// Every activation becomes a span, and every claim a child span of the
// activation holding it. A preempting activation is a child of the span
// that was running when it arrived, so the span tree mirrors the nesting
// of frames on the stack. Span timestamps are cycle counts, expressed as
// nanoseconds after an epoch.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/rtfm/internal/ir"
)

// Attribute keys.
const (
	KeyTask     = attribute.Key("rtfm.task")
	KeyResource = attribute.Key("rtfm.resource")
	KeyLevel    = attribute.Key("rtfm.level")
	KeyCycle    = attribute.Key("rtfm.cycle")
	KeyLabel    = attribute.Key("rtfm.label")
)

// NewProvider returns a tracer provider that writes every finished span
// to w as JSON. Callers must Shutdown it to flush.
func NewProvider(w io.Writer, serviceVersion string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "rtfm"),
		attribute.String("service.version", serviceVersion),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}

// Observer turns trace records into spans. It implements engine.Observer.
type Observer struct {
	tracer trace.Tracer
	epoch  time.Time

	mu     sync.Mutex
	root   trace.Span
	ctx    context.Context
	frames []frame
}

type frame struct {
	task   trace.Span
	claims []trace.Span
	ctx    context.Context
}

// Option configures an Observer.
type Option func(*Observer)

// WithEpoch sets the time that cycle 0 maps to.
func WithEpoch(t time.Time) Option {
	return func(o *Observer) { o.epoch = t }
}

// NewObserver starts a root span named name. Spans of activations become
// its children. End must be called once the run is over.
func NewObserver(ctx context.Context, tp trace.TracerProvider, name string, opts ...Option) *Observer {
	o := &Observer{
		tracer: tp.Tracer("github.com/roach88/rtfm/internal/tracing"),
		epoch:  time.Unix(0, 0).UTC(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.ctx, o.root = o.tracer.Start(ctx, name, trace.WithTimestamp(o.epoch))
	return o
}

func (o *Observer) at(cycle int64) trace.SpanEventOption {
	return trace.WithTimestamp(o.epoch.Add(time.Duration(cycle)))
}

// current returns the innermost open span and its context.
func (o *Observer) current() (context.Context, trace.Span) {
	if len(o.frames) == 0 {
		return o.ctx, o.root
	}
	f := &o.frames[len(o.frames)-1]
	if n := len(f.claims); n > 0 {
		return trace.ContextWithSpan(f.ctx, f.claims[n-1]), f.claims[n-1]
	}
	return f.ctx, f.task
}

// Observe implements engine.Observer.
func (o *Observer) Observe(rec ir.TraceRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attrs := trace.WithAttributes(
		KeyTask.String(rec.Task),
		KeyLevel.Int(int(rec.Level)),
		KeyCycle.Int64(rec.Cycle),
	)

	switch rec.Kind {
	case ir.TraceStart:
		parent, _ := o.current()
		ctx, span := o.tracer.Start(parent, "task "+rec.Task, o.at(rec.Cycle), attrs,
			trace.WithAttributes(KeyLabel.String(rec.Label)))
		o.frames = append(o.frames, frame{task: span, ctx: ctx})

	case ir.TraceEnter:
		if len(o.frames) == 0 {
			return
		}
		parent, _ := o.current()
		_, span := o.tracer.Start(parent, "claim "+rec.Resource, o.at(rec.Cycle), attrs,
			trace.WithAttributes(KeyResource.String(rec.Resource)))
		f := &o.frames[len(o.frames)-1]
		f.claims = append(f.claims, span)

	case ir.TraceExit:
		if len(o.frames) == 0 {
			return
		}
		f := &o.frames[len(o.frames)-1]
		if n := len(f.claims); n > 0 {
			f.claims[n-1].End(o.at(rec.Cycle))
			f.claims = f.claims[:n-1]
		}

	case ir.TraceFault:
		if len(o.frames) == 0 {
			return
		}
		f := &o.frames[len(o.frames)-1]
		f.task.SetStatus(codes.Error, rec.Detail)
		f.task.AddEvent("fault", o.at(rec.Cycle),
			trace.WithAttributes(attribute.String("rtfm.outcome", rec.Detail)))

	case ir.TraceFinish:
		if len(o.frames) == 0 {
			return
		}
		f := o.frames[len(o.frames)-1]
		o.frames = o.frames[:len(o.frames)-1]
		f.task.End(o.at(rec.Cycle))

	default:
		_, span := o.current()
		span.AddEvent(string(rec.Kind)+" "+rec.Task,
			o.at(rec.Cycle),
			trace.WithAttributes(KeyTask.String(rec.Task), attribute.String("rtfm.detail", rec.Detail)))
	}
}

// End closes any spans still open and the root span at the given cycle.
func (o *Observer) End(cycle int64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ts := o.at(cycle)
	for i := len(o.frames) - 1; i >= 0; i-- {
		f := o.frames[i]
		for j := len(f.claims) - 1; j >= 0; j-- {
			f.claims[j].End(ts)
		}
		f.task.End(ts)
	}
	o.frames = nil
	o.root.End(ts)
}
