package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	Version = "0.1.0"
)

type contextKey struct{}

func FromContext(ctx context.Context) (r Telemetry) {
	if ctx == nil {
		return nil
	}
	r, _ = ctx.Value(contextKey{}).(Telemetry)
	return r
}

func WithTelemetry(ctx context.Context, t Telemetry) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

type Telemetry interface {
	Scope() string
	HandleError(err error)

	/*HandleRecover returns the recover value and if there is failure
	A sample usage like:
		defer func() {
			if r, ok := tel.HandleRecover(recover()); ok {
				panic(r)
			}
		}()
	*/
	HandleRecover(rec any) (any, bool)
	StartSpan(name string, ctx context.Context) (context.Context, trace.Span)
	StartSpanWith(name string, ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	// Counter a named int64 counter of this scope, failures are handed to otel and a noop is returned.
	Counter(name, description string) metric.Int64Counter
	Histogram(name, description, unit string) metric.Float64Histogram
}

type telemetry struct {
	scope  string
	meter  metric.Meter
	tracer trace.Tracer
}

func (t *telemetry) StartSpan(name string, ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name)
}
func (t *telemetry) StartSpanWith(name string, ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
func (t *telemetry) Scope() string {
	return t.scope
}
func (t *telemetry) HandleError(err error) {
	Handle(err)
}
func (t *telemetry) HandleRecover(rec any) (any, bool) {
	switch r := rec.(type) {
	case nil:
		return r, false
	case error:
		t.HandleError(r)
		return r, true
	default:
		t.HandleError(fmt.Errorf("%#+v", r))
		return r, true
	}
}
func (t *telemetry) Counter(name, description string) metric.Int64Counter {
	c, err := t.meter.Int64Counter(name, metric.WithDescription(description))
	Handle(err)
	return c
}
func (t *telemetry) Histogram(name, description, unit string) metric.Float64Histogram {
	h, err := t.meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
	Handle(err)
	return h
}

// NewTelemetry of the current global providers.
func NewTelemetry(scope string) Telemetry {
	return &telemetry{
		scope:  scope,
		meter:  otel.GetMeterProvider().Meter(scope, metric.WithInstrumentationVersion(Version)),
		tracer: otel.GetTracerProvider().Tracer(scope, trace.WithInstrumentationVersion(Version)),
	}
}

type ServiceFunc func(ctx context.Context) error

// Instrument runs service inside a span, errors are recorded on it and panics are handed to otel then repanicked.
func Instrument(name string, service ServiceFunc) ServiceFunc {
	return func(ctx context.Context) (err error) {
		tel := FromContext(ctx)
		if tel == nil {
			tel = NewTelemetry(name)
			ctx = WithTelemetry(ctx, tel)
		}
		ctx, span := tel.StartSpan(name, ctx)
		defer span.End()
		defer func() {
			if r, ok := tel.HandleRecover(recover()); ok {
				span.SetStatus(codes.Error, fmt.Sprint(r))
				panic(r)
			}
		}()
		if err = service(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return
	}
}

func Handle(err error) {
	if err != nil {
		otel.Handle(err)
	}
}
