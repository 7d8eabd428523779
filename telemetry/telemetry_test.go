package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstrument(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)

	boom := errors.New("boom")
	err := Instrument("compile", func(ctx context.Context) error {
		assert.NotNil(t, FromContext(ctx))
		return boom
	})(context.Background())
	assert.ErrorIs(t, err, boom)

	require.NoError(t, Instrument("ok", func(ctx context.Context) error { return nil })(context.Background()))

	assert.Panics(t, func() {
		_ = Instrument("panic", func(ctx context.Context) error { panic("bad") })(context.Background())
	})

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "compile", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}

func TestSetupPrometheus(t *testing.T) {
	shutdown, err := Setup(context.Background(), conf.Parse(`telemetry { resource { service: test, host: false, env: false } }`))
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()
	assert.True(t, UsingTelemetry())

	tel := NewTelemetry("bitfields")
	tel.Counter("compiles", "compiled statements").Add(context.Background(), 3)

	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "compiles_total")
}
