package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/ZenLiuCN/bitfields/conf"
	"github.com/ZenLiuCN/bitfields/telemetry/common"
	"github.com/ZenLiuCN/bitfields/telemetry/otlp"
	"github.com/ZenLiuCN/bitfields/telemetry/prometheus"
	client "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

var (
	have     bool
	registry *client.Registry
)

func UsingTelemetry() bool {
	return have
}

// MetricsHandler exposition of the meter provider installed by [Setup], not found before it.
func MetricsHandler() http.Handler {
	if registry == nil {
		return http.NotFoundHandler()
	}
	return prometheus.Handler(registry)
}

// Setup installs global propagator, tracer and meter providers.
//
// HOCON sample:
//
//	telemetry{
//	 resource{ service: bitfields }
//	 otlp{ endpoint: "localhost:4317", insecure: true } # tracing is off without endpoint
//	 prometheus: true
//	}
func Setup(ctx context.Context, c conf.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFunc []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFunc {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFunc = nil
		return err
	}
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}
	otel.SetTextMapPropagator(NewPropagator())
	res, err := common.ParseResource(ctx, c)
	if err != nil {
		handleErr(err)
		return
	}
	if c.HasPath("telemetry.otlp.endpoint") {
		tp, er := otlp.NewTraceProvider(ctx, c, res)
		if er != nil {
			handleErr(er)
			return
		}
		shutdownFunc = append(shutdownFunc, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}
	if c.GetBoolean("telemetry.prometheus", true) {
		reg := client.NewRegistry()
		mp, er := prometheus.NewMeterProvider(reg, res)
		if er != nil {
			handleErr(er)
			return
		}
		shutdownFunc = append(shutdownFunc, mp.Shutdown)
		otel.SetMeterProvider(mp)
		registry = reg
	}
	have = true
	conf.Internal().Infof("telemetry installed, tracing %t", c.HasPath("telemetry.otlp.endpoint"))
	return
}
