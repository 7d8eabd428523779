package otlp

import (
	"context"
	"time"

	"github.com/ZenLiuCN/bitfields/conf"
	otlp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// NewTraceProvider exports spans over OTLP gRPC, reads
//
//	telemetry.otlp{ endpoint: "localhost:4317", insecure: true, compress: gzip, headers{}, trace{ batch{ size, timeout }, queue{ size, blocking }, export{ timeout } } }
func NewTraceProvider(ctx context.Context, cfg conf.Config, res *resource.Resource) (*trace.TracerProvider, error) {
	var opt []otlp.Option
	opt = append(opt, otlp.WithEndpoint(conf.Required("telemetry.otlp.endpoint", cfg, cfg.GetString)))
	conf.Exists("telemetry.otlp.insecure", cfg, cfg.GetBoolean, func(d bool) {
		if d {
			opt = append(opt, otlp.WithInsecure())
		}
	})
	conf.Exists("telemetry.otlp.compress", cfg, cfg.GetString, func(d string) {
		opt = append(opt, otlp.WithCompressor(d))
	})
	if h := cfg.GetTextMap("telemetry.otlp.headers"); len(h) > 0 {
		opt = append(opt, otlp.WithHeaders(h))
	}
	exporter, err := otlp.New(ctx, opt...)
	if err != nil {
		return nil, err
	}
	var spanOpt []trace.BatchSpanProcessorOption
	conf.Exists("telemetry.otlp.trace.export.timeout", cfg, cfg.GetTimeDuration, func(d time.Duration) {
		spanOpt = append(spanOpt, trace.WithExportTimeout(d))
	})
	conf.Exists("telemetry.otlp.trace.batch.size", cfg, cfg.GetInt32, func(d int32) {
		spanOpt = append(spanOpt, trace.WithMaxExportBatchSize(int(d)))
	})
	conf.Exists("telemetry.otlp.trace.batch.timeout", cfg, cfg.GetTimeDuration, func(d time.Duration) {
		spanOpt = append(spanOpt, trace.WithBatchTimeout(d))
	})
	conf.Exists("telemetry.otlp.trace.queue.size", cfg, cfg.GetInt32, func(d int32) {
		spanOpt = append(spanOpt, trace.WithMaxQueueSize(int(d)))
	})
	conf.Exists("telemetry.otlp.trace.queue.blocking", cfg, cfg.GetBoolean, func(d bool) {
		if d {
			spanOpt = append(spanOpt, trace.WithBlocking())
		}
	})
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter, spanOpt...),
		trace.WithResource(res),
	), nil
}
