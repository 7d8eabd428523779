package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ZenLiuCN/bitfields/conf"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ExecutableName base name of the running binary.
func ExecutableName() string {
	if p, err := os.Executable(); err == nil {
		return filepath.Base(p)
	}
	return filepath.Base(os.Args[0])
}

// ParseResource reads
//
//	telemetry.resource{ service: bitfields, container: true, host: true, env: true, process: true, sdk: true }
func ParseResource(ctx context.Context, c conf.Config) (res *resource.Resource, err error) {
	opts := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(c.GetString("telemetry.resource.service", ExecutableName()))),
	}
	if c.GetBoolean("telemetry.resource.container", false) {
		opts = append(opts, resource.WithContainer())
	}
	if c.GetBoolean("telemetry.resource.host", true) {
		opts = append(opts, resource.WithHost())
	}
	if c.GetBoolean("telemetry.resource.env", true) {
		opts = append(opts, resource.WithFromEnv())
	}
	if c.GetBoolean("telemetry.resource.process", false) {
		opts = append(opts, resource.WithProcess())
	}
	if c.GetBoolean("telemetry.resource.sdk", true) {
		opts = append(opts, resource.WithTelemetrySDK())
	}
	res, err = resource.New(ctx, opts...)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		conf.Internal().Error("telemetry resource error ", err)
		return res, nil
	} else if err != nil {
		return nil, err
	}
	return
}
