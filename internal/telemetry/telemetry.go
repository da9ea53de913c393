// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package telemetry records capability metrics with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	apperrors "workbench/internal/errors"
)

// ScopeName is the instrumentation scope of capability metrics.
const ScopeName = "workbench/tools"

// ShutdownFunc flushes and releases telemetry resources.
type ShutdownFunc func(context.Context) error

// Setup installs a stdout metric exporter writing to w on the global meter
// provider. When disabled the global no-op provider is left in place.
func Setup(enabled bool, serviceName, version string, w io.Writer, interval time.Duration) (ShutdownFunc, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	if interval <= 0 {
		interval = time.Minute
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}

// Recorder counts capability invocations and their latency.
type Recorder struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRecorder creates instruments on meter. A nil meter uses the global provider.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = otel.Meter(ScopeName)
	}
	invocations, err := meter.Int64Counter("capability.invocations",
		metric.WithDescription("Capability invocations by outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("capability.duration",
		metric.WithDescription("Capability latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{invocations: invocations, duration: duration}, nil
}

// RecordInvocation implements tools.Recorder.
func (r *Recorder) RecordInvocation(ctx context.Context, capability string, kind apperrors.Kind, d time.Duration) {
	outcome := string(kind)
	if outcome == "" {
		outcome = "ok"
	}
	attrs := metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("kind", outcome),
	)
	r.invocations.Add(ctx, 1, attrs)
	r.duration.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
}
