package spectrogram

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for pipeline metrics.
const meterName = "github.com/RyanBlaney/sonido-spectrogram/spectrogram"

// computeBuckets are histogram boundaries in seconds, from a single short
// clip up to several minutes of audio.
var computeBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics holds the OpenTelemetry instruments recorded by a Pipeline.
type Metrics struct {
	// ComputeDuration tracks wall time of Compute. Attributes: window,
	// mel, log_scale, status.
	ComputeDuration metric.Float64Histogram

	// Frames counts analysed frames.
	Frames metric.Int64Counter

	// Errors counts failed Compute calls.
	Errors metric.Int64Counter
}

// NewMetrics creates the pipeline instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ComputeDuration, err = m.Float64Histogram("spectrogram.compute.duration",
		metric.WithDescription("Wall time of one spectrogram computation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(computeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("spectrogram.frames",
		metric.WithDescription("Total frames analysed."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("spectrogram.errors",
		metric.WithDescription("Total failed spectrogram computations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics builds instruments on the global provider, which is a
// no-op until the application installs one.
func defaultMetrics() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil
	}
	return m
}

func (m *Metrics) record(ctx context.Context, start time.Time, attrs []attribute.KeyValue, frames int, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
		m.Errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	m.ComputeDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(append(attrs, attribute.String("status", status))...))

	if frames > 0 {
		m.Frames.Add(ctx, int64(frames), metric.WithAttributes(attrs...))
	}
}
