package spectrogram

import (
	"context"
	"time"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/filters"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
	"github.com/RyanBlaney/sonido-spectrogram/spectrogram/config"
	"go.opentelemetry.io/otel/attribute"
)

// Pipeline runs framing, spectral estimation and the optional mel and dB
// stages. A Pipeline is safe for concurrent use; mel filter banks are
// memoized per (sampleRate, frameLength, numMelFilters) and never mutated.
type Pipeline struct {
	logger   logging.Logger
	metrics  *Metrics
	melBanks *spectral.MelBankCache
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the pipeline logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records into m instead of the global meter provider. A nil
// m disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: logging.WithFields(logging.Fields{
			"component": "spectrogram_pipeline",
		}),
		metrics:  defaultMetrics(),
		melBanks: spectral.NewMelBankCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compute produces the spectrogram of buf. A buffer shorter than one frame
// is not an error: the result has its frequency axis but no frames.
func (p *Pipeline) Compute(ctx context.Context, buf SampleBuffer, cfg config.Config) (s *Spectrogram, err error) {
	start := time.Now()
	frames := 0
	attrs := []attribute.KeyValue{
		attribute.String("window", cfg.Window.String()),
		attribute.Bool("mel", cfg.Mel),
		attribute.Bool("log_scale", cfg.LogScale),
	}
	defer func() {
		p.metrics.record(ctx, start, attrs, frames, err)
	}()

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":     "Compute",
		"frame_length": cfg.FrameLength,
		"hop":          cfg.Hop,
		"window":       cfg.Window.String(),
		"mel":          cfg.Mel,
		"log_scale":    cfg.LogScale,
	})

	if err = cfg.Validate(); err != nil {
		logger.Error(err, "Invalid spectrogram configuration")
		return nil, err
	}
	if err = buf.validate(); err != nil {
		logger.Error(err, "Invalid sample buffer")
		return nil, err
	}

	samples, err := condition(buf, cfg)
	if err != nil {
		logger.Error(err, "Failed to condition samples")
		return nil, err
	}

	window, err := windowing.New(cfg.Window, cfg.FrameLength)
	if err != nil {
		return nil, err
	}
	framer, err := common.NewFramer(cfg.FrameLength, cfg.Hop)
	if err != nil {
		return nil, err
	}
	estimator, err := spectral.NewEstimator(window,
		spectral.WithBackend(cfg.FFTBackend),
		spectral.WithWorkers(cfg.Workers),
		spectral.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	// Built before estimation so that a degenerate bank is reported even
	// when the buffer holds no full frame.
	var bank *spectral.MelFilterBank
	if cfg.Mel {
		bank, err = p.melBanks.Get(buf.SampleRate, cfg.FrameLength, cfg.NumMelFilters)
		if err != nil {
			logger.Error(err, "Failed to build mel filter bank")
			return nil, err
		}
	}

	power, err := estimator.Estimate(ctx, samples, framer)
	if err != nil {
		logger.Error(err, "Spectral estimation failed")
		return nil, err
	}
	frames = len(power)

	frequencies := spectral.BinFrequencies(cfg.FrameLength, buf.SampleRate)
	if bank != nil {
		if power, err = bank.ApplyFrames(power); err != nil {
			logger.Error(err, "Mel projection failed")
			return nil, err
		}
		frequencies = bank.CenterFrequencies()
	}

	times := make([]float64, frames)
	for i := range times {
		times[i] = float64(i*cfg.Hop) / float64(buf.SampleRate)
	}

	s = &Spectrogram{
		Frequencies: frequencies,
		Times:       times,
		SampleRate:  buf.SampleRate,
		FrameLength: cfg.FrameLength,
		Hop:         cfg.Hop,
		Window:      cfg.Window,
		Mel:         cfg.Mel,
		LogScale:    cfg.LogScale,
	}

	if frames == 0 {
		logger.Warn("Buffer shorter than one frame, spectrogram is empty", logging.Fields{
			"samples": len(buf.Samples),
		})
		s.Matrix = common.Transpose(power, len(frequencies))
		return s, nil
	}

	if cfg.LogScale {
		if power, s.Reference, err = spectral.PowerToDB(power, cfg.DBOptions()...); err != nil {
			logger.Error(err, "Decibel scaling failed")
			return nil, err
		}
	}

	s.Matrix = common.Transpose(power, len(frequencies))

	logger.Debug("Spectrogram computed", logging.Fields{
		"frames":   frames,
		"rows":     len(frequencies),
		"duration": time.Since(start).String(),
	})

	return s, nil
}

// condition runs the optional DC blocker and pre-emphasis over a copy of
// the samples. With both disabled the caller's slice is returned as is.
func condition(buf SampleBuffer, cfg config.Config) ([]float64, error) {
	samples := buf.Samples
	if cfg.DCCutoff > 0 {
		dc, err := filters.NewDCRemoval(buf.SampleRate, cfg.DCCutoff)
		if err != nil {
			return nil, err
		}
		samples = dc.ProcessBuffer(samples)
	}
	if cfg.PreEmphasis > 0 {
		pe, err := filters.NewPreEmphasis(cfg.PreEmphasis)
		if err != nil {
			return nil, err
		}
		samples = pe.ProcessBuffer(samples)
	}
	return samples, nil
}

// ComputeSpectrogram is the one-call form of Pipeline.Compute with every
// remaining setting at its default.
func ComputeSpectrogram(samples []float64, sampleRate, frameLength, hop int, kind windowing.Kind, useMelScale bool, numMelFilters int, useLogScale bool) (*Spectrogram, error) {
	cfg := config.Default()
	cfg.FrameLength = frameLength
	cfg.Hop = hop
	cfg.Window = kind
	cfg.Mel = useMelScale
	cfg.NumMelFilters = numMelFilters
	cfg.LogScale = useLogScale

	return New().Compute(context.Background(), SampleBuffer{Samples: samples, SampleRate: sampleRate}, cfg)
}
