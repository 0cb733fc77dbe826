// Package config holds the parameters of a spectrogram computation and
// loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the analysis scripts the pipeline replaces.
const (
	DefaultFrameLength   = 1024
	DefaultHop           = 512
	DefaultWindow        = windowing.Hann
	DefaultNumMelFilters = 128
	DefaultLogScale      = true
)

// Config selects framing, windowing and the optional mel and dB stages.
type Config struct {
	// Conditioning, applied before framing. Zero disables each stage.
	DCCutoff    float64 `json:"dc_cutoff" yaml:"dc_cutoff"`       // Hz
	PreEmphasis float64 `json:"pre_emphasis" yaml:"pre_emphasis"` // coefficient α

	// Spectral Analysis
	FrameLength int            `json:"frame_length" yaml:"frame_length"`
	Hop         int            `json:"hop" yaml:"hop"`
	Window      windowing.Kind `json:"window" yaml:"window"`

	// Mel projection
	Mel           bool `json:"mel" yaml:"mel"`
	NumMelFilters int  `json:"num_mel_filters" yaml:"num_mel_filters"`

	// Decibel scaling
	LogScale  bool     `json:"log_scale" yaml:"log_scale"`
	Reference *float64 `json:"reference,omitempty" yaml:"reference,omitempty"` // nil: global maximum
	Amin      float64  `json:"amin" yaml:"amin"`
	TopDB     float64  `json:"top_db" yaml:"top_db"` // 0 disables clipping

	// Execution
	FFTBackend spectral.Backend `json:"fft_backend" yaml:"fft_backend"`
	Workers    int              `json:"workers" yaml:"workers"` // 0: automatic
}

// Default returns the spectral estimation defaults: 1024 sample Hann
// frames at 50% overlap, linear frequency scale, dB output relative to
// the loudest cell.
func Default() Config {
	return Config{
		FrameLength:   DefaultFrameLength,
		Hop:           DefaultHop,
		Window:        DefaultWindow,
		NumMelFilters: DefaultNumMelFilters,
		LogScale:      DefaultLogScale,
		Amin:          spectral.DefaultAmin,
		FFTBackend:    spectral.BackendGoDSP,
	}
}

// Display returns the defaults used for windowed-signal display, where
// frames do not overlap.
func Display() Config {
	cfg := Default()
	cfg.Hop = cfg.FrameLength
	return cfg
}

// Validate checks that cfg describes a computable pipeline. Every problem
// is reported; the joined error matches common.ErrInvalidArgument.
func (c Config) Validate() error {
	var errs []error

	if c.DCCutoff < 0 || math.IsNaN(c.DCCutoff) {
		errs = append(errs, common.InvalidArgument("dc_cutoff must not be negative: %g", c.DCCutoff))
	}
	if c.PreEmphasis != 0 && !(c.PreEmphasis > 0 && c.PreEmphasis < 1) {
		errs = append(errs, common.InvalidArgument("pre_emphasis must be 0 or in (0, 1): %g", c.PreEmphasis))
	}
	if c.FrameLength <= 0 {
		errs = append(errs, common.InvalidArgument("frame_length must be positive: %d", c.FrameLength))
	}
	if c.Hop <= 0 {
		errs = append(errs, common.InvalidArgument("hop must be positive: %d", c.Hop))
	} else if c.FrameLength > 0 && c.Hop > c.FrameLength {
		errs = append(errs, common.InvalidArgument("hop (%d) must not exceed frame_length (%d)", c.Hop, c.FrameLength))
	}
	if !c.Window.Valid() {
		errs = append(errs, common.InvalidArgument("window kind %d is not supported", int(c.Window)))
	}
	if c.Mel && c.NumMelFilters < 1 {
		errs = append(errs, common.InvalidArgument("num_mel_filters must be at least 1: %d", c.NumMelFilters))
	}
	if c.LogScale && !(c.Amin > 0) {
		errs = append(errs, common.InvalidArgument("amin must be positive: %g", c.Amin))
	}
	if c.TopDB < 0 {
		errs = append(errs, common.InvalidArgument("top_db must be non-negative: %g", c.TopDB))
	}
	if _, err := spectral.ParseBackend(c.FFTBackend.String()); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, common.InvalidArgument("workers must not be negative: %d", c.Workers))
	}

	return errors.Join(errs...)
}

// DBOptions translates the dB settings for spectral.PowerToDB.
func (c Config) DBOptions() []spectral.DBOption {
	opts := []spectral.DBOption{spectral.WithAmin(c.Amin), spectral.WithTopDB(c.TopDB)}
	if c.Reference != nil {
		opts = append(opts, spectral.WithReference(*c.Reference))
	}
	return opts
}

// Load reads the YAML configuration file at path on top of Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Default and validates the
// result. Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
