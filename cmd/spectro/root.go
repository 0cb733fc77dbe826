package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/spectral"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
	"github.com/RyanBlaney/sonido-spectrogram/spectrogram"
	"github.com/RyanBlaney/sonido-spectrogram/spectrogram/config"
	"github.com/RyanBlaney/sonido-spectrogram/transcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// options holds raw flag values. They override the config file only when
// set on the command line.
type options struct {
	configPath string
	format     string
	output     string
	logLevel   string
	jobs       int

	dcCutoff    float64
	preEmphasis float64

	frameLength   int
	hop           int
	window        string
	mel           bool
	numMelFilters int
	logScale      bool
	reference     float64
	amin          float64
	topDB         float64
	fftBackend    string
	workers       int

	monoMode    string
	maxDuration time.Duration
}

func newRootCmd() *cobra.Command {
	cmd, _ := buildRootCmd()
	return cmd
}

func buildRootCmd() (*cobra.Command, *options) {
	defaults := config.Default()
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "spectro [flags] file.wav [file.wav ...]",
		Short:         "Compute STFT spectrograms of WAV files",
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.Flags(), opts, args, cmd.OutOrStdout())
		},
	}

	flags := rootCmd.Flags()

	// Input/Output
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file; flags override its values")
	flags.StringVarP(&opts.format, "format", "f", "json", "Output format: json or csv")
	flags.StringVarP(&opts.output, "output", "o", "-",
		"Output file for a single input ('-' for stdout), or directory for several inputs")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Number of files processed concurrently")
	flags.StringVar(&opts.monoMode, "mono", transcode.MonoFirstChannel.String(), "Downmix: first or average")
	flags.DurationVar(&opts.maxDuration, "max-duration", 0, "Analyse at most this much audio per file (0: all)")

	// Conditioning
	flags.Float64Var(&opts.dcCutoff, "dc-cutoff", defaults.DCCutoff, "DC blocker cutoff in Hz (0: off)")
	flags.Float64Var(&opts.preEmphasis, "pre-emphasis", defaults.PreEmphasis, "Pre-emphasis coefficient, e.g. 0.97 (0: off)")

	// Spectral Analysis
	flags.IntVarP(&opts.frameLength, "frame-length", "n", defaults.FrameLength, "Samples per frame")
	flags.IntVar(&opts.hop, "hop", defaults.Hop, "Samples between frame starts")
	flags.StringVarP(&opts.window, "window", "w", defaults.Window.String(), "Window: rectangular, hann or hamming")
	flags.StringVar(&opts.fftBackend, "fft-backend", defaults.FFTBackend.String(), "FFT implementation: godsp or gonum")
	flags.IntVar(&opts.workers, "workers", defaults.Workers, "FFT worker goroutines per file (0: automatic)")

	// Mel / dB
	flags.BoolVar(&opts.mel, "mel", defaults.Mel, "Project onto a mel filter bank")
	flags.IntVar(&opts.numMelFilters, "mel-filters", defaults.NumMelFilters, "Number of mel filters")
	flags.BoolVar(&opts.logScale, "log-scale", defaults.LogScale, "Convert power to decibels")
	flags.Float64Var(&opts.reference, "reference", 0, "Power mapped to 0 dB (default: loudest cell)")
	flags.Float64Var(&opts.amin, "amin", defaults.Amin, "Power floor before the logarithm")
	flags.Float64Var(&opts.topDB, "top-db", defaults.TopDB, "Clip output this many dB below the peak (0: off)")

	return rootCmd, opts
}

// resolveConfig layers the config file and explicitly set flags over the
// defaults.
func resolveConfig(flags *pflag.FlagSet, opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	if flags.Changed("dc-cutoff") {
		cfg.DCCutoff = opts.dcCutoff
	}
	if flags.Changed("pre-emphasis") {
		cfg.PreEmphasis = opts.preEmphasis
	}
	if flags.Changed("frame-length") {
		cfg.FrameLength = opts.frameLength
	}
	if flags.Changed("hop") {
		cfg.Hop = opts.hop
	}
	if flags.Changed("window") {
		kind, err := windowing.ParseKind(opts.window)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Window = kind
	}
	if flags.Changed("fft-backend") {
		backend, err := spectral.ParseBackend(opts.fftBackend)
		if err != nil {
			return config.Config{}, err
		}
		cfg.FFTBackend = backend
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("mel") {
		cfg.Mel = opts.mel
	}
	if flags.Changed("mel-filters") {
		cfg.NumMelFilters = opts.numMelFilters
	}
	if flags.Changed("log-scale") {
		cfg.LogScale = opts.logScale
	}
	if flags.Changed("reference") {
		ref := opts.reference
		cfg.Reference = &ref
	}
	if flags.Changed("amin") {
		cfg.Amin = opts.amin
	}
	if flags.Changed("top-db") {
		cfg.TopDB = opts.topDB
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, flags *pflag.FlagSet, opts *options, inputs []string, stdout io.Writer) error {
	level, ok := logging.ParseLevel(opts.logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", opts.logLevel)
	}
	// stdout may carry the result, so every level goes to stderr
	logger := logging.NewWriterLogger(os.Stderr, os.Stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	cfg, err := resolveConfig(flags, opts)
	if err != nil {
		return err
	}
	write, err := writerFor(opts.format)
	if err != nil {
		return err
	}
	monoMode, err := transcode.ParseMonoMode(opts.monoMode)
	if err != nil {
		return err
	}
	if opts.jobs < 1 {
		return fmt.Errorf("jobs must be at least 1: %d", opts.jobs)
	}

	decoder := transcode.NewDecoder(&transcode.DecoderConfig{
		Mono:        true,
		MonoMode:    monoMode,
		MaxDuration: opts.maxDuration,
	})
	pipeline := spectrogram.New()

	process := func(ctx context.Context, input string, out io.Writer) error {
		ctx = logging.ContextWithFields(ctx, logging.Fields{"file": input})

		audio, err := decoder.DecodeFile(input)
		if err != nil {
			return err
		}

		s, err := pipeline.Compute(ctx, spectrogram.SampleBuffer{
			Samples:    audio.PCM,
			SampleRate: audio.SampleRate,
		}, cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}

		logging.WithContext(ctx).Info("Spectrogram computed", logging.Fields{
			"frames":   len(s.Times),
			"rows":     len(s.Frequencies),
			"duration": audio.Duration.String(),
		})
		return write(out, input, s)
	}

	if len(inputs) == 1 && (opts.output == "" || opts.output == "-") {
		return process(ctx, inputs[0], stdout)
	}
	if len(inputs) == 1 {
		return processToFile(ctx, inputs[0], opts.output, process)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for _, input := range inputs {
		g.Go(func() error {
			return processToFile(gctx, input, outputPath(input, opts.output, opts.format), process)
		})
	}
	return g.Wait()
}

// outputPath names the result for input inside dir, or next to the input
// when dir is empty or "-".
func outputPath(input, dir, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".spectrogram." + format
	if dir == "" || dir == "-" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(dir, base)
}

func processToFile(ctx context.Context, input, path string, process func(context.Context, string, io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return process(ctx, input, f)
}
