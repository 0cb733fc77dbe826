// Package transcode loads PCM audio from WAV files into float64 sample
// buffers in [-1, 1).
package transcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM is the WAVE_FORMAT_PCM tag of the fmt chunk.
const wavFormatPCM = 1

// ErrInvalidWAV is returned for input that is not an integer PCM WAV file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // interleaved when Channels > 1
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	BitDepth   int           `json:"bit_depth"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"`
}

// Frames returns the number of samples per channel.
func (a *AudioData) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// MonoMode selects how multi-channel audio is reduced to one channel.
type MonoMode int

const (
	// MonoFirstChannel keeps channel 0 and drops the rest.
	MonoFirstChannel MonoMode = iota
	// MonoAverage averages all channels per sample frame.
	MonoAverage
)

func (m MonoMode) String() string {
	switch m {
	case MonoFirstChannel:
		return "first"
	case MonoAverage:
		return "average"
	default:
		return "unknown"
	}
}

// ParseMonoMode resolves a downmix name; the empty string selects
// MonoFirstChannel.
func ParseMonoMode(name string) (MonoMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first", "left":
		return MonoFirstChannel, nil
	case "average", "mean", "mix":
		return MonoAverage, nil
	default:
		return 0, common.InvalidArgument("unsupported mono mode: %q", name)
	}
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// Mono downmixes the decoded audio to a single channel.
	Mono     bool     `json:"mono" yaml:"mono"`
	MonoMode MonoMode `json:"mono_mode" yaml:"mono_mode"`
	// MaxDuration truncates longer files. Zero means no limit.
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		Mono:        true,
		MonoMode:    MonoFirstChannel,
		MaxDuration: 0, // No limit
	}
}

// Decoder reads WAV files with go-audio.
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes the WAV file at filename.
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	logger.Debug("Starting audio file decode")

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, fmt.Errorf("open %q: %w", filename, err)
	}
	defer f.Close()

	data, err := d.DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", filename, err)
	}
	data.Source = filename
	return data, nil
}

// DecodeReader decodes a WAV stream. go-audio needs to seek between
// chunks, hence io.ReadSeeker.
func (d *Decoder) DecodeReader(r io.ReadSeeker) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeReader",
	})

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: unsupported audio format tag %d", ErrInvalidWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		logger.Error(err, "Failed to read PCM buffer")
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format information", ErrInvalidWAV)
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidWAV)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": buf.Format.SampleRate,
		"input_channels":    buf.Format.NumChannels,
		"input_bit_depth":   bitDepth,
		"input_samples":     len(buf.Data),
	})

	pcm, err := normalize(buf, bitDepth)
	if err != nil {
		return nil, err
	}

	data := &AudioData{
		PCM:        pcm,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   bitDepth,
	}

	if limit := d.config.MaxDuration; limit > 0 {
		maxFrames := int(int64(limit) * int64(data.SampleRate) / int64(time.Second))
		if data.Frames() > maxFrames {
			data.PCM = data.PCM[:maxFrames*data.Channels]
		}
	}

	if d.config.Mono && data.Channels > 1 {
		data.PCM = Downmix(data.PCM, data.Channels, d.config.MonoMode)
		data.Channels = 1
	}

	data.Duration = time.Duration(data.Frames()) * time.Second / time.Duration(data.SampleRate)
	return data, nil
}

// normalize maps integer PCM to [-1, 1). 8-bit WAV is unsigned with its
// midpoint at 128; wider depths are signed.
func normalize(buf *audio.IntBuffer, bitDepth int) ([]float64, error) {
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = (float64(v) - offset) / scale
	}
	return out, nil
}

// Downmix reduces interleaved multi-channel samples to mono. A trailing
// partial sample frame is dropped.
func Downmix(interleaved []float64, channels int, mode MonoMode) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := range frames {
		frame := interleaved[i*channels : (i+1)*channels]
		switch mode {
		case MonoAverage:
			sum := 0.0
			for _, v := range frame {
				sum += v
			}
			out[i] = sum / float64(channels)
		default:
			out[i] = frame[0]
		}
	}
	return out
}

// LoadWAV decodes the file at path to mono with the default settings.
func LoadWAV(path string) (*AudioData, error) {
	return NewDecoder(nil).DecodeFile(path)
}

// DecodeWAV decodes a WAV stream to mono with the default settings.
func DecodeWAV(r io.ReadSeeker) (*AudioData, error) {
	return NewDecoder(nil).DecodeReader(r)
}
