// Package spectrogram turns a mono sample buffer into a time-frequency
// matrix: overlapping frames are windowed, transformed to one-sided power
// spectra, optionally projected onto a mel filter bank and optionally
// expressed in decibels.
package spectrogram

import (
	"math"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidArgument is wrapped by every validation failure.
var ErrInvalidArgument = common.ErrInvalidArgument

// SampleBuffer is a mono PCM buffer. Downmixing happens before this point.
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b SampleBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

func (b SampleBuffer) validate() error {
	if len(b.Samples) == 0 {
		return common.InvalidArgument("sample buffer is empty")
	}
	if b.SampleRate <= 0 {
		return common.InvalidArgument("sample rate must be positive: %d", b.SampleRate)
	}
	for i, v := range b.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return common.InvalidArgument("sample %d is not finite: %g", i, v)
		}
	}
	return nil
}

// Spectrogram is a [len(Frequencies)][len(Times)] matrix of power (or dB
// when LogScale is set) with its axes.
type Spectrogram struct {
	// Frequencies holds the bin frequency in Hz, or each mel filter's
	// center frequency in Hz when Mel is set.
	Frequencies []float64 `json:"frequencies"`
	// Times holds each frame's start in seconds, i * hop / sampleRate.
	Times  []float64   `json:"times"`
	Matrix [][]float64 `json:"matrix"`

	SampleRate  int            `json:"sample_rate"`
	FrameLength int            `json:"frame_length"`
	Hop         int            `json:"hop"`
	Window      windowing.Kind `json:"window"`
	Mel         bool           `json:"mel"`
	LogScale    bool           `json:"log_scale"`
	// Reference is the power mapped to 0 dB; zero unless LogScale.
	Reference float64 `json:"reference,omitempty"`
}

// Shape returns the number of frequency rows and time columns.
func (s *Spectrogram) Shape() (rows, cols int) {
	return len(s.Frequencies), len(s.Times)
}

// Empty reports whether the spectrogram has no frames.
func (s *Spectrogram) Empty() bool {
	return len(s.Times) == 0
}

// Column returns a copy of frame t across all frequencies.
func (s *Spectrogram) Column(t int) []float64 {
	col := make([]float64, len(s.Matrix))
	for f, row := range s.Matrix {
		col[f] = row[t]
	}
	return col
}

// Dense copies the matrix into a gonum dense matrix. It returns nil for an
// empty spectrogram since gonum has no zero-sized matrices.
func (s *Spectrogram) Dense() *mat.Dense {
	rows, cols := s.Shape()
	if rows == 0 || cols == 0 {
		return nil
	}

	data := make([]float64, 0, rows*cols)
	for _, row := range s.Matrix {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
