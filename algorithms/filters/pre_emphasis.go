package filters

import "github.com/RyanBlaney/sonido-spectrogram/algorithms/common"

// PreEmphasis is the first-order high-pass y[n] = x[n] - α*x[n-1]. It
// lifts the high end before spectral analysis; 0.97 is the usual choice
// for speech.
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
	lastSample  float64 // Previous input sample x[n-1]
}

// NewPreEmphasis creates a pre-emphasis filter, 0 < coefficient < 1.
func NewPreEmphasis(coefficient float64) (*PreEmphasis, error) {
	if !(coefficient > 0 && coefficient < 1) {
		return nil, common.InvalidArgument("pre-emphasis coefficient must be in (0, 1): %g", coefficient)
	}
	return &PreEmphasis{coefficient: coefficient}, nil
}

// Process filters one sample.
func (pe *PreEmphasis) Process(input float64) float64 {
	output := input - pe.coefficient*pe.lastSample
	pe.lastSample = input
	return output
}

// ProcessBuffer applies pre-emphasis to an entire buffer of samples.
func (pe *PreEmphasis) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = pe.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state.
func (pe *PreEmphasis) Reset() {
	pe.lastSample = 0.0
}
