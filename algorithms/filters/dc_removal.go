// Package filters holds the time-domain conditioning applied to samples
// before framing.
package filters

import (
	"math"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
)

// DCRemoval is a one-pole DC blocking filter,
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)

	// State variables
	x1 float64 // Previous input sample x[n-1]
	y1 float64 // Previous output sample y[n-1]
}

// NewDCRemoval creates a DC blocker with an approximate -3 dB cutoff at
// cutoffFreq Hz, using R = 1 - 2*pi*fc/fs.
func NewDCRemoval(sampleRate int, cutoffFreq float64) (*DCRemoval, error) {
	if sampleRate <= 0 {
		return nil, common.InvalidArgument("sample rate must be positive: %d", sampleRate)
	}
	if !(cutoffFreq > 0) {
		return nil, common.InvalidArgument("dc cutoff must be positive: %g", cutoffFreq)
	}

	r := 1.0 - 2.0*math.Pi*cutoffFreq/float64(sampleRate)
	if r <= 0 {
		return nil, common.InvalidArgument("dc cutoff %g Hz is too high for %d Hz audio", cutoffFreq, sampleRate)
	}
	return &DCRemoval{poleLocation: r}, nil
}

// Process filters one sample.
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters input into a new slice, continuing from the
// current state.
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter's internal state.
// Call this when processing discontinuous audio segments.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// PoleLocation returns R.
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}
