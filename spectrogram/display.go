package spectrogram

import (
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
)

// WindowedSignal applies a window of the given size to consecutive,
// non-overlapping blocks of samples, for plotting the windowed waveform.
// The output has the same length as samples; a tail shorter than one
// block is left at zero.
func WindowedSignal(samples []float64, kind windowing.Kind, size int) ([]float64, error) {
	window, err := windowing.New(kind, size)
	if err != nil {
		return nil, err
	}
	framer, err := common.NewFramer(size, size)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	for i, block := range framer.Frames(samples) {
		if err := window.ApplyInPlace(block); err != nil {
			return nil, err
		}
		copy(out[i*size:], block)
	}
	return out, nil
}
