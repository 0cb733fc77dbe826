package spectral

import (
	"math"
	"sync"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilter is one triangle of a filter bank, as linear FFT bin indices.
type MelFilter struct {
	Lower  int `json:"lower"`
	Center int `json:"center"`
	Upper  int `json:"upper"`
}

// MelFilterBank projects one-sided power spectra onto mel-spaced triangular
// filters between 0 Hz and Nyquist. It is read-only after construction and
// safe to share between goroutines.
type MelFilterBank struct {
	sampleRate  int
	frameLength int
	filters     []MelFilter
	weights     [][]float64
	centersHz   []float64
}

// NewMelFilterBank builds numFilters triangular filters for spectra of
// frames with frameLength samples at sampleRate. Filter centers must land
// on strictly increasing FFT bins; a configuration where two centers
// collapse onto one bin is rejected rather than silently merged.
func NewMelFilterBank(sampleRate, frameLength, numFilters int) (*MelFilterBank, error) {
	if numFilters < 1 {
		return nil, common.InvalidArgument("number of mel filters must be at least 1: %d", numFilters)
	}
	if sampleRate <= 0 {
		return nil, common.InvalidArgument("sample rate must be positive: %d", sampleRate)
	}
	if frameLength <= 0 {
		return nil, common.InvalidArgument("frame length must be positive: %d", frameLength)
	}

	numBins := frameLength/2 + 1
	if numFilters > numBins {
		return nil, common.InvalidArgument("%d mel filters exceed the %d available frequency bins", numFilters, numBins)
	}

	// Equally spaced mel points from 0 Hz to Nyquist
	lowMel := HzToMel(0)
	highMel := HzToMel(float64(sampleRate) / 2)
	melStep := (highMel - lowMel) / float64(numFilters+1)

	hzPoints := make([]float64, numFilters+2)
	binPoints := make([]int, numFilters+2)
	for i := range hzPoints {
		hzPoints[i] = MelToHz(lowMel + float64(i)*melStep)

		// nearest bin, bin k sits at k*sampleRate/frameLength Hz
		bin := int(math.Round(hzPoints[i] * float64(frameLength) / float64(sampleRate)))
		binPoints[i] = min(max(bin, 0), numBins-1)
	}

	for m := 2; m <= numFilters; m++ {
		if binPoints[m] <= binPoints[m-1] {
			return nil, common.InvalidArgument(
				"mel filters %d and %d share center bin %d; use fewer filters or a longer frame",
				m-2, m-1, binPoints[m])
		}
	}

	bank := &MelFilterBank{
		sampleRate:  sampleRate,
		frameLength: frameLength,
		filters:     make([]MelFilter, numFilters),
		weights:     make([][]float64, numFilters),
		centersHz:   make([]float64, numFilters),
	}

	// Build triangular filters
	for m := 1; m <= numFilters; m++ {
		f := MelFilter{
			Lower:  binPoints[m-1],
			Center: binPoints[m],
			Upper:  binPoints[m+1],
		}
		weights := make([]float64, numBins)

		// Rising edge
		for k := f.Lower + 1; k < f.Center; k++ {
			weights[k] = float64(k-f.Lower) / float64(f.Center-f.Lower)
		}

		weights[f.Center] = 1.0

		// Falling edge
		for k := f.Center + 1; k < f.Upper; k++ {
			weights[k] = float64(f.Upper-k) / float64(f.Upper-f.Center)
		}

		bank.filters[m-1] = f
		bank.weights[m-1] = weights
		bank.centersHz[m-1] = hzPoints[m]
	}

	return bank, nil
}

// NumFilters returns the number of mel filters.
func (b *MelFilterBank) NumFilters() int {
	return len(b.filters)
}

// Bins returns the spectrum length the bank accepts.
func (b *MelFilterBank) Bins() int {
	return b.frameLength/2 + 1
}

// Filters returns a copy of the filter bin layout.
func (b *MelFilterBank) Filters() []MelFilter {
	out := make([]MelFilter, len(b.filters))
	copy(out, b.filters)
	return out
}

// Weights returns a copy of filter m's weight over the linear bins.
func (b *MelFilterBank) Weights(m int) []float64 {
	out := make([]float64, len(b.weights[m]))
	copy(out, b.weights[m])
	return out
}

// CenterFrequencies returns each filter's center frequency in Hz, taken
// from the mel grid before snapping to bins.
func (b *MelFilterBank) CenterFrequencies() []float64 {
	out := make([]float64, len(b.centersHz))
	copy(out, b.centersHz)
	return out
}

// Apply projects a power spectrum onto the bank.
func (b *MelFilterBank) Apply(powerSpectrum []float64) ([]float64, error) {
	if len(powerSpectrum) != b.Bins() {
		return nil, common.InvalidArgument("spectrum has %d bins, filter bank expects %d", len(powerSpectrum), b.Bins())
	}

	melSpectrum := make([]float64, len(b.weights))
	for i, filter := range b.weights {
		melSpectrum[i] = floats.Dot(filter, powerSpectrum)
	}
	return melSpectrum, nil
}

// ApplyFrames projects every frame of a [frame][bin] power matrix.
func (b *MelFilterBank) ApplyFrames(spectra [][]float64) ([][]float64, error) {
	melSpectrogram := make([][]float64, len(spectra))
	for t, spectrum := range spectra {
		mel, err := b.Apply(spectrum)
		if err != nil {
			return nil, err
		}
		melSpectrogram[t] = mel
	}
	return melSpectrogram, nil
}

type melBankKey struct {
	sampleRate, frameLength, numFilters int
}

// MelBankCache memoizes filter banks by (sampleRate, frameLength,
// numFilters). Cached banks are never modified.
type MelBankCache struct {
	mu    sync.Mutex
	banks map[melBankKey]*MelFilterBank
}

// NewMelBankCache creates an empty cache.
func NewMelBankCache() *MelBankCache {
	return &MelBankCache{banks: make(map[melBankKey]*MelFilterBank)}
}

// Get returns the cached bank for the triple, building it on first use.
// Failed builds are not cached.
func (c *MelBankCache) Get(sampleRate, frameLength, numFilters int) (*MelFilterBank, error) {
	key := melBankKey{sampleRate, frameLength, numFilters}

	c.mu.Lock()
	defer c.mu.Unlock()

	if bank, ok := c.banks[key]; ok {
		return bank, nil
	}

	bank, err := NewMelFilterBank(sampleRate, frameLength, numFilters)
	if err != nil {
		return nil, err
	}
	c.banks[key] = bank
	return bank, nil
}

// Len returns the number of cached banks.
func (c *MelBankCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.banks)
}
