package windowing

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
)

// Kind identifies a window function. It is resolved once from its name and
// switched on when coefficients are generated, never per sample.
type Kind int

const (
	Rectangular Kind = iota + 1
	Hann
	Hamming
)

// Kinds lists every supported window kind.
var Kinds = []Kind{Rectangular, Hann, Hamming}

func (k Kind) String() string {
	switch k {
	case Rectangular:
		return "rectangular"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k == Rectangular || k == Hann || k == Hamming
}

// ParseKind resolves a window name. Matching is case-insensitive and
// accepts the numpy/scipy aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rectangular", "rect", "boxcar", "ones":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	default:
		return 0, common.InvalidArgument("unsupported window kind: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, common.InvalidArgument("unsupported window kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Window is an immutable set of window coefficients.
type Window struct {
	kind         Kind
	coefficients []float64
}

// New generates the coefficients of a window of the given kind and size.
func New(kind Kind, size int) (*Window, error) {
	if size <= 0 {
		return nil, common.InvalidArgument("window size must be positive: %d", size)
	}

	var coefficients []float64
	switch kind {
	case Rectangular:
		coefficients = rectangular(size)
	case Hann:
		coefficients = hann(size)
	case Hamming:
		coefficients = hamming(size)
	default:
		return nil, common.InvalidArgument("unsupported window kind: %d", int(kind))
	}

	return &Window{kind: kind, coefficients: coefficients}, nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window size
func (w *Window) Size() int {
	return len(w.coefficients)
}

// Kind returns the window kind
func (w *Window) Kind() Kind {
	return w.kind
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) ([]float64, error) {
	windowed := make([]float64, len(signal))
	copy(windowed, signal)
	if err := w.ApplyInPlace(windowed); err != nil {
		return nil, err
	}
	return windowed, nil
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != len(w.coefficients) {
		return common.InvalidArgument("signal length (%d) doesn't match window size (%d)", len(signal), len(w.coefficients))
	}

	if w.kind == Rectangular {
		return nil
	}
	for i, c := range w.coefficients {
		signal[i] *= c
	}
	return nil
}

// CoherentGain returns the mean coefficient, the amplitude gain a windowed
// sinusoid sees at its own bin.
func (w *Window) CoherentGain() float64 {
	sum := 0.0
	for _, c := range w.coefficients {
		sum += c
	}
	return sum / float64(len(w.coefficients))
}

// Energy returns the sum of squared coefficients.
func (w *Window) Energy() float64 {
	sum := 0.0
	for _, c := range w.coefficients {
		sum += c * c
	}
	return sum
}
