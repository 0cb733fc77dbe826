package spectral

import (
	"strings"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend selects the FFT implementation used for spectral estimation.
type Backend int

const (
	// BackendGoDSP uses mjibson/go-dsp, which handles every frame length
	// (Bluestein for non powers of two).
	BackendGoDSP Backend = iota
	// BackendGonum uses gonum's real FFT with one reusable plan per worker.
	BackendGonum
)

func (b Backend) String() string {
	switch b {
	case BackendGoDSP:
		return "godsp"
	case BackendGonum:
		return "gonum"
	default:
		return "unknown"
	}
}

// ParseBackend resolves a backend name; the empty string selects go-dsp.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "godsp", "go-dsp":
		return BackendGoDSP, nil
	case "gonum":
		return BackendGonum, nil
	default:
		return 0, common.InvalidArgument("unsupported fft backend: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	if b != BackendGoDSP && b != BackendGonum {
		return nil, common.InvalidArgument("unsupported fft backend: %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// powerTransform writes the one-sided power spectrum |X[k]|^2, k = 0..n/2,
// of a real frame of length n into dst. Implementations are not safe for
// concurrent use; each worker owns one.
type powerTransform interface {
	Power(dst, frame []float64)
}

func newPowerTransform(backend Backend, n int) (powerTransform, error) {
	switch backend {
	case BackendGoDSP:
		return goDSPTransform{}, nil
	case BackendGonum:
		return &gonumTransform{
			plan:   fourier.NewFFT(n),
			coeffs: make([]complex128, n/2+1),
		}, nil
	default:
		return nil, common.InvalidArgument("unsupported fft backend: %d", int(backend))
	}
}

type goDSPTransform struct{}

func (goDSPTransform) Power(dst, frame []float64) {
	// mjibson/go-dsp handles all sizes efficiently, including non-power-of-2
	spectrum := fft.FFTReal(frame)
	for k := range dst {
		re, im := real(spectrum[k]), imag(spectrum[k])
		dst[k] = re*re + im*im
	}
}

type gonumTransform struct {
	plan   *fourier.FFT
	coeffs []complex128
}

func (g *gonumTransform) Power(dst, frame []float64) {
	g.coeffs = g.plan.Coefficients(g.coeffs, frame)
	for k := range dst {
		re, im := real(g.coeffs[k]), imag(g.coeffs[k])
		dst[k] = re*re + im*im
	}
}
