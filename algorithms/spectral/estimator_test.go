package spectral

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	goleak.VerifyTestMain(m)
}

var backends = []Backend{BackendGoDSP, BackendGonum}

func sine(freq float64, sampleRate, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return s
}

func noise(seed uint64, n int) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

func newEstimator(t *testing.T, kind windowing.Kind, size int, opts ...EstimatorOption) *Estimator {
	t.Helper()
	w, err := windowing.New(kind, size)
	require.NoError(t, err)
	e, err := NewEstimator(w, opts...)
	require.NoError(t, err)
	return e
}

func TestEstimateFrameLength(t *testing.T) {
	for _, b := range backends {
		for _, size := range []int{1, 2, 3, 7, 8, 100, 255, 256, 1024} {
			e := newEstimator(t, windowing.Hann, size, WithBackend(b))
			power, err := e.EstimateFrame(noise(uint64(size), size))
			require.NoError(t, err)
			assert.Len(t, power, size/2+1, "%s/%d", b, size)
			assert.Equal(t, size/2+1, e.Bins())
		}
	}
}

func TestSinePeakBin(t *testing.T) {
	const (
		sampleRate = 8000
		size       = 1024
	)
	want := int(math.Round(1000 * size / sampleRate))

	for _, b := range backends {
		e := newEstimator(t, windowing.Rectangular, size, WithBackend(b))
		power, err := e.EstimateFrame(sine(1000, sampleRate, size))
		require.NoError(t, err)

		assert.Equal(t, want, common.ArgMax(power), b.String())
		assert.InDelta(t, float64(size*size)/4, power[want], 1e-6*float64(size*size))
	}
}

func TestParsevalRectangular(t *testing.T) {
	for _, b := range backends {
		for _, size := range []int{16, 100, 512} {
			x := noise(7, size)
			e := newEstimator(t, windowing.Rectangular, size, WithBackend(b))
			power, err := e.EstimateFrame(x)
			require.NoError(t, err)

			energy := 0.0
			for _, v := range x {
				energy += v * v
			}

			total := power[0]
			last := len(power) - 1
			for k := 1; k < last; k++ {
				total += 2 * power[k]
			}
			if size%2 == 0 {
				total += power[last]
			} else {
				total += 2 * power[last]
			}

			assert.InDelta(t, float64(size)*energy, total, 1e-8*float64(size)*energy, "%s/%d", b, size)
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	for _, size := range []int{64, 1000, 1024} {
		x := noise(11, size)
		a, err := newEstimator(t, windowing.Hamming, size, WithBackend(BackendGoDSP)).EstimateFrame(x)
		require.NoError(t, err)
		b, err := newEstimator(t, windowing.Hamming, size, WithBackend(BackendGonum)).EstimateFrame(x)
		require.NoError(t, err)

		require.Len(t, b, len(a))
		for k := range a {
			assert.InDelta(t, a[k], b[k], 1e-9*(1+a[k]), "size %d bin %d", size, k)
		}
	}
}

func TestEstimatePreservesFrameOrder(t *testing.T) {
	samples := noise(3, 40000)
	framer, err := common.NewFramer(256, 100)
	require.NoError(t, err)

	sequential, err := newEstimator(t, windowing.Hann, 256, WithWorkers(1)).
		Estimate(context.Background(), samples, framer)
	require.NoError(t, err)
	require.Len(t, sequential, framer.Count(len(samples)))

	for _, opts := range [][]EstimatorOption{
		{WithWorkers(4)},
		{WithWorkers(64)},
		{},
		{WithBackend(BackendGonum), WithWorkers(3)},
	} {
		parallel, err := newEstimator(t, windowing.Hann, 256, opts...).
			Estimate(context.Background(), samples, framer)
		require.NoError(t, err)
		require.Len(t, parallel, len(sequential))
		for i := range sequential {
			for k := range sequential[i] {
				require.InDelta(t, sequential[i][k], parallel[i][k], 1e-9*(1+sequential[i][k]), "frame %d bin %d", i, k)
			}
		}
	}

	e := newEstimator(t, windowing.Hann, 256)
	for i, frame := range framer.Frames(samples) {
		single, err := e.EstimateFrame(frame)
		require.NoError(t, err)
		assert.Equal(t, single, sequential[i], "frame %d", i)
	}
}

func TestEstimateDoesNotModifySamples(t *testing.T) {
	samples := noise(5, 2048)
	orig := append([]float64(nil), samples...)

	framer, err := common.NewFramer(512, 256)
	require.NoError(t, err)
	_, err = newEstimator(t, windowing.Hamming, 512).Estimate(context.Background(), samples, framer)
	require.NoError(t, err)

	assert.Equal(t, orig, samples)
}

func TestEstimateWindowFrameMismatch(t *testing.T) {
	framer, err := common.NewFramer(1024, 512)
	require.NoError(t, err)

	_, err = newEstimator(t, windowing.Hann, 512).Estimate(context.Background(), noise(1, 4096), framer)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	_, err = newEstimator(t, windowing.Hann, 512).Estimate(context.Background(), noise(1, 4096), nil)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	_, err = newEstimator(t, windowing.Hann, 512).EstimateFrame(make([]float64, 100))
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

func TestEstimateShortBuffer(t *testing.T) {
	framer, err := common.NewFramer(1024, 512)
	require.NoError(t, err)

	power, err := newEstimator(t, windowing.Hann, 1024).Estimate(context.Background(), make([]float64, 1000), framer)
	require.NoError(t, err)
	assert.NotNil(t, power)
	assert.Empty(t, power)
}

func TestEstimateCancelled(t *testing.T) {
	framer, err := common.NewFramer(256, 128)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newEstimator(t, windowing.Hann, 256, WithWorkers(2)).Estimate(ctx, noise(9, 10000), framer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEstimatorValidation(t *testing.T) {
	_, err := NewEstimator(nil)
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	w, err := windowing.New(windowing.Hann, 8)
	require.NoError(t, err)
	_, err = NewEstimator(w, WithBackend(Backend(9)))
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))
}

func TestBinFrequencies(t *testing.T) {
	freqs := BinFrequencies(1024, 8000)
	require.Len(t, freqs, 513)
	assert.Equal(t, 0.0, freqs[0])
	assert.Equal(t, 1000.0, freqs[128])
	assert.Equal(t, 4000.0, freqs[512])

	assert.Len(t, BinFrequencies(7, 700), 4)
	assert.Empty(t, BinFrequencies(0, 8000))
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, BackendGoDSP, b)

	b, err = ParseBackend("Gonum")
	require.NoError(t, err)
	assert.Equal(t, BackendGonum, b)

	_, err = ParseBackend("fftw")
	assert.True(t, errors.Is(err, common.ErrInvalidArgument))

	text, err := BackendGonum.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "gonum", string(text))

	var round Backend
	require.NoError(t, round.UnmarshalText(text))
	assert.Equal(t, BackendGonum, round)
}

func BenchmarkEstimate(b *testing.B) {
	samples := noise(1, 44100*5)
	w, _ := windowing.New(windowing.Hann, 1024)
	framer, _ := common.NewFramer(1024, 512)

	for _, backend := range backends {
		e, _ := NewEstimator(w, WithBackend(backend))
		b.Run(backend.String(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_, _ = e.Estimate(context.Background(), samples, framer)
			}
		})
	}
}
