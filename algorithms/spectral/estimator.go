package spectral

import (
	"context"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-spectrogram/algorithms/common"
	"github.com/RyanBlaney/sonido-spectrogram/algorithms/windowing"
	"github.com/RyanBlaney/sonido-spectrogram/logging"
)

// Estimator windows frames and computes their one-sided power spectra.
// It holds no per-call state and may be shared between goroutines.
type Estimator struct {
	window  *windowing.Window
	backend Backend
	workers int
	logger  logging.Logger
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithBackend selects the FFT implementation.
func WithBackend(b Backend) EstimatorOption {
	return func(e *Estimator) {
		e.backend = b
	}
}

// WithWorkers fixes the number of worker goroutines. n <= 0 keeps the
// automatic choice; 1 processes frames sequentially.
func WithWorkers(n int) EstimatorOption {
	return func(e *Estimator) {
		e.workers = n
	}
}

// WithLogger replaces the component logger.
func WithLogger(l logging.Logger) EstimatorOption {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEstimator creates an estimator for frames of window.Size() samples.
func NewEstimator(window *windowing.Window, opts ...EstimatorOption) (*Estimator, error) {
	if window == nil {
		return nil, common.InvalidArgument("window is required")
	}

	e := &Estimator{
		window:  window,
		backend: BackendGoDSP,
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_estimator",
		}),
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := ParseBackend(e.backend.String()); err != nil {
		return nil, err
	}
	return e, nil
}

// FrameLength returns the frame length the estimator accepts.
func (e *Estimator) FrameLength() int {
	return e.window.Size()
}

// Bins returns the number of one-sided frequency bins, floor(L/2) + 1.
func (e *Estimator) Bins() int {
	return e.window.Size()/2 + 1
}

// EstimateFrame computes the power spectrum of a single frame. The frame is
// not modified.
func (e *Estimator) EstimateFrame(frame []float64) ([]float64, error) {
	windowed, err := e.window.Apply(frame)
	if err != nil {
		return nil, err
	}

	transform, err := newPowerTransform(e.backend, len(frame))
	if err != nil {
		return nil, err
	}

	power := make([]float64, e.Bins())
	transform.Power(power, windowed)
	return power, nil
}

// Estimate computes one power spectrum per frame produced by framer over
// samples. The result is indexed [frame][bin] in frame order regardless of
// which worker finished first. A buffer shorter than one frame yields an
// empty, non-nil result.
func (e *Estimator) Estimate(ctx context.Context, samples []float64, framer *common.Framer) ([][]float64, error) {
	if framer == nil {
		return nil, common.InvalidArgument("framer is required")
	}

	windowSize := e.window.Size()
	if framer.FrameLength() != windowSize {
		err := common.InvalidArgument("window length (%d) doesn't match frame length (%d)", windowSize, framer.FrameLength())
		e.logger.Error(err, "Window/frame mismatch")
		return nil, err
	}

	numFrames := framer.Count(len(samples))
	freqBins := e.Bins()

	// Pre-allocate so that workers write by frame index
	power := make([][]float64, numFrames)
	for i := range numFrames {
		power[i] = make([]float64, freqBins)
	}
	if numFrames == 0 {
		return power, nil
	}

	numWorkers := e.workerCount(numFrames)

	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"frames":  numFrames,
		"bins":    freqBins,
		"hop":     framer.Hop(),
		"workers": numWorkers,
		"backend": e.backend.String(),
	})

	jobs := make(chan int, numFrames)
	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			transform, err := newPowerTransform(e.backend, windowSize)
			if err != nil {
				return
			}

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				if ctx.Err() != nil {
					return
				}

				framer.CopyFrame(frameBuffer, samples, frameIdx)

				// length is fixed above, cannot fail
				_ = e.window.ApplyInPlace(frameBuffer)

				transform.Power(power[frameIdx], frameBuffer)
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("Spectral estimation cancelled")
		return nil, err
	}

	logger.Debug("Spectral estimation complete")
	return power, nil
}

// workerCount determines the number of workers based on workload
func (e *Estimator) workerCount(numFrames int) int {
	if e.workers > 0 {
		return min(e.workers, numFrames)
	}

	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	// For medium workloads, use most CPUs
	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}

// BinFrequencies returns the centre frequency in Hz of each one-sided bin,
// k * sampleRate / frameLength for k = 0..frameLength/2.
func BinFrequencies(frameLength, sampleRate int) []float64 {
	if frameLength <= 0 {
		return []float64{}
	}
	freqs := make([]float64, frameLength/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(frameLength)
	}
	return freqs
}
