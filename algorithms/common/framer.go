package common

import "iter"

// Framer slices a sample buffer into fixed-length frames whose start
// positions advance by a fixed hop. hop == frameLength gives disjoint
// blocks, hop < frameLength gives overlapping frames. A trailing partial
// frame is dropped, never padded.
type Framer struct {
	frameLength int
	hop         int
}

// NewFramer creates a framer. Requires frameLength >= hop > 0.
func NewFramer(frameLength, hop int) (*Framer, error) {
	if frameLength <= 0 {
		return nil, InvalidArgument("frame length must be positive: %d", frameLength)
	}
	if hop <= 0 {
		return nil, InvalidArgument("hop must be positive: %d", hop)
	}
	if hop > frameLength {
		return nil, InvalidArgument("hop (%d) must not exceed frame length (%d)", hop, frameLength)
	}
	return &Framer{frameLength: frameLength, hop: hop}, nil
}

// FrameLength returns the number of samples per frame.
func (f *Framer) FrameLength() int {
	return f.frameLength
}

// Hop returns the stride between frame starts.
func (f *Framer) Hop() int {
	return f.hop
}

// Count returns the number of full frames in a buffer of n samples.
func (f *Framer) Count(n int) int {
	if n < f.frameLength {
		return 0
	}
	return (n-f.frameLength)/f.hop + 1
}

// Frame returns a copy of frame i. The caller must keep i below Count.
func (f *Framer) Frame(samples []float64, i int) []float64 {
	frame := make([]float64, f.frameLength)
	f.CopyFrame(frame, samples, i)
	return frame
}

// CopyFrame copies frame i into dst, which must hold FrameLength samples,
// so that a caller can reuse one buffer across frames. The caller must
// keep i below Count.
func (f *Framer) CopyFrame(dst, samples []float64, i int) {
	start := i * f.hop
	copy(dst[:f.frameLength], samples[start:start+f.frameLength])
}

// Frames returns a lazy sequence of (index, frame) pairs. Each frame is a
// fresh copy; ranging over the sequence again starts from frame 0.
func (f *Framer) Frames(samples []float64) iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		n := f.Count(len(samples))
		for i := range n {
			if !yield(i, f.Frame(samples, i)) {
				return
			}
		}
	}
}

// Split materializes every frame.
func (f *Framer) Split(samples []float64) [][]float64 {
	frames := make([][]float64, 0, f.Count(len(samples)))
	for _, frame := range f.Frames(samples) {
		frames = append(frames, frame)
	}
	return frames
}
