package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i)
	}
	return s
}

func TestNewFramerRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name        string
		length, hop int
	}{
		{"zero length", 0, 1},
		{"negative length", -4, 1},
		{"zero hop", 8, 0},
		{"negative hop", 8, -1},
		{"hop beyond length", 8, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFramer(tt.length, tt.hop)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestFramerCountMatchesFormula(t *testing.T) {
	for _, length := range []int{1, 2, 7, 16, 64} {
		for hop := 1; hop <= length; hop++ {
			f, err := NewFramer(length, hop)
			require.NoError(t, err)

			for n := length; n < length*4+3; n++ {
				want := (n-length)/hop + 1
				require.Equal(t, want, f.Count(n), "L=%d hop=%d n=%d", length, hop, n)
			}
			assert.Zero(t, f.Count(length-1))
		}
	}
}

func TestFramerFramesStartAtHopMultiples(t *testing.T) {
	samples := ramp(100)
	f, err := NewFramer(16, 6)
	require.NoError(t, err)

	count := 0
	for i, frame := range f.Frames(samples) {
		require.Len(t, frame, 16)
		assert.Equal(t, samples[i*6], frame[0])
		assert.Equal(t, samples[i*6+15], frame[15])
		count++
	}
	assert.Equal(t, f.Count(len(samples)), count)
}

func TestFramerCopiesFrames(t *testing.T) {
	samples := ramp(8)
	f, err := NewFramer(4, 4)
	require.NoError(t, err)

	frames := f.Split(samples)
	require.Len(t, frames, 2)

	frames[0][0] = 99
	assert.Equal(t, 0.0, samples[0])
}

func TestFramerIsRestartable(t *testing.T) {
	samples := ramp(20)
	f, err := NewFramer(8, 4)
	require.NoError(t, err)

	seq := f.Frames(samples)
	var first, second [][]float64
	for _, fr := range seq {
		first = append(first, fr)
	}
	for _, fr := range seq {
		second = append(second, fr)
	}
	assert.Equal(t, first, second)

	// early stop must not panic
	for i := range seq {
		if i == 1 {
			break
		}
	}
}

func TestFramerShortBufferYieldsNothing(t *testing.T) {
	f, err := NewFramer(1024, 512)
	require.NoError(t, err)

	assert.Empty(t, f.Split(ramp(1000)))
	assert.Empty(t, f.Split(nil))
}

func TestFramerDropsTail(t *testing.T) {
	f, err := NewFramer(4, 4)
	require.NoError(t, err)

	frames := f.Split(ramp(11))
	require.Len(t, frames, 2)
	assert.Equal(t, []float64{4, 5, 6, 7}, frames[1])
}

func TestFramerCopyFrameReusesBuffer(t *testing.T) {
	samples := ramp(20)
	f, err := NewFramer(8, 3)
	require.NoError(t, err)

	buf := make([]float64, 8)
	for i := range f.Count(len(samples)) {
		f.CopyFrame(buf, samples, i)
		assert.Equal(t, f.Frame(samples, i), buf, "frame %d", i)
	}

	buf[0] = -1
	assert.Equal(t, 12.0, samples[12], "source must not alias the buffer")
}
