package windowing

import "math"

// hann returns symmetric Hann coefficients,
// 0.5 * (1 - cos(2*pi*n/(N-1))). A single point window is [1].
func hann(size int) []float64 {
	coefficients := make([]float64, size)
	if size == 1 {
		coefficients[0] = 1.0
		return coefficients
	}

	denominator := float64(size - 1)
	// mirrored so that w[n] == w[N-1-n] holds exactly
	for i := 0; i < (size+1)/2; i++ {
		c := 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
		coefficients[i] = c
		coefficients[size-1-i] = c
	}
	return coefficients
}
