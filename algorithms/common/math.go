package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Matrix helpers shared by the spectral packages, built on gonum/floats.

// MatrixMax returns the largest value across all rows. Empty rows are
// skipped; ok is false when the matrix holds no values at all.
func MatrixMax(m [][]float64) (max float64, ok bool) {
	max = math.Inf(-1)
	for _, row := range m {
		if len(row) == 0 {
			continue
		}
		if v := floats.Max(row); v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, false
	}
	return max, true
}

// MatrixSize returns the number of values across all rows.
func MatrixSize(m [][]float64) int {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	return n
}

// ArgMax returns the index of the largest value, or -1 for empty data.
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// RMS calculates root mean square value
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// Peak returns the largest absolute sample value.
func Peak(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Max(math.Abs(floats.Max(data)), math.Abs(floats.Min(data)))
}

// Transpose converts a rows x cols matrix into cols x rows. cols must be
// given explicitly so that a matrix with zero rows still yields cols empty
// rows.
func Transpose(m [][]float64, cols int) [][]float64 {
	out := make([][]float64, cols)
	for c := range out {
		out[c] = make([]float64, len(m))
		for r, row := range m {
			out[c][r] = row[c]
		}
	}
	return out
}
