package windowing

// rectangular returns a boxcar window, all ones.
func rectangular(size int) []float64 {
	coefficients := make([]float64, size)
	for i := range coefficients {
		coefficients[i] = 1.0
	}
	return coefficients
}
