package indicators

// EMASeries computes the exponential moving average of values with the given
// span. Alpha is 2/(span+1) and the series is seeded at the first value, so
// output[0] == values[0].
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}
