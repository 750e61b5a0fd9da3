package registry

// EWMA folds a new sample into an exponentially weighted moving average.
// A zero current value is treated as unseeded and the sample is adopted
// directly, so the first observation is not dragged toward zero.
func EWMA(current, sample, weight float64) float64 {
	if current == 0 {
		return sample
	}
	return current*(1-weight) + sample*weight
}
