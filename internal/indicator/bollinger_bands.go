package indicator

// BollingerBands computes the upper, middle and lower bands: the middle
// band is the simple moving average over the period, the outer bands sit
// k rolling standard deviations away from it.
func BollingerBands(closes []float64, period int, k float64) (upper, middle, lower []float64, err error) {
	middle, err = SMA(closes, period)
	if err != nil {
		return nil, nil, nil, err
	}

	std, err := RollingStd(closes, period)
	if err != nil {
		return nil, nil, nil, err
	}

	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))

	for i := range closes {
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}

	return upper, middle, lower, nil
}
