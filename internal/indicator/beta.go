package indicator

// Beta computes the hedge ratio of leg A against benchmark leg B as the
// OLS slope of A's simple returns on B's simple returns:
// cov(rA, rB) / var(rB). The two price series are aligned on their last
// min(lenA, lenB) observations.
//
// Returns false when the window has fewer than 2 prices, contains a zero
// price, or the benchmark returns have zero variance. Callers must treat
// false as "cannot currently trade this pair", not as beta == 0.
func Beta(pricesA, pricesB []float64) (float64, bool) {
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	pA := tail(pricesA, n)
	pB := tail(pricesB, n)

	returnsA, ok := SimpleReturns(pA)
	if !ok {
		return 0, false
	}
	returnsB, ok := SimpleReturns(pB)
	if !ok {
		return 0, false
	}

	meanA := Mean(returnsA)
	meanB := Mean(returnsB)

	var covariance, varianceB float64
	for i := range returnsA {
		dA := returnsA[i] - meanA
		dB := returnsB[i] - meanB
		covariance += dA * dB
		varianceB += dB * dB
	}
	covariance /= float64(len(returnsA))
	varianceB /= float64(len(returnsB))

	if varianceB == 0 {
		return 0, false
	}
	return covariance / varianceB, true
}
