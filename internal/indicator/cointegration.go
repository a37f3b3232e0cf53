package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when a test window is too short to
// produce a trustworthy statistic.
var ErrInsufficientData = errors.New("insufficient data")

// MinCointegrationObservations is the smallest window the Engle-Granger
// test accepts; below it the test refuses rather than emitting a
// misleading statistic.
const MinCointegrationObservations = 30

// CointegrationResult is the outcome of an Engle-Granger test.
//
// PValue is an informal approximation built by interpolating between the
// tabulated 1%/5%/10% critical values; downstream consumers rely on its
// ordering, not its absolute calibration.
type CointegrationResult struct {
	TStat        float64 `json:"t_stat"`
	PValue       float64 `json:"p_value"`
	Cointegrated bool    `json:"cointegrated"`
}

type criticalValues struct {
	pct1, pct5, pct10 float64
}

// Engle-Granger critical values for two variables, by sample size.
var cointCriticalValues = []struct {
	size int
	cv   criticalValues
}{
	{100, criticalValues{-4.07, -3.37, -3.07}},
	{200, criticalValues{-4.00, -3.34, -3.04}},
	{500, criticalValues{-3.96, -3.32, -3.02}},
	{1000, criticalValues{-3.93, -3.30, -3.01}},
}

// EngleGranger tests the two price series for cointegration: OLS of B on
// A, then an augmented Dickey-Fuller test on the regression residuals.
// The series are aligned on their last min(lenA, lenB) observations.
//
// Returns ErrInsufficientData below MinCointegrationObservations, and a
// plain error for degenerate input (non-finite values, constant series).
func EngleGranger(pricesA, pricesB []float64) (CointegrationResult, error) {
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	if n < MinCointegrationObservations {
		return CointegrationResult{}, fmt.Errorf(
			"engle-granger: need at least %d observations, got %d: %w",
			MinCointegrationObservations, n, ErrInsufficientData)
	}

	pA := tail(pricesA, n)
	pB := tail(pricesB, n)

	if err := validateSeries(pA); err != nil {
		return CointegrationResult{}, fmt.Errorf("engle-granger: series A: %w", err)
	}
	if err := validateSeries(pB); err != nil {
		return CointegrationResult{}, fmt.Errorf("engle-granger: series B: %w", err)
	}

	// Step 1: cointegrating regression B = alpha + beta*A.
	slope, intercept := olsFit(pA, pB)

	// Step 2: residual series.
	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = pB[i] - (intercept + slope*pA[i])
	}

	// Step 3: stationarity of residuals.
	tStat, err := adfTStat(residuals)
	if err != nil {
		return CointegrationResult{}, fmt.Errorf("engle-granger: %w", err)
	}

	cv := criticalValuesForSize(n)
	pValue := approximatePValue(tStat, cv)

	return CointegrationResult{
		TStat:        tStat,
		PValue:       pValue,
		Cointegrated: pValue <= 0.05,
	}, nil
}

func validateSeries(data []float64) error {
	first := data[0]
	if math.IsNaN(first) || math.IsInf(first, 0) {
		return fmt.Errorf("invalid value at index 0: %v", first)
	}
	constant := true
	for i := 1; i < len(data); i++ {
		v := data[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid value at index %d: %v", i, v)
		}
		if constant && v != first {
			constant = false
		}
	}
	if constant {
		return errors.New("series is constant")
	}
	return nil
}

// olsFit fits y = intercept + slope*x by ordinary least squares.
func olsFit(x, y []float64) (slope, intercept float64) {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}
	meanX := sumX / n
	meanY := sumY / n
	slope = (sumXY - n*meanX*meanY) / (sumX2 - n*meanX*meanX)
	intercept = meanY - slope*meanX
	return slope, intercept
}

// adfTStat runs an augmented Dickey-Fuller regression on the series:
// diff_t = c + gamma*level_{t-1} + sum(phi_i * diff_{t-i}) and returns
// the t-statistic of gamma. Lag count follows the n^(1/3) rule.
func adfTStat(series []float64) (float64, error) {
	n := len(series)
	lags := int(math.Floor(math.Cbrt(float64(n))))
	if lags < 1 {
		lags = 1
	}

	startIndex := lags + 1
	numObs := n - startIndex
	numCols := lags + 2 // constant + lagged level + lagged diffs
	if numObs < 10 {
		return 0, fmt.Errorf("adf: %d usable observations: %w", numObs, ErrInsufficientData)
	}

	X := make([][]float64, numObs)
	y := make([]float64, numObs)
	for i := 0; i < numObs; i++ {
		t := startIndex + i
		y[i] = series[t] - series[t-1]

		row := make([]float64, numCols)
		row[0] = 1
		row[1] = series[t-1]
		for lag := 1; lag <= lags; lag++ {
			row[lag+1] = series[t-lag] - series[t-lag-1]
		}
		X[i] = row
	}

	// Normal equations: beta = (X'X)^-1 X'y.
	xtx := make([][]float64, numCols)
	xty := make([]float64, numCols)
	for i := 0; i < numCols; i++ {
		xtx[i] = make([]float64, numCols)
		for j := 0; j < numCols; j++ {
			var s float64
			for k := 0; k < numObs; k++ {
				s += X[k][i] * X[k][j]
			}
			xtx[i][j] = s
		}
		var s float64
		for k := 0; k < numObs; k++ {
			s += X[k][i] * y[k]
		}
		xty[i] = s
	}

	inv, err := invertMatrix(xtx)
	if err != nil {
		return 0, fmt.Errorf("adf: %w", err)
	}

	beta := make([]float64, numCols)
	for i := 0; i < numCols; i++ {
		for j := 0; j < numCols; j++ {
			beta[i] += inv[i][j] * xty[j]
		}
	}

	// Residual variance and the standard error of the lagged-level
	// coefficient (index 1).
	var ssr float64
	for k := 0; k < numObs; k++ {
		pred := 0.0
		for j := 0; j < numCols; j++ {
			pred += X[k][j] * beta[j]
		}
		r := y[k] - pred
		ssr += r * r
	}
	variance := ssr / float64(numObs-numCols)
	se := math.Sqrt(inv[1][1] * variance)
	if se == 0 || math.IsNaN(se) {
		return 0, errors.New("adf: degenerate standard error")
	}

	return beta[1] / se, nil
}

// invertMatrix inverts a small square matrix by Gauss-Jordan elimination
// with partial pivoting. The ADF design never exceeds lags+2 columns, so
// numeric shortcuts are unnecessary.
func invertMatrix(m [][]float64) ([][]float64, error) {
	n := len(m)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, errors.New("singular matrix")
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		p := aug[col][col]
		for j := 0; j < 2*n; j++ {
			aug[col][j] /= p
		}
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			f := aug[row][col]
			if f == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug[row][j] -= f * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = aug[i][n:]
	}
	return inv, nil
}

// criticalValuesForSize interpolates the tabulated critical values for
// the given sample size, clamping outside the table range.
func criticalValuesForSize(sampleSize int) criticalValues {
	table := cointCriticalValues
	if sampleSize <= table[0].size {
		return table[0].cv
	}
	last := table[len(table)-1]
	if sampleSize >= last.size {
		return last.cv
	}
	for i := 0; i < len(table)-1; i++ {
		lo, hi := table[i], table[i+1]
		if sampleSize >= lo.size && sampleSize <= hi.size {
			t := float64(sampleSize-lo.size) / float64(hi.size-lo.size)
			return criticalValues{
				pct1:  lo.cv.pct1 + t*(hi.cv.pct1-lo.cv.pct1),
				pct5:  lo.cv.pct5 + t*(hi.cv.pct5-lo.cv.pct5),
				pct10: lo.cv.pct10 + t*(hi.cv.pct10-lo.cv.pct10),
			}
		}
	}
	return table[0].cv
}

// approximatePValue maps the t-statistic onto [0.01, 0.99] by piecewise
// linear interpolation between the critical values, with a linear tail
// above the 10% value.
func approximatePValue(tStat float64, cv criticalValues) float64 {
	switch {
	case tStat < cv.pct1:
		return 0.01
	case tStat < cv.pct5:
		t := (tStat - cv.pct1) / (cv.pct5 - cv.pct1)
		return 0.01 + t*0.04
	case tStat < cv.pct10:
		t := (tStat - cv.pct5) / (cv.pct10 - cv.pct5)
		return 0.05 + t*0.05
	default:
		return math.Min(0.99, 0.1+(tStat-cv.pct10)*0.1)
	}
}
