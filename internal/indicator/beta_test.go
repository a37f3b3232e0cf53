package indicator

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestBetaProportionalSeries(t *testing.T) {
	// A is exactly half of B, so their simple returns are identical and
	// the OLS slope must be exactly 1.
	pricesB := []float64{100, 110, 99, 104.5, 98}
	pricesA := make([]float64, len(pricesB))
	for i, p := range pricesB {
		pricesA[i] = p / 2
	}

	beta, ok := Beta(pricesA, pricesB)
	if !ok {
		t.Fatal("expected beta to be computable")
	}
	if beta != 1.0 {
		t.Fatalf("beta = %v, want exactly 1.0", beta)
	}
}

func TestBetaDoubledReturns(t *testing.T) {
	// A's returns are twice B's returns.
	pricesB := []float64{100, 110, 99}
	pricesA := []float64{100, 120, 96}

	beta, ok := Beta(pricesA, pricesB)
	if !ok {
		t.Fatal("expected beta to be computable")
	}
	if !approx(beta, 2.0, 1e-9) {
		t.Fatalf("beta = %v, want 2.0", beta)
	}
}

func TestBetaAlignsTails(t *testing.T) {
	// Extra leading history on A must not change the result.
	pricesB := []float64{100, 110, 99}
	pricesA := []float64{1, 2, 3, 50, 55, 49.5}

	beta, ok := Beta(pricesA, pricesB)
	if !ok {
		t.Fatal("expected beta to be computable")
	}
	if beta != 1.0 {
		t.Fatalf("beta = %v, want exactly 1.0", beta)
	}
}

func TestBetaDegenerateInput(t *testing.T) {
	cases := []struct {
		name    string
		pricesA []float64
		pricesB []float64
	}{
		{"too short", []float64{100}, []float64{100}},
		{"empty", nil, nil},
		{"zero price", []float64{100, 0, 101}, []float64{100, 101, 102}},
		{"constant benchmark", []float64{100, 101, 102}, []float64{50, 50, 50}},
		{"constant returns", []float64{1, 2, 4}, []float64{1, 2, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Beta(tc.pricesA, tc.pricesB); ok {
				t.Fatal("expected ok=false")
			}
		})
	}
}
