package stats

import (
	"math/rand"
	"testing"
)

func TestCDF_DuplicatesCollapse(t *testing.T) {
	curve, err := CDF([]float64{1, 1, 2})
	if err != nil {
		t.Fatal(err)
	}

	if len(curve) != 2 {
		t.Fatalf("expected 2 points, got %d: %v", len(curve), curve)
	}
	if curve[0].Value != 1 || curve[0].Fraction != 2.0/3.0 {
		t.Errorf("expected (1, 2/3), got %v", curve[0])
	}
	if curve[1].Value != 2 || curve[1].Fraction != 1.0 {
		t.Errorf("expected (2, 1.0), got %v", curve[1])
	}
}

func TestCDF_SingleValue(t *testing.T) {
	curve, err := CDF([]float64{4, 4, 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(curve) != 1 || curve[0] != (Point{Value: 4, Fraction: 1}) {
		t.Errorf("expected [(4, 1)], got %v", curve)
	}
}

func TestCDF_StrictlyIncreasingEndsAtOne(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		n := 1 + rng.Intn(200)
		values := make([]float64, n)
		for i := range values {
			// small range so duplicates are common
			values[i] = float64(rng.Intn(20))
		}

		curve, err := CDF(values)
		if err != nil {
			t.Fatal(err)
		}

		if last := curve[len(curve)-1].Fraction; last != 1.0 {
			t.Errorf("run %d: last fraction = %v, expected 1.0", run, last)
		}
		for i := 1; i < len(curve); i++ {
			if curve[i].Value <= curve[i-1].Value {
				t.Errorf("run %d: values not strictly increasing at %d: %v", run, i, curve)
				break
			}
			if curve[i].Fraction <= curve[i-1].Fraction {
				t.Errorf("run %d: fractions not increasing at %d: %v", run, i, curve)
				break
			}
		}
	}
}

func TestCurve_XY(t *testing.T) {
	curve := Curve{{Value: 1, Fraction: 0.5}, {Value: 3, Fraction: 1}}

	xs, ys := curve.XY()

	if len(xs) != 2 || xs[0] != 1 || xs[1] != 3 {
		t.Errorf("unexpected xs %v", xs)
	}
	if len(ys) != 2 || ys[0] != 0.5 || ys[1] != 1 {
		t.Errorf("unexpected ys %v", ys)
	}
}
