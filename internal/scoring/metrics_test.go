package scoring

import (
	"math"
	"testing"
)

func TestLogLossNonNegative(t *testing.T) {
	for _, p := range []float64{0.01, 0.25, 0.5, 0.75, 0.99} {
		for _, y := range []bool{true, false} {
			if l := LogLoss(p, y); l < 0 {
				t.Fatalf("logloss(%v,%v) = %v, want >= 0", p, y, l)
			}
		}
	}
}

func TestLogLossFiniteAtExtremes(t *testing.T) {
	if l := LogLoss(0, true); math.IsInf(l, 0) {
		t.Fatalf("expected finite loss at p=0, got %v", l)
	}
	if l := LogLoss(1, false); math.IsInf(l, 0) {
		t.Fatalf("expected finite loss at p=1, got %v", l)
	}
}

func TestLogLossApproachesZero(t *testing.T) {
	if l := LogLoss(1-Epsilon, true); l > 1e-12 {
		t.Fatalf("expected near-zero loss for confident correct, got %v", l)
	}
	if l := LogLoss(Epsilon, false); l > 1e-12 {
		t.Fatalf("expected near-zero loss for confident correct, got %v", l)
	}
}

func TestBrierRange(t *testing.T) {
	for _, p := range []float64{0, 0.3, 0.5, 0.8, 1} {
		for _, y := range []bool{true, false} {
			b := Brier(p, y)
			if b < 0 || b > 1 {
				t.Fatalf("brier(%v,%v) = %v out of [0,1]", p, y, b)
			}
		}
	}
	if b := Brier(1, true); b != 0 {
		t.Fatalf("brier(1,true) = %v, want 0", b)
	}
	if b := Brier(0, true); b != 1 {
		t.Fatalf("brier(0,true) = %v, want 1", b)
	}
}

func TestMeanLogLossLengthMismatch(t *testing.T) {
	if _, err := MeanLogLoss([]float64{0.5, 0.5}, []bool{true}); err == nil {
		t.Fatalf("expected error on mismatched lengths")
	}
	if _, err := MeanBrier([]float64{0.5}, []bool{}); err == nil {
		t.Fatalf("expected error on mismatched lengths")
	}
}

func TestCalibrationSlopeInsufficientVariance(t *testing.T) {
	// labels [T,T,F,F] with constant or near-constant predictions: the
	// predictor carries no signal and a fit would only extrapolate noise
	labels := []bool{true, true, false, false}
	for _, preds := range [][]float64{
		{0.9, 0.9, 0.9, 0.9},
		{0.9, 0.9, 0.95, 0.95},
	} {
		s, err := CalibrationSlope(preds, labels)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !math.IsNaN(s) {
			t.Fatalf("preds %v: expected NaN slope, got %v", preds, s)
		}
	}
}

func TestCalibrationSlopeTooFewPoints(t *testing.T) {
	s, err := CalibrationSlope([]float64{0.7}, []bool{true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(s) {
		t.Fatalf("expected NaN slope for single point, got %v", s)
	}
}

func TestCalibrationSlopePerfectPredictor(t *testing.T) {
	preds := []float64{0, 1, 0, 1}
	labels := []bool{false, true, false, true}
	s, err := CalibrationSlope(preds, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(s-1) > 1e-9 {
		t.Fatalf("expected slope 1 for perfect predictor, got %v", s)
	}
}

func TestCalibrationSlopeLengthMismatch(t *testing.T) {
	if _, err := CalibrationSlope([]float64{0.5, 0.5}, []bool{true}); err == nil {
		t.Fatalf("expected error on mismatched lengths")
	}
}

func TestECEPerfectlyCalibrated(t *testing.T) {
	// two buckets, each with predictions equal to their empirical frequency
	preds := []float64{0.25, 0.25, 0.25, 0.25, 0.75, 0.75, 0.75, 0.75}
	labels := []bool{true, false, false, false, true, true, true, false}
	e, err := ExpectedCalibrationError(preds, labels, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e > 1e-9 {
		t.Fatalf("expected near-zero ECE for calibrated data, got %v", e)
	}
}

func TestECESingletonBuckets(t *testing.T) {
	// two singleton buckets, each off by 0.05 and weighted 0.5
	preds := []float64{0.05, 0.95}
	labels := []bool{false, true}
	e, err := ExpectedCalibrationError(preds, labels, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(e-0.05) > 1e-9 {
		t.Fatalf("expected ECE 0.05, got %v", e)
	}
}

func TestECETopBucketIncludesOne(t *testing.T) {
	e, err := ExpectedCalibrationError([]float64{1.0}, []bool{true}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e != 0 {
		t.Fatalf("expected ECE 0 for p=1 label=true, got %v", e)
	}
}

func TestECELengthMismatch(t *testing.T) {
	if _, err := ExpectedCalibrationError([]float64{0.5}, []bool{true, false}, 10); err == nil {
		t.Fatalf("expected error on mismatched lengths")
	}
}
