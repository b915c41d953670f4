package scoring

import (
	"fmt"
	"math"
)

// Epsilon clamps probabilities away from 0 and 1 so log loss stays finite.
const Epsilon = 1e-15

// DefaultBins is the bucket count for expected calibration error.
const DefaultBins = 10

// ClampProb clamps p to [Epsilon, 1-Epsilon].
func ClampProb(p float64) float64 {
	if p < Epsilon {
		return Epsilon
	}
	if p > 1-Epsilon {
		return 1 - Epsilon
	}
	return p
}

// LogLoss computes -(y*ln(p) + (1-y)*ln(1-p)) with p clamped.
func LogLoss(p float64, y bool) float64 {
	p = ClampProb(p)
	if y {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// Brier computes the squared error (p - y)^2.
func Brier(p float64, y bool) float64 {
	t := 0.0
	if y {
		t = 1.0
	}
	d := p - t
	return d * d
}

// MeanLogLoss averages LogLoss over (preds, labels) pairs.
func MeanLogLoss(preds []float64, labels []bool) (float64, error) {
	if len(preds) != len(labels) {
		return 0, fmt.Errorf("mean log loss: %d preds vs %d labels", len(preds), len(labels))
	}
	if len(preds) == 0 {
		return 0, fmt.Errorf("mean log loss: empty input")
	}
	sum := 0.0
	for i, p := range preds {
		sum += LogLoss(p, labels[i])
	}
	return sum / float64(len(preds)), nil
}

// MeanBrier averages Brier over (preds, labels) pairs.
func MeanBrier(preds []float64, labels []bool) (float64, error) {
	if len(preds) != len(labels) {
		return 0, fmt.Errorf("mean brier: %d preds vs %d labels", len(preds), len(labels))
	}
	if len(preds) == 0 {
		return 0, fmt.Errorf("mean brier: empty input")
	}
	sum := 0.0
	for i, p := range preds {
		sum += Brier(p, labels[i])
	}
	return sum / float64(len(preds)), nil
}

// minSlopeStdDev is the smallest predictor spread the regression treats as
// signal. Below it the fit extrapolates from noise and the slope is
// meaningless.
const minSlopeStdDev = 0.05

// CalibrationSlope returns the least-squares slope of labels (0/1) regressed
// on predictions. The result is NaN when there are fewer than 2 points or
// the predictor spread is under minSlopeStdDev; callers must treat NaN as
// "insufficient signal", never as zero.
func CalibrationSlope(preds []float64, labels []bool) (float64, error) {
	if len(preds) != len(labels) {
		return 0, fmt.Errorf("calibration slope: %d preds vs %d labels", len(preds), len(labels))
	}
	n := float64(len(preds))
	if n < 2 {
		return math.NaN(), nil
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range preds {
		y := 0.0
		if labels[i] {
			y = 1.0
		}
		sumX += p
		sumY += y
		sumXY += p * y
		sumX2 += p * p
	}
	denom := n*sumX2 - sumX*sumX
	// denom / n^2 is the population variance of the predictor
	if denom <= 0 || denom/(n*n) < minSlopeStdDev*minSlopeStdDev {
		return math.NaN(), nil
	}
	return (n*sumXY - sumX*sumY) / denom, nil
}

// ExpectedCalibrationError partitions predictions into bins equal-width
// buckets on [0,1] (the value 1.0 falls into the last bucket) and sums
// (bucketSize/N) * |meanPredicted - empiricalFrequency| over non-empty
// buckets.
func ExpectedCalibrationError(preds []float64, labels []bool, bins int) (float64, error) {
	if len(preds) != len(labels) {
		return 0, fmt.Errorf("ece: %d preds vs %d labels", len(preds), len(labels))
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(preds) == 0 {
		return 0, fmt.Errorf("ece: empty input")
	}

	counts := make([]int, bins)
	sumP := make([]float64, bins)
	sumY := make([]float64, bins)
	for i, p := range preds {
		b := int(p * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
		sumP[b] += p
		if labels[i] {
			sumY[b]++
		}
	}

	n := float64(len(preds))
	ece := 0.0
	for b := 0; b < bins; b++ {
		if counts[b] == 0 {
			continue
		}
		c := float64(counts[b])
		meanP := sumP[b] / c
		freq := sumY[b] / c
		ece += (c / n) * math.Abs(meanP-freq)
	}
	return ece, nil
}
