package scoring

import (
	"math"
	"testing"

	"ForecastBench/internal/domain/models"
)

func TestCombineRoundWeightsSumToOne(t *testing.T) {
	th := DefaultThresholds()
	inputs := []EnsembleInput{
		{Model: "a", Prob: 0.7, Valid: true, TrailingLosses: []float64{0.3, 0.3, 0.4}, EffectiveRounds: 6},
		{Model: "b", Prob: 0.6, Valid: true, TrailingLosses: []float64{0.5, 0.6, 0.5}, EffectiveRounds: 6},
		{Model: "c", Prob: 0.8, Valid: true, TrailingLosses: []float64{0.9, 1.0, 0.8}, EffectiveRounds: 6},
	}
	res := CombineRound(7, models.H1h, inputs, th)
	if !res.IsScoreable {
		t.Fatalf("expected scoreable round")
	}
	sum := 0.0
	for _, w := range res.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum = %v, want 1", sum)
	}
	// better trailing loss earns the larger weight
	if res.Weights["a"] <= res.Weights["c"] {
		t.Fatalf("expected a > c, got %v vs %v", res.Weights["a"], res.Weights["c"])
	}
	if res.Probability < 0 || res.Probability > 1 {
		t.Fatalf("probability = %v out of [0,1]", res.Probability)
	}
}

func TestCombineRoundBelowMinModels(t *testing.T) {
	th := DefaultThresholds()
	inputs := []EnsembleInput{
		{Model: "a", Prob: 0.7, Valid: true, TrailingLosses: []float64{0.3}, EffectiveRounds: 3},
		{Model: "b", Prob: 0.6, Valid: true, TrailingLosses: []float64{0.5}, EffectiveRounds: 3},
	}
	res := CombineRound(3, models.H1h, inputs, th)
	if res.IsScoreable {
		t.Fatalf("two valid models must not be scoreable with minModels=3")
	}
	if res.Probability != 0.5 {
		t.Fatalf("probability = %v, want fallback 0.5", res.Probability)
	}
	if len(res.ContributingModels) != 0 {
		t.Fatalf("contributors = %v, want none", res.ContributingModels)
	}
}

func TestCombineRoundFailedModelExcluded(t *testing.T) {
	th := DefaultThresholds()
	inputs := []EnsembleInput{
		{Model: "a", Prob: 0.7, Valid: true, TrailingLosses: []float64{0.3, 0.3}, EffectiveRounds: 6},
		{Model: "b", Prob: 0.6, Valid: true, TrailingLosses: []float64{0.5, 0.4}, EffectiveRounds: 6},
		{Model: "c", Prob: 0.8, Valid: true, TrailingLosses: []float64{0.6, 0.7}, EffectiveRounds: 6},
		{Model: "failed", Valid: false, TrailingLosses: []float64{0.2, 0.2}, EffectiveRounds: 6},
	}
	res := CombineRound(5, models.H1h, inputs, th)
	if !res.IsScoreable {
		t.Fatalf("expected scoreable round")
	}
	if _, ok := res.Weights["failed"]; ok {
		t.Fatalf("failed model must not receive weight")
	}
}

func TestCombineRoundUniformFallback(t *testing.T) {
	// no model has trailing history: every raw weight is zero, so the valid
	// models share uniform weight
	th := DefaultThresholds()
	inputs := []EnsembleInput{
		{Model: "a", Prob: 0.2, Valid: true},
		{Model: "b", Prob: 0.4, Valid: true},
		{Model: "c", Prob: 0.6, Valid: true},
	}
	res := CombineRound(1, models.H1h, inputs, th)
	if !res.IsScoreable {
		t.Fatalf("expected scoreable round")
	}
	for m, w := range res.Weights {
		if math.Abs(w-1.0/3.0) > 1e-9 {
			t.Fatalf("weight[%s] = %v, want uniform 1/3", m, w)
		}
	}
	if math.Abs(res.Probability-0.4) > 1e-9 {
		t.Fatalf("probability = %v, want 0.4", res.Probability)
	}
}

func TestCombineRoundCoverageDiscount(t *testing.T) {
	th := DefaultThresholds()
	same := []float64{0.4, 0.4, 0.4}
	inputs := []EnsembleInput{
		{Model: "seasoned", Prob: 0.7, Valid: true, TrailingLosses: same, EffectiveRounds: 12},
		{Model: "rookie", Prob: 0.7, Valid: true, TrailingLosses: same, EffectiveRounds: 2},
		{Model: "other", Prob: 0.5, Valid: true, TrailingLosses: []float64{0.6, 0.6, 0.6}, EffectiveRounds: 12},
	}
	res := CombineRound(4, models.H1h, inputs, th)
	if res.Weights["rookie"] >= res.Weights["seasoned"] {
		t.Fatalf("rookie weight %v should be discounted below seasoned %v",
			res.Weights["rookie"], res.Weights["seasoned"])
	}
}

func TestWeightEntropy(t *testing.T) {
	uniform := map[string]float64{"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25}
	if e := WeightEntropy(uniform); math.Abs(e-math.Log(4)) > 1e-9 {
		t.Fatalf("uniform entropy = %v, want ln4", e)
	}
	dominated := map[string]float64{"a": 1}
	if e := WeightEntropy(dominated); e != 0 {
		t.Fatalf("single-model entropy = %v, want 0", e)
	}
}
