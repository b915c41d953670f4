package scoring

import (
	"math"
	"testing"

	"ForecastBench/internal/domain/models"
)

func TestQualifyPrevalenceMargin(t *testing.T) {
	// four models with mean losses [0.1 0.3 0.5 0.9], prevalenceBest=0.4:
	// threshold 0.4+0.1=0.5 keeps the two below it
	losses := map[string]float64{
		"m1": 0.1,
		"m2": 0.3,
		"m3": 0.5,
		"m4": 0.9,
	}
	diag := models.HorizonDiagnostics{Horizon: models.H1h, RandomLoss: math.Ln2, PrevalenceBest: 0.4}
	th := DefaultThresholds()
	res := Qualify(models.H1h, losses, diag, th)
	if res.Policy != PolicyPrevalenceMargin {
		t.Fatalf("policy = %s", res.Policy)
	}
	if len(res.Qualified) != 2 || res.Qualified[0] != "m1" || res.Qualified[1] != "m2" {
		t.Fatalf("qualified = %v, want [m1 m2]", res.Qualified)
	}
	if math.Abs(res.Threshold-0.5) > 1e-12 {
		t.Fatalf("threshold = %v, want 0.5", res.Threshold)
	}
}

func TestQualifyPrevalenceMarginRandomEdge(t *testing.T) {
	// loss under the absolute threshold but not 10% better than random
	losses := map[string]float64{"m1": 0.68}
	diag := models.HorizonDiagnostics{Horizon: models.H1h, RandomLoss: math.Ln2, PrevalenceBest: 0.65}
	res := Qualify(models.H1h, losses, diag, DefaultThresholds())
	if len(res.Qualified) != 0 {
		t.Fatalf("expected no qualification without a random edge, got %v", res.Qualified)
	}
}

func TestQualifySkipsAbsoluteCheckWhenUninformative(t *testing.T) {
	// prevalenceBest below 0.1: a lopsided label mix. The absolute check would
	// disqualify everyone, so only the random-baseline edge applies.
	losses := map[string]float64{"m1": 0.3, "m2": 0.7}
	diag := models.HorizonDiagnostics{Horizon: models.H24h, RandomLoss: math.Ln2, PrevalenceBest: 0.05}
	res := Qualify(models.H24h, losses, diag, DefaultThresholds())
	if len(res.Qualified) != 1 || res.Qualified[0] != "m1" {
		t.Fatalf("qualified = %v, want [m1]", res.Qualified)
	}
}

func TestQualifyTopPercent(t *testing.T) {
	losses := map[string]float64{
		"m1": 0.2,
		"m2": 0.4,
		"m3": 0.6,
		"m4": 0.8,
	}
	th := DefaultThresholds()
	th.Policy = PolicyTopPercent
	res := Qualify(models.H1h, losses, models.HorizonDiagnostics{}, th)
	// top 0.7 of 4 models rounds to 3
	if len(res.Qualified) != 3 {
		t.Fatalf("qualified = %v, want 3 models", res.Qualified)
	}
	for _, m := range res.Qualified {
		if m == "m4" {
			t.Fatalf("worst model qualified under top_percent")
		}
	}
	if res.Threshold != 0.6 {
		t.Fatalf("threshold = %v, want cutoff loss 0.6", res.Threshold)
	}
}

func TestQualifyTopPercentKeepsAtLeastOne(t *testing.T) {
	th := DefaultThresholds()
	th.Policy = PolicyTopPercent
	th.TopFraction = 0.1
	res := Qualify(models.H1h, map[string]float64{"only": 0.5}, models.HorizonDiagnostics{}, th)
	if len(res.Qualified) != 1 {
		t.Fatalf("expected the single model to qualify, got %v", res.Qualified)
	}
}

func TestQualifyEmptyCohort(t *testing.T) {
	res := Qualify(models.H1h, nil, models.HorizonDiagnostics{}, DefaultThresholds())
	if len(res.Qualified) != 0 {
		t.Fatalf("expected empty qualification, got %v", res.Qualified)
	}
}
