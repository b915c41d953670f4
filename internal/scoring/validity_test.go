package scoring

import (
	"testing"

	"ForecastBench/internal/domain/models"
)

func histWith(model string, horizon models.Horizon, probs []float64, labels []bool) *models.ModelHistory {
	h := models.NewModelHistory(model)
	for i, p := range probs {
		h.Append(models.RoundOutcome{
			Round:    i + 1,
			Model:    model,
			Horizon:  horizon,
			Prob:     p,
			Label:    labels[i],
			HasLabel: true,
		})
	}
	return h
}

func hasViolation(v models.HorizonValidity, rule models.ValidityRule) bool {
	for _, r := range v.Violations {
		if r == rule {
			return true
		}
	}
	return false
}

func TestValidityHealthyModel(t *testing.T) {
	probs := []float64{0.3, 0.6, 0.7, 0.4, 0.55, 0.65, 0.35, 0.5, 0.45, 0.6}
	labels := []bool{false, true, true, false, true, true, false, true, false, true}
	h := histWith("good", models.H1h, probs, labels)
	res := EvaluateValidity(h, 10, DefaultThresholds())
	v := res.ByHorizon[models.H1h]
	if !v.Valid {
		t.Fatalf("expected valid, got violations %v", v.Violations)
	}
	if v.Coverage != 1 {
		t.Fatalf("coverage = %v, want 1", v.Coverage)
	}
}

func TestValidityLowCoverage(t *testing.T) {
	probs := []float64{0.3, 0.6, 0.7}
	labels := []bool{false, true, true}
	h := histWith("thin", models.H1h, probs, labels)
	// only 3 of 10 intended rounds covered
	res := EvaluateValidity(h, 10, DefaultThresholds())
	v := res.ByHorizon[models.H1h]
	if v.Valid {
		t.Fatalf("expected invalid on low coverage")
	}
	if !hasViolation(v, models.RuleCoverage) {
		t.Fatalf("expected coverage violation, got %v", v.Violations)
	}
}

func TestValidityHighFailureRate(t *testing.T) {
	h := models.NewModelHistory("flaky")
	for r := 1; r <= 10; r++ {
		o := models.RoundOutcome{Round: r, Model: "flaky", Horizon: models.H4h, Prob: 0.4 + float64(r)*0.03, Label: r%2 == 0, HasLabel: true}
		if r%3 == 0 {
			o = models.RoundOutcome{Round: r, Model: "flaky", Horizon: models.H4h, Failed: true, Failure: models.FailureTimeout}
		}
		h.Append(o)
	}
	res := EvaluateValidity(h, 10, DefaultThresholds())
	v := res.ByHorizon[models.H4h]
	if !hasViolation(v, models.RuleFailureRate) {
		t.Fatalf("expected failure_rate violation at 30%% failures, got %v", v.Violations)
	}
}

func TestValidityDegeneratePredictor(t *testing.T) {
	// constant answer across >= 2 rounds: fewer than 2 distinct values, zero stddev
	probs := []float64{0.7, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7}
	labels := []bool{true, false, true, false, true, false, true, false, true, false}
	h := histWith("cached", models.H1h, probs, labels)
	res := EvaluateValidity(h, 10, DefaultThresholds())
	v := res.ByHorizon[models.H1h]
	if !hasViolation(v, models.RuleDegenerate) {
		t.Fatalf("expected degenerate violation, got %v", v.Violations)
	}
	if v.UniqueProbs != 1 {
		t.Fatalf("uniqueProbs = %d, want 1", v.UniqueProbs)
	}
}

func TestValidityTwoDistinctValuesNotDegenerate(t *testing.T) {
	probs := []float64{0.3, 0.7, 0.3, 0.7, 0.3, 0.7, 0.3, 0.7, 0.3, 0.7}
	labels := []bool{false, true, false, true, false, true, false, true, false, true}
	h := histWith("binary", models.H1h, probs, labels)
	res := EvaluateValidity(h, 10, DefaultThresholds())
	if hasViolation(res.ByHorizon[models.H1h], models.RuleDegenerate) {
		t.Fatalf("two well-separated values should not be degenerate")
	}
}

func TestValidityExtremeWrongRate(t *testing.T) {
	// confidently wrong on 3 of 10 scored rounds
	probs := []float64{0.95, 0.9, 0.85, 0.5, 0.5, 0.55, 0.45, 0.5, 0.6, 0.4}
	labels := []bool{false, false, false, true, false, true, false, true, true, false}
	h := histWith("overconfident", models.H1h, probs, labels)
	res := EvaluateValidity(h, 10, DefaultThresholds())
	v := res.ByHorizon[models.H1h]
	if !hasViolation(v, models.RuleExtremeWrong) {
		t.Fatalf("expected extreme_wrong violation, got %v (rate %v)", v.Violations, v.ExtremeWrongRate)
	}
}

func TestValidityIsHorizonLocal(t *testing.T) {
	h := models.NewModelHistory("split")
	goodProbs := []float64{0.3, 0.6, 0.7, 0.4, 0.55, 0.65, 0.35, 0.5, 0.45, 0.6}
	goodLabels := []bool{false, true, true, false, true, true, false, true, false, true}
	for i, p := range goodProbs {
		h.Append(models.RoundOutcome{Round: i + 1, Model: "split", Horizon: models.H1h, Prob: p, Label: goodLabels[i], HasLabel: true})
		// degenerate on 24h
		h.Append(models.RoundOutcome{Round: i + 1, Model: "split", Horizon: models.H24h, Prob: 0.5, Label: goodLabels[i], HasLabel: true})
	}
	res := EvaluateValidity(h, 10, DefaultThresholds())
	if !res.ByHorizon[models.H1h].Valid {
		t.Fatalf("expected valid on 1h")
	}
	if res.ByHorizon[models.H24h].Valid {
		t.Fatalf("expected invalid on 24h")
	}
	vh := res.ValidHorizons()
	if len(vh) != 1 || vh[0] != models.H1h {
		t.Fatalf("validHorizons = %v, want [1h]", vh)
	}
}
