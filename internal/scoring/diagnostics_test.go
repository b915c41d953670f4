package scoring

import (
	"math"
	"testing"

	"ForecastBench/internal/domain/models"
)

func TestDiagnoseLabelsBalanced(t *testing.T) {
	labels := []bool{true, true, false, false}
	d := DiagnoseLabels(models.H1h, labels)
	if d.TrueCount != 2 || d.FalseCount != 2 {
		t.Fatalf("unexpected counts: %d/%d", d.TrueCount, d.FalseCount)
	}
	if d.Prevalence != 0.5 {
		t.Fatalf("prevalence = %v, want 0.5", d.Prevalence)
	}
	if math.Abs(d.RandomLoss-math.Ln2) > 1e-12 {
		t.Fatalf("random baseline = %v, want ln2", d.RandomLoss)
	}
	// at prevalence 0.5 the floor equals the random baseline
	if math.Abs(d.PrevalenceBest-math.Ln2) > 1e-9 {
		t.Fatalf("prevalenceBest = %v, want ln2", d.PrevalenceBest)
	}
}

func TestDiagnoseLabelsImbalanced(t *testing.T) {
	labels := []bool{true, false, false, false, false}
	d := DiagnoseLabels(models.H4h, labels)
	if d.Prevalence != 0.2 {
		t.Fatalf("prevalence = %v, want 0.2", d.Prevalence)
	}
	if d.PrevalenceBest >= d.RandomLoss {
		t.Fatalf("floor %v should beat random %v on an imbalanced mix", d.PrevalenceBest, d.RandomLoss)
	}
	// constant-false predictor pays the full epsilon penalty on the true label
	if d.AlwaysFalseLoss < 1 {
		t.Fatalf("alwaysFalse loss = %v, expected large penalty", d.AlwaysFalseLoss)
	}
}

func TestDiagnoseLabelsEmpty(t *testing.T) {
	d := DiagnoseLabels(models.H15m, nil)
	if d.TrueCount != 0 || d.FalseCount != 0 || d.Prevalence != 0 {
		t.Fatalf("unexpected diagnostics for empty labels: %+v", d)
	}
}

func TestHorizonLabelsDeduplicatesRounds(t *testing.T) {
	a := models.NewModelHistory("model-a")
	b := models.NewModelHistory("model-b")
	for r := 1; r <= 3; r++ {
		a.Append(models.RoundOutcome{Round: r, Model: "model-a", Horizon: models.H1h, Prob: 0.6, Label: r%2 == 1, HasLabel: true})
		b.Append(models.RoundOutcome{Round: r, Model: "model-b", Horizon: models.H1h, Prob: 0.4, Label: r%2 == 1, HasLabel: true})
	}
	histories := map[string]*models.ModelHistory{"model-a": a, "model-b": b}
	labels := HorizonLabels(histories, models.H1h)
	if len(labels) != 3 {
		t.Fatalf("expected 3 deduplicated labels, got %d", len(labels))
	}
	want := []bool{true, false, true}
	for i, l := range labels {
		if l != want[i] {
			t.Fatalf("label[%d] = %v, want %v", i, l, want[i])
		}
	}
}

func TestHorizonLabelsSkipsUnresolved(t *testing.T) {
	a := models.NewModelHistory("model-a")
	a.Append(models.RoundOutcome{Round: 1, Model: "model-a", Horizon: models.H24h, Prob: 0.6})
	labels := HorizonLabels(map[string]*models.ModelHistory{"model-a": a}, models.H24h)
	if len(labels) != 0 {
		t.Fatalf("expected no labels from unresolved outcomes, got %d", len(labels))
	}
}
