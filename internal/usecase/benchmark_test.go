package usecase

import (
	"context"
	"testing"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/internal/scoring"
	"ForecastBench/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordOutcome(string, string)          {}
func (nopMetrics) RecordFailure(string, string)          {}
func (nopMetrics) RecordRoundScored(string)              {}
func (nopMetrics) RecordEnsembleProbability(string, float64) {}
func (nopMetrics) RecordWeightEntropy(string, float64)   {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLatency(string, float64)         {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestBenchmark(t *testing.T, th scoring.Thresholds) *Benchmark {
	t.Helper()
	return NewBenchmark(nil, th, nil, nopMetrics{}, testLogger(t), time.Minute)
}

func outcome(round int, model string, hz models.Horizon, prob float64) *models.RoundOutcome {
	return &models.RoundOutcome{
		Round:   round,
		Model:   model,
		Horizon: hz,
		Prob:    prob,
		At:      time.Now().UTC(),
	}
}

func TestRecordRoundTracksHighestRound(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()

	for round := 1; round <= 3; round++ {
		err := b.RecordRound(ctx, round, []*models.RoundOutcome{
			outcome(round, "m1", models.H1h, 0.6),
		})
		if err != nil {
			t.Fatalf("record round %d: %v", round, err)
		}
	}
	if got := b.Rounds(); got != 3 {
		t.Fatalf("rounds = %d, want 3", got)
	}
	hist, ok := b.Histories()["m1"]
	if !ok {
		t.Fatalf("expected history for m1")
	}
	if got := hist.IntendedRounds(models.H1h); got != 3 {
		t.Fatalf("intended rounds = %d, want 3", got)
	}
}

func TestResolveAppliesLabelsAndScores(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()

	for round := 1; round <= 4; round++ {
		prob := 0.8
		if round%2 == 0 {
			prob = 0.2
		}
		if err := b.RecordRound(ctx, round, []*models.RoundOutcome{
			outcome(round, "m1", models.H1h, prob),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
		b.Resolve(ctx, &models.LabelResolution{
			Round:   round,
			Horizon: models.H1h,
			Label:   round%2 == 1,
			At:      time.Now().UTC(),
		})
	}

	report := b.Report(ctx)
	mr, ok := report.Models["m1"]
	if !ok {
		t.Fatalf("model m1 missing from report")
	}
	hr, ok := mr.ByHorizon[models.H1h]
	if !ok {
		t.Fatalf("horizon report missing")
	}
	if hr.EffectiveRounds != 4 {
		t.Fatalf("effective rounds = %d, want 4", hr.EffectiveRounds)
	}
	if hr.MeanLogLoss == nil {
		t.Fatalf("expected mean log loss after resolving labels")
	}
	if *hr.MeanLogLoss <= 0 || *hr.MeanLogLoss > 0.3 {
		t.Fatalf("mean log loss = %v for a well calibrated model", *hr.MeanLogLoss)
	}
}

func TestResolveIgnoresUnknownRound(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()

	if err := b.RecordRound(ctx, 1, []*models.RoundOutcome{
		outcome(1, "m1", models.H1h, 0.6),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	b.Resolve(ctx, &models.LabelResolution{Round: 9, Horizon: models.H1h, Label: true})

	hist := b.Histories()["m1"]
	if got := hist.EffectiveRounds(models.H1h); got != 0 {
		t.Fatalf("effective rounds = %d, want 0 (no label for round 1)", got)
	}
}

func TestReportCachedUntilNextRound(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()

	if err := b.RecordRound(ctx, 1, []*models.RoundOutcome{
		outcome(1, "m1", models.H1h, 0.6),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	r1 := b.Report(ctx)
	r2 := b.Report(ctx)
	if r1 != r2 {
		t.Fatalf("expected cached report pointer on second read")
	}

	if err := b.RecordRound(ctx, 2, []*models.RoundOutcome{
		outcome(2, "m1", models.H1h, 0.7),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	r3 := b.Report(ctx)
	if r3 == r1 {
		t.Fatalf("expected recomputed report after new round")
	}
	if r3.Rounds != 2 {
		t.Fatalf("report rounds = %d, want 2", r3.Rounds)
	}
}

func TestReplayEnsembleUniformWithoutHistory(t *testing.T) {
	th := scoring.DefaultThresholds()
	b := newTestBenchmark(t, th)
	ctx := context.Background()

	out := []*models.RoundOutcome{
		outcome(1, "a", models.H1h, 0.7),
		outcome(1, "b", models.H1h, 0.6),
		outcome(1, "c", models.H1h, 0.8),
	}
	if err := b.RecordRound(ctx, 1, out); err != nil {
		t.Fatalf("record: %v", err)
	}

	report := b.Report(ctx)
	if want := len(models.AllHorizons()); len(report.Ensemble) != want {
		t.Fatalf("ensemble results = %d, want %d", len(report.Ensemble), want)
	}
	for _, r := range report.Ensemble {
		if r.Horizon != models.H1h {
			if r.IsScoreable {
				t.Fatalf("horizon %s has no outcomes, must not be scoreable", r.Horizon)
			}
			continue
		}
		if !r.IsScoreable {
			t.Fatalf("three valid models must be scoreable")
		}
		// no trailing history: weights stay uniform
		for m, w := range r.Weights {
			if diff := w - 1.0/3.0; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("weight[%s] = %v, want uniform 1/3", m, w)
			}
		}
	}
}

type captureQueue struct {
	types    []string
	payloads []interface{}
}

func (q *captureQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestResolveEnqueuesReportRefresh(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()
	q := &captureQueue{}
	b.SetQueue(q)

	if err := b.RecordRound(ctx, 1, []*models.RoundOutcome{
		outcome(1, "m1", models.H4h, 0.55),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	b.Resolve(ctx, &models.LabelResolution{Round: 1, Horizon: models.H4h, Label: true})

	if len(q.types) != 1 || q.types[0] != ReportRefreshType {
		t.Fatalf("queue messages = %v, want one %s", q.types, ReportRefreshType)
	}

	// a resolution that applies to nothing must not enqueue
	b.Resolve(ctx, &models.LabelResolution{Round: 5, Horizon: models.H4h, Label: true})
	if len(q.types) != 1 {
		t.Fatalf("unexpected enqueue for unapplied resolution")
	}
}
