package usecase

import (
	"context"
	"testing"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/internal/scoring"
)

// seedScoredRun records eight resolved rounds on H1h with alternating labels
// so the horizon is rankable: a sharp model and a dull one.
func seedScoredRun(t *testing.T, b *Benchmark) {
	t.Helper()
	ctx := context.Background()
	for round := 1; round <= 8; round++ {
		label := round%2 == 1
		sharp, dull := 0.2, 0.4
		if label {
			sharp, dull = 0.8, 0.6
		}
		err := b.RecordRound(ctx, round, []*models.RoundOutcome{
			outcome(round, "sharp", models.H1h, sharp),
			outcome(round, "dull", models.H1h, dull),
		})
		if err != nil {
			t.Fatalf("record round %d: %v", round, err)
		}
		b.Resolve(ctx, &models.LabelResolution{
			Round:   round,
			Horizon: models.H1h,
			Label:   label,
			At:      time.Now().UTC(),
		})
	}
}

func TestGetModelReportUnknown(t *testing.T) {
	uc := NewReportsUseCase(newTestBenchmark(t, scoring.DefaultThresholds()))
	if _, err := uc.GetModelReport(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
	if _, err := uc.GetModelReport(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestGetModelReportKnown(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	seedScoredRun(t, b)
	uc := NewReportsUseCase(b)

	mr, err := uc.GetModelReport(context.Background(), "sharp")
	if err != nil {
		t.Fatalf("get model report: %v", err)
	}
	if mr.Model != "sharp" {
		t.Fatalf("model = %s", mr.Model)
	}
	if _, ok := mr.ByHorizon[models.H1h]; !ok {
		t.Fatalf("missing 1h horizon report")
	}
}

func TestLeaderboardRanksByLoss(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	seedScoredRun(t, b)
	uc := NewReportsUseCase(b)

	lb, err := uc.GetLeaderboard(context.Background(), models.H1h, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if !lb.Rankable {
		t.Fatalf("eight resolved rounds with balanced labels must be rankable")
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(lb.Entries))
	}
	if lb.Entries[0].Model != "sharp" || lb.Entries[0].Rank != 1 {
		t.Fatalf("rank 1 = %+v, want sharp", lb.Entries[0])
	}
	if lb.Entries[1].Model != "dull" || lb.Entries[1].Rank != 2 {
		t.Fatalf("rank 2 = %+v, want dull", lb.Entries[1])
	}
	if lb.Entries[0].MeanLogLoss >= lb.Entries[1].MeanLogLoss {
		t.Fatalf("sharp loss %v not better than dull %v",
			lb.Entries[0].MeanLogLoss, lb.Entries[1].MeanLogLoss)
	}
}

func TestLeaderboardNotRankableWithoutLabels(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()
	if err := b.RecordRound(ctx, 1, []*models.RoundOutcome{
		outcome(1, "sharp", models.H1h, 0.7),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	uc := NewReportsUseCase(b)

	lb, err := uc.GetLeaderboard(ctx, models.H1h, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Rankable {
		t.Fatalf("unresolved run must not be rankable")
	}
	if len(lb.Entries) != 0 {
		t.Fatalf("entries = %d, want none", len(lb.Entries))
	}
}

func TestLeaderboardInvalidHorizon(t *testing.T) {
	uc := NewReportsUseCase(newTestBenchmark(t, scoring.DefaultThresholds()))
	if _, err := uc.GetLeaderboard(context.Background(), models.Horizon("7d"), 10); err == nil {
		t.Fatalf("expected error for unsupported horizon")
	}
}

func TestEnsembleRoundsPaging(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	ctx := context.Background()
	for round := 1; round <= 5; round++ {
		err := b.RecordRound(ctx, round, []*models.RoundOutcome{
			outcome(round, "a", models.H1h, 0.7),
			outcome(round, "b", models.H1h, 0.6),
			outcome(round, "c", models.H1h, 0.5),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	uc := NewReportsUseCase(b)

	page, err := uc.GetEnsembleRounds(ctx, models.H1h, 3, 2)
	if err != nil {
		t.Fatalf("ensemble rounds: %v", err)
	}
	if len(page.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(page.Results))
	}
	if page.Results[0].Round != 3 || page.Results[1].Round != 4 {
		t.Fatalf("rounds = %d,%d, want 3,4", page.Results[0].Round, page.Results[1].Round)
	}
	if page.MeanLogLoss != nil {
		t.Fatalf("no labels resolved, mean log loss must be absent")
	}
}

func TestEnsembleRoundsMeanLoss(t *testing.T) {
	b := newTestBenchmark(t, scoring.DefaultThresholds())
	seedScoredRun(t, b)
	ctx := context.Background()

	// third model so MinModels=3 rounds become scoreable
	for round := 1; round <= 8; round++ {
		if err := b.RecordRound(ctx, round, []*models.RoundOutcome{
			outcome(round, "third", models.H1h, 0.5),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	uc := NewReportsUseCase(b)

	page, err := uc.GetEnsembleRounds(ctx, models.H1h, 0, 100)
	if err != nil {
		t.Fatalf("ensemble rounds: %v", err)
	}
	if len(page.Results) != 8 {
		t.Fatalf("results = %d, want 8", len(page.Results))
	}
	if page.MeanLogLoss == nil {
		t.Fatalf("expected mean log loss over labeled scoreable rounds")
	}
	if *page.MeanLogLoss <= 0 {
		t.Fatalf("mean log loss = %v", *page.MeanLogLoss)
	}
}
