package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/internal/scoring"
)

// ReportsUseCase provides the read side: per-model reports, leaderboards, and
// ensemble round history, all derived from the benchmark's consolidated report.
type ReportsUseCase struct {
	bench *Benchmark
}

func NewReportsUseCase(bench *Benchmark) *ReportsUseCase {
	return &ReportsUseCase{bench: bench}
}

// GetRunReport returns the full consolidated report.
func (uc *ReportsUseCase) GetRunReport(ctx context.Context) *models.RunReport {
	return uc.bench.Report(ctx)
}

// GetModelReport returns one model's report across horizons.
func (uc *ReportsUseCase) GetModelReport(ctx context.Context, model string) (*models.ModelReport, error) {
	if model == "" {
		return nil, fmt.Errorf("model required")
	}
	report := uc.bench.Report(ctx)
	mr, ok := report.Models[model]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}
	return &mr, nil
}

// LeaderboardEntry is one row of the per-horizon ranking.
type LeaderboardEntry struct {
	Rank        int      `json:"rank"`
	Model       string   `json:"model"`
	MeanLogLoss float64  `json:"mean_log_loss"`
	MeanBrier   *float64 `json:"mean_brier,omitempty"`
	Qualified   bool     `json:"qualified"`
	Eliminated  bool     `json:"eliminated"`
}

// Leaderboard is the ranked view for one horizon. Only rankable horizons
// produce rankings; on a non-rankable horizon the entries are empty and the
// flag tells the caller why.
type Leaderboard struct {
	Horizon     models.Horizon     `json:"horizon"`
	Rankable    bool               `json:"rankable"`
	GeneratedAt time.Time          `json:"generated_at"`
	Entries     []LeaderboardEntry `json:"entries"`
}

// GetLeaderboard ranks valid models by mean log loss on one horizon.
func (uc *ReportsUseCase) GetLeaderboard(ctx context.Context, horizon models.Horizon, limit int) (*Leaderboard, error) {
	if !models.IsValidHorizon(horizon) {
		return nil, fmt.Errorf("invalid horizon: %s", horizon)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	report := uc.bench.Report(ctx)
	lb := &Leaderboard{
		Horizon:     horizon,
		GeneratedAt: report.GeneratedAt,
		Entries:     []LeaderboardEntry{},
	}
	if report.Invariants != nil {
		lb.Rankable = report.Invariants.ByHorizon[horizon].Rankable
	}
	if !lb.Rankable {
		return lb, nil
	}

	for name, mr := range report.Models {
		hr, ok := mr.ByHorizon[horizon]
		if !ok || !hr.Validity.Valid || hr.MeanLogLoss == nil {
			continue
		}
		lb.Entries = append(lb.Entries, LeaderboardEntry{
			Model:       name,
			MeanLogLoss: *hr.MeanLogLoss,
			MeanBrier:   hr.MeanBrier,
			Qualified:   hr.Qualified,
			Eliminated:  mr.Eliminated,
		})
	}
	sort.Slice(lb.Entries, func(i, j int) bool {
		if lb.Entries[i].MeanLogLoss != lb.Entries[j].MeanLogLoss {
			return lb.Entries[i].MeanLogLoss < lb.Entries[j].MeanLogLoss
		}
		return lb.Entries[i].Model < lb.Entries[j].Model
	})
	if len(lb.Entries) > limit {
		lb.Entries = lb.Entries[:limit]
	}
	for i := range lb.Entries {
		lb.Entries[i].Rank = i + 1
	}
	return lb, nil
}

// EnsembleRounds is a page of ensemble results with the running mean loss
// over scoreable, labeled rounds.
type EnsembleRounds struct {
	Horizon     models.Horizon         `json:"horizon"`
	MeanLogLoss *float64               `json:"mean_log_loss,omitempty"`
	Results     []models.EnsembleResult `json:"results"`
}

// GetEnsembleRounds returns the ensemble history for one horizon starting at
// round from (0 means from the beginning).
func (uc *ReportsUseCase) GetEnsembleRounds(ctx context.Context, horizon models.Horizon, from, limit int) (*EnsembleRounds, error) {
	if !models.IsValidHorizon(horizon) {
		return nil, fmt.Errorf("invalid horizon: %s", horizon)
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	report := uc.bench.Report(ctx)
	out := &EnsembleRounds{Horizon: horizon, Results: []models.EnsembleResult{}}

	sum, n := 0.0, 0
	for _, r := range report.Ensemble {
		if r.Horizon != horizon {
			continue
		}
		if r.IsScoreable && r.Label != nil {
			sum += scoring.LogLoss(r.Probability, *r.Label)
			n++
		}
		if r.Round < from {
			continue
		}
		if len(out.Results) < limit {
			out.Results = append(out.Results, r)
		}
	}
	if n > 0 {
		m := sum / float64(n)
		out.MeanLogLoss = &m
	}
	return out, nil
}
