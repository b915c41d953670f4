package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"
	"ForecastBench/internal/scoring"
	"ForecastBench/internal/service/cache"
	"ForecastBench/pkg/logger"
	"ForecastBench/pkg/queue"
)

const reportCacheKey = "run_report"

// ReportRefreshType is the queue message type that triggers a report warmup.
const ReportRefreshType = "report.refresh"

// ReportRefreshPayload asks a worker to rebuild the report after a label
// settles.
type ReportRefreshPayload struct {
	Round   int    `json:"round"`
	Horizon string `json:"horizon"`
}

// Benchmark owns the model histories and is their single writer. All report
// output is recomputed from history on demand; nothing incremental is kept
// between recomputations.
type Benchmark struct {
	mu        sync.RWMutex
	histories map[string]*models.ModelHistory
	rounds    int

	th      scoring.Thresholds
	proc    *OutcomeProcessor
	metrics drepo.Metrics
	log     *logger.Logger

	reports   *cache.TTLCache
	reportTTL time.Duration

	queue queue.QueueService
}

// SetQueue wires an optional job queue; when set, each applied resolution
// enqueues a report warmup instead of leaving the rebuild to the first reader.
func (b *Benchmark) SetQueue(q queue.QueueService) { b.queue = q }

// NewBenchmark creates the benchmark use case. Histories loaded from storage
// at startup may be passed in; pass nil to start empty.
func NewBenchmark(
	histories map[string]*models.ModelHistory,
	th scoring.Thresholds,
	proc *OutcomeProcessor,
	metrics drepo.Metrics,
	log *logger.Logger,
	reportTTL time.Duration,
) *Benchmark {
	if histories == nil {
		histories = make(map[string]*models.ModelHistory)
	}
	rounds := 0
	for _, h := range histories {
		for _, hz := range models.AllHorizons() {
			for _, o := range h.Outcomes(hz) {
				if o.Round > rounds {
					rounds = o.Round
				}
			}
		}
	}
	return &Benchmark{
		histories: histories,
		rounds:    rounds,
		th:        th,
		proc:      proc,
		metrics:   metrics,
		log:       log,
		reports:   cache.NewTTLCache(),
		reportTTL: reportTTL,
	}
}

// Rounds returns the highest round recorded so far.
func (b *Benchmark) Rounds() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rounds
}

// RecordRound appends one round's outcomes across all models and horizons,
// then forwards them to the configured backend.
func (b *Benchmark) RecordRound(ctx context.Context, round int, outcomes []*models.RoundOutcome) error {
	b.mu.Lock()
	for _, o := range outcomes {
		h, ok := b.histories[o.Model]
		if !ok {
			h = models.NewModelHistory(o.Model)
			b.histories[o.Model] = h
		}
		h.Append(*o)
		if o.Failed {
			b.metrics.RecordFailure(o.Model, string(o.Failure))
		}
	}
	if round > b.rounds {
		b.rounds = round
	}
	b.mu.Unlock()

	b.invalidate()

	if b.proc != nil {
		if err := b.proc.ProcessBatch(ctx, outcomes); err != nil {
			b.log.Error("forward round outcomes", logger.Int("round", round), logger.Error(err))
			return err
		}
	}
	return nil
}

// Resolve applies a settled label to every model's outcome at the given
// round and horizon. Models that missed the round are unaffected.
func (b *Benchmark) Resolve(ctx context.Context, res *models.LabelResolution) {
	b.mu.Lock()
	applied := 0
	for _, h := range b.histories {
		if h.Resolve(res.Round, res.Horizon, res.Label) {
			applied++
		}
	}
	b.mu.Unlock()

	if applied > 0 {
		b.metrics.RecordRoundScored(string(res.Horizon))
		b.invalidate()
		if b.queue != nil {
			payload := ReportRefreshPayload{Round: res.Round, Horizon: string(res.Horizon)}
			if err := b.queue.PublishMessage(ctx, ReportRefreshType, payload); err != nil {
				b.log.Warn("enqueue report refresh", logger.Error(err))
			}
		}
	}
	b.log.Debug("label resolved",
		logger.Int("round", res.Round),
		logger.String("horizon", string(res.Horizon)),
		logger.Bool("label", res.Label),
		logger.Int("models", applied))
}

// Report returns the consolidated run report, recomputing it from history
// when the cached copy has expired.
func (b *Benchmark) Report(ctx context.Context) *models.RunReport {
	if v, ok := b.reports.Get(reportCacheKey); ok {
		if r, ok2 := v.(*models.RunReport); ok2 {
			return r
		}
	}

	b.mu.RLock()
	r := b.compute()
	b.mu.RUnlock()

	b.reports.Set(reportCacheKey, r, b.reportTTL)
	return r
}

func (b *Benchmark) invalidate() {
	b.reports.Delete(reportCacheKey)
}

// compute rebuilds the full report under the read lock.
func (b *Benchmark) compute() *models.RunReport {
	start := time.Now()
	analysis := scoring.Analyze(b.histories, b.rounds, b.th)

	report := &models.RunReport{
		GeneratedAt: time.Now().UTC(),
		Rounds:      b.rounds,
		Diagnostics: analysis.Diagnostics,
		Models:      make(map[string]models.ModelReport, len(b.histories)),
		Invariants:  analysis.Invariants,
	}

	eliminated := make(map[string]bool, len(analysis.Invariants.Eliminated))
	for _, m := range analysis.Invariants.Eliminated {
		eliminated[m] = true
	}

	for model, hist := range b.histories {
		mr := models.ModelReport{
			Model:      model,
			Failures:   hist.Failures(),
			ByHorizon:  make(map[models.Horizon]models.ModelHorizonReport),
			Eliminated: eliminated[model],
		}
		for _, hz := range models.AllHorizons() {
			if hist.IntendedRounds(hz) == 0 {
				continue
			}
			mr.ByHorizon[hz] = b.horizonReport(model, hist, hz, analysis)
		}
		report.Models[model] = mr
	}

	report.Ensemble = b.replayEnsemble()

	latest := make(map[models.Horizon]models.EnsembleResult, len(models.AllHorizons()))
	for _, r := range report.Ensemble {
		if r.IsScoreable {
			latest[r.Horizon] = r
		}
	}
	for hz, r := range latest {
		b.metrics.RecordEnsembleProbability(string(hz), r.Probability)
		b.metrics.RecordWeightEntropy(string(hz), r.WeightEntropy)
	}

	b.metrics.RecordLatency("report_compute", time.Since(start).Seconds())
	return report
}

func (b *Benchmark) horizonReport(model string, hist *models.ModelHistory, hz models.Horizon, analysis *scoring.RunAnalysis) models.ModelHorizonReport {
	hr := models.ModelHorizonReport{
		Horizon:         hz,
		EffectiveRounds: hist.EffectiveRounds(hz),
		Validity:        analysis.Validity[model].ByHorizon[hz],
		Qualified:       analysis.Qualification[hz].IsQualified(model),
	}
	if s, ok := analysis.Stability[hz][model]; ok {
		stab := s
		hr.Stability = &stab
	}

	preds, labels := scoredPairs(hist, hz)
	if len(preds) == 0 {
		return hr
	}
	if v, err := scoring.MeanLogLoss(preds, labels); err == nil {
		hr.MeanLogLoss = &v
	}
	if v, err := scoring.MeanBrier(preds, labels); err == nil {
		hr.MeanBrier = &v
	}
	if v, err := scoring.CalibrationSlope(preds, labels); err == nil && !math.IsNaN(v) {
		hr.CalibrationSlope = &v
	}
	if v, err := scoring.ExpectedCalibrationError(preds, labels, scoring.DefaultBins); err == nil {
		hr.ECE = &v
	}
	return hr
}

// replayEnsemble recomputes the online ensemble estimate for every recorded
// round and horizon, each round seeing only the scored history strictly
// before it.
func (b *Benchmark) replayEnsemble() []models.EnsembleResult {
	out := make([]models.EnsembleResult, 0, b.rounds*len(models.AllHorizons()))
	for _, hz := range models.AllHorizons() {
		for round := 1; round <= b.rounds; round++ {
			inputs := make([]scoring.EnsembleInput, 0, len(b.histories))
			var label *bool
			for model, hist := range b.histories {
				in := scoring.EnsembleInput{Model: model}
				for _, o := range hist.Outcomes(hz) {
					switch {
					case o.Round < round:
						if o.Scoreable() {
							in.TrailingLosses = append(in.TrailingLosses, scoring.LogLoss(o.Prob, o.Label))
							in.EffectiveRounds++
						}
					case o.Round == round:
						if !o.Failed {
							in.Valid = true
							in.Prob = o.Prob
						}
						if o.HasLabel && label == nil {
							l := o.Label
							label = &l
						}
					}
				}
				inputs = append(inputs, in)
			}
			res := scoring.CombineRound(round, hz, inputs, b.th)
			res.Label = label
			out = append(out, res)
		}
	}
	return out
}

func scoredPairs(hist *models.ModelHistory, hz models.Horizon) ([]float64, []bool) {
	outcomes := hist.Outcomes(hz)
	preds := make([]float64, 0, len(outcomes))
	labels := make([]bool, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Scoreable() {
			continue
		}
		preds = append(preds, o.Prob)
		labels = append(labels, o.Label)
	}
	return preds, labels
}

// Histories returns a point-in-time snapshot keyed by model. The histories
// themselves are shared; callers use read-only accessors.
func (b *Benchmark) Histories() map[string]*models.ModelHistory {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]*models.ModelHistory, len(b.histories))
	for m, h := range b.histories {
		out[m] = h
	}
	return out
}
