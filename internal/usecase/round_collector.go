package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"
	"ForecastBench/internal/service/modelgw"
	"ForecastBench/internal/service/ratelimit"
	"ForecastBench/pkg/logger"
)

// RoundCollector runs the prediction rounds: on each tick it queries every
// model endpoint for every horizon in parallel and records the outcomes.
// One model's failure never blocks another's answer.
type RoundCollector struct {
	gateways    []*modelgw.Gateway
	bench       *Benchmark
	metrics     drepo.Metrics
	log         *logger.Logger
	limiter     *ratelimit.Limiter
	interval    time.Duration
	maxParallel int

	stopCh chan struct{}
	once   sync.Once
}

// NewRoundCollector creates a new RoundCollector instance.
func NewRoundCollector(
	gateways []*modelgw.Gateway,
	bench *Benchmark,
	metrics drepo.Metrics,
	log *logger.Logger,
	interval time.Duration,
	maxParallel int,
) *RoundCollector {
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &RoundCollector{
		gateways:    gateways,
		bench:       bench,
		metrics:     metrics,
		log:         log,
		limiter:     ratelimit.New(),
		interval:    interval,
		maxParallel: maxParallel,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the round loop.
func (c *RoundCollector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				round := c.bench.Rounds() + 1
				c.RunRound(ctx, round)
			}
		}
	}()
}

// Stop halts the round loop.
func (c *RoundCollector) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

// RunRound queries every model for every horizon and records the round.
func (c *RoundCollector) RunRound(ctx context.Context, round int) {
	start := time.Now()
	horizons := models.AllHorizons()
	results := make([]*models.RoundOutcome, len(c.gateways)*len(horizons))

	sem := make(chan struct{}, c.maxParallel)
	var wg sync.WaitGroup
	for gi, gw := range c.gateways {
		for hi, hz := range horizons {
			wg.Add(1)
			go func(idx int, gw *modelgw.Gateway, hz models.Horizon) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results[idx] = c.query(ctx, gw, round, hz)
			}(gi*len(horizons)+hi, gw, hz)
		}
	}
	wg.Wait()

	outcomes := make([]*models.RoundOutcome, 0, len(results))
	for _, o := range results {
		if o != nil {
			outcomes = append(outcomes, o)
		}
	}

	if err := c.bench.RecordRound(ctx, round, outcomes); err != nil {
		c.log.Error("record round", logger.Int("round", round), logger.Error(err))
	}
	c.metrics.RecordLatency("round_collect", time.Since(start).Seconds())
	c.log.Info("round collected",
		logger.Int("round", round),
		logger.Int("outcomes", len(outcomes)),
		logger.Duration("elapsed", time.Since(start)))
}

// query asks one model for one horizon. Rate limiting protects endpoints
// from bursts when all horizons fire at once.
func (c *RoundCollector) query(ctx context.Context, gw *modelgw.Gateway, round int, hz models.Horizon) *models.RoundOutcome {
	for !c.limiter.Allow(gw.ID(), float64(len(models.AllHorizons())), 2.0) {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}

	o := &models.RoundOutcome{
		Round:   round,
		Model:   gw.ID(),
		Horizon: hz,
		At:      time.Now().UTC(),
	}
	pred, err := gw.Predict(ctx, round, hz)
	if err != nil {
		o.Failed = true
		o.Failure = models.FailureOther
		var perr *modelgw.PredictionError
		if errors.As(err, &perr) {
			o.Failure = perr.Failure
		}
		c.log.Warn("model failed",
			logger.String("model", gw.ID()),
			logger.String("horizon", string(hz)),
			logger.String("failure", string(o.Failure)),
			logger.Error(err))
		return o
	}
	o.Prob = pred.Prob
	return o
}
