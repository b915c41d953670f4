package usecase

import (
	"context"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"
	mid "ForecastBench/internal/middleware"
)

// ResolutionCollector consumes the ground-truth resolver feed and applies
// settled labels to the benchmark's histories.
type ResolutionCollector struct {
	stream  drepo.LabelStream
	bench   *Benchmark
	metrics drepo.Metrics
	pipe    *mid.ResolutionPipeline
}

// NewResolutionCollector creates a new ResolutionCollector instance.
func NewResolutionCollector(stream drepo.LabelStream, bench *Benchmark, metrics drepo.Metrics, pipe *mid.ResolutionPipeline) *ResolutionCollector {
	return &ResolutionCollector{stream: stream, bench: bench, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the resolver stream is connected.
func (c *ResolutionCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *ResolutionCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	resCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, resCh, errCh)
	return nil
}

func (c *ResolutionCollector) consume(ctx context.Context, resCh <-chan *models.LabelResolution, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case r := <-resCh:
			if r == nil {
				continue
			}
			c.bench.Resolve(ctx, r)
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, r)
			}
		}
	}
}

func (c *ResolutionCollector) Stop() error { return c.stream.Close() }

// Shutdown stops the pipeline and closes the stream.
func (c *ResolutionCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
