package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ForecastBench/internal/domain/models"
	domrepo "ForecastBench/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, r *models.LabelResolution) error
}

// ResolutionPipeline sits between the resolver feed and persistence.
// It validates, suppresses duplicate resolutions the feed re-sends, and
// buffers when downstream is unavailable.
type ResolutionPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	bufSize  int
	bufCh    chan *models.LabelResolution
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	seen     map[resolutionKey]struct{} // (round, horizon) already accepted
	seenHigh int                        // highest round in seen
	// metrics
	bufDepthGauge func(int)
	dupWarn       func(string)
}

// seenRetentionRounds bounds the dedup map: entries this many rounds behind
// the newest accepted round are evicted, since the feed only re-sends
// recent resolutions.
const seenRetentionRounds = 500

type resolutionKey struct {
	round   int
	horizon models.Horizon
}

type PipelineOption func(*ResolutionPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *ResolutionPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewResolutionPipeline creates a new pipeline.
func NewResolutionPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ResolutionPipeline {
	p := &ResolutionPipeline{
		proc:    proc,
		metrics: metrics,
		bufSize: 1000, // default buffer
		bufCh:   make(chan *models.LabelResolution, 1000),
		stopCh:  make(chan struct{}),
		seen:    make(map[resolutionKey]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.LabelResolution, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.dupWarn = func(h string) { p.metrics.RecordError("pipeline_duplicate_" + h) }
	return p
}

// Start launches background flushing of buffered resolutions.
func (p *ResolutionPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case r := <-p.bufCh:
				if r == nil {
					continue
				}
				if err := p.proc.Process(ctx, r); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- r:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *ResolutionPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards a resolution downstream,
// buffering on errors.
func (p *ResolutionPipeline) Process(ctx context.Context, r *models.LabelResolution) error {
	start := time.Now()
	if err := validateResolution(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(r) {
		// duplicate; record and drop silently
		p.metrics.RecordError("pipeline_duplicate")
		if p.dupWarn != nil {
			p.dupWarn(string(r.Horizon))
		}
		return nil
	}

	if err := p.proc.Process(ctx, r); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- r:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateResolution(r *models.LabelResolution) error {
	if r == nil {
		return fmt.Errorf("resolution nil")
	}
	if r.Round <= 0 {
		return fmt.Errorf("round invalid")
	}
	if !models.IsValidHorizon(r.Horizon) {
		return fmt.Errorf("horizon invalid")
	}
	return nil
}

func (p *ResolutionPipeline) accept(r *models.LabelResolution) bool {
	k := resolutionKey{round: r.Round, horizon: r.Horizon}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.seen[k]; dup {
		return false
	}
	p.seen[k] = struct{}{}
	if r.Round > p.seenHigh {
		p.seenHigh = r.Round
		if floor := p.seenHigh - seenRetentionRounds; floor > 0 {
			for old := range p.seen {
				if old.round < floor {
					delete(p.seen, old)
				}
			}
		}
	}
	return true
}
