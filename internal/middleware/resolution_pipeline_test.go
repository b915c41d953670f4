package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ForecastBench/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordOutcome(string, string)              {}
func (nopMetrics) RecordFailure(string, string)              {}
func (nopMetrics) RecordRoundScored(string)                  {}
func (nopMetrics) RecordEnsembleProbability(string, float64) {}
func (nopMetrics) RecordWeightEntropy(string, float64)       {}
func (nopMetrics) RecordError(string)                        {}
func (nopMetrics) RecordLatency(string, float64)             {}

type captureProc struct {
	mu   sync.Mutex
	got  []*models.LabelResolution
	fail error
}

func (p *captureProc) Process(_ context.Context, r *models.LabelResolution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, r)
	return nil
}

func (p *captureProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

func TestPipelineRejectsInvalidResolutions(t *testing.T) {
	proc := &captureProc{}
	p := NewResolutionPipeline(proc, nopMetrics{})

	cases := []*models.LabelResolution{
		nil,
		{Round: 0, Horizon: models.H1h},
		{Round: 3, Horizon: models.Horizon("2w")},
	}
	for i, r := range cases {
		if err := p.Process(context.Background(), r); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid resolutions must not reach downstream")
	}
}

func TestPipelineSuppressesDuplicates(t *testing.T) {
	proc := &captureProc{}
	p := NewResolutionPipeline(proc, nopMetrics{})
	ctx := context.Background()

	r := &models.LabelResolution{Round: 7, Horizon: models.H4h, Label: true}
	if err := p.Process(ctx, r); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := p.Process(ctx, r); err != nil {
		t.Fatalf("duplicate must be dropped silently, got %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("downstream calls = %d, want 1", proc.count())
	}

	// same round on another horizon is a distinct resolution
	other := &models.LabelResolution{Round: 7, Horizon: models.H24h, Label: false}
	if err := p.Process(ctx, other); err != nil {
		t.Fatalf("other horizon: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("downstream calls = %d, want 2", proc.count())
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &captureProc{fail: errors.New("clickhouse down")}
	p := NewResolutionPipeline(proc, nopMetrics{}, WithBufferSize(4))
	ctx := context.Background()

	r := &models.LabelResolution{Round: 1, Horizon: models.H15m, Label: true}
	if err := p.Process(ctx, r); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffered = %d, want 1", len(p.bufCh))
	}
}

func TestPipelineEvictsStaleDedupEntries(t *testing.T) {
	proc := &captureProc{}
	p := NewResolutionPipeline(proc, nopMetrics{})
	ctx := context.Background()

	for round := 1; round <= seenRetentionRounds+2; round++ {
		r := &models.LabelResolution{Round: round, Horizon: models.H1h, Label: true}
		if err := p.Process(ctx, r); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}

	p.mu.Lock()
	size := len(p.seen)
	_, round1Kept := p.seen[resolutionKey{round: 1, horizon: models.H1h}]
	p.mu.Unlock()
	if round1Kept {
		t.Fatalf("round 1 entry should be evicted after %d rounds", seenRetentionRounds+2)
	}
	if size > seenRetentionRounds+1 {
		t.Fatalf("dedup map size = %d, must stay bounded", size)
	}
}
