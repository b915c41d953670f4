package repository

import (
	"context"
	"testing"
	"time"

	"ForecastBench/internal/domain/models"
	"ForecastBench/pkg/cache"
)

type fakeHistoryStore struct {
	calls int
	rows  []models.RoundOutcome
}

func (f *fakeHistoryStore) GetOutcomes(_ context.Context, _ string, _ models.Horizon, _, _ int) ([]models.RoundOutcome, error) {
	f.calls++
	return f.rows, nil
}

func (f *fakeHistoryStore) GetLatestNOutcomes(_ context.Context, _ string, n int, _ models.Horizon) ([]models.RoundOutcome, error) {
	f.calls++
	if n > len(f.rows) {
		n = len(f.rows)
	}
	return f.rows[len(f.rows)-n:], nil
}

func TestCachedHistoryStoreReadThrough(t *testing.T) {
	inner := &fakeHistoryStore{rows: []models.RoundOutcome{
		{Round: 1, Model: "m1", Horizon: models.H1h, Prob: 0.6},
		{Round: 2, Model: "m1", Horizon: models.H1h, Prob: 0.7},
	}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedHistoryStore(inner, mc, time.Minute)
	ctx := context.Background()

	first, err := s.GetOutcomes(ctx, "m1", models.H1h, 1, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := s.GetOutcomes(ctx, "m1", models.H1h, 1, 2)
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1 (second read served from cache)", inner.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("rows = %d/%d, want 2/2", len(first), len(second))
	}
}

func TestCachedHistoryStoreDistinctKeys(t *testing.T) {
	inner := &fakeHistoryStore{rows: []models.RoundOutcome{
		{Round: 1, Model: "m1", Horizon: models.H1h, Prob: 0.6},
	}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedHistoryStore(inner, mc, time.Minute)
	ctx := context.Background()

	if _, err := s.GetOutcomes(ctx, "m1", models.H1h, 1, 5); err != nil {
		t.Fatalf("range: %v", err)
	}
	if _, err := s.GetLatestNOutcomes(ctx, "m1", 1, models.H1h); err != nil {
		t.Fatalf("latest: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2 for distinct queries", inner.calls)
	}
}
