package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ForecastBench/internal/domain/models"
)

type fakeStorage struct {
	stored []*models.RoundOutcome
	fail   error
}

func (f *fakeStorage) Init(context.Context) error { return nil }

func (f *fakeStorage) Store(_ context.Context, o *models.RoundOutcome) error {
	if f.fail != nil {
		return f.fail
	}
	f.stored = append(f.stored, o)
	return nil
}

func (f *fakeStorage) StoreBatch(ctx context.Context, os []*models.RoundOutcome) error {
	for _, o := range os {
		if err := f.Store(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStorage) StoreResolution(context.Context, *models.LabelResolution) error { return nil }

func (f *fakeStorage) LoadHistories(context.Context) (map[string]*models.ModelHistory, error) {
	return nil, nil
}

func (f *fakeStorage) Health(context.Context) error { return nil }
func (f *fakeStorage) Close() error                 { return nil }

func TestKafkaOutcomesHandlerStoresMessage(t *testing.T) {
	st := &fakeStorage{}
	h := NewKafkaOutcomesHandler("bench.round_outcomes", st, nopMetrics{})

	o := models.RoundOutcome{
		Round:   3,
		Model:   "m1",
		Horizon: models.H4h,
		Prob:    0.42,
		At:      time.Now().UTC(),
	}
	b, _ := json.Marshal(o)
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(st.stored) != 1 {
		t.Fatalf("stored = %d, want 1", len(st.stored))
	}
	if st.stored[0].Model != "m1" || st.stored[0].Prob != 0.42 {
		t.Fatalf("stored outcome = %+v", st.stored[0])
	}
}

func TestKafkaOutcomesHandlerRejectsGarbage(t *testing.T) {
	h := NewKafkaOutcomesHandler("t", &fakeStorage{}, nopMetrics{})
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestKafkaOutcomesHandlerDropsInvalidHorizon(t *testing.T) {
	st := &fakeStorage{}
	h := NewKafkaOutcomesHandler("t", st, nopMetrics{})

	b, _ := json.Marshal(models.RoundOutcome{Round: 1, Model: "m1", Horizon: "3w", Prob: 0.5})
	// poison messages are acked, not retried
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(st.stored) != 0 {
		t.Fatalf("invalid horizon must not reach storage")
	}
}

func TestKafkaOutcomesHandlerPropagatesStoreError(t *testing.T) {
	st := &fakeStorage{fail: errors.New("insert failed")}
	h := NewKafkaOutcomesHandler("t", st, nopMetrics{})

	b, _ := json.Marshal(models.RoundOutcome{Round: 1, Model: "m1", Horizon: models.H1h, Prob: 0.5})
	if err := h.Handle(context.Background(), b); err == nil {
		t.Fatalf("expected store error to propagate for retry")
	}
}
