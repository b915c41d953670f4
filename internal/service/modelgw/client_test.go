package modelgw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ForecastBench/internal/domain/models"
)

func TestPredictSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prob":0.73}`))
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 2*time.Second)
	pred, err := g.Predict(context.Background(), 5, models.H1h)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Model != "m1" || pred.Prob != 0.73 {
		t.Fatalf("prediction = %+v", pred)
	}
}

func TestPredictMissingProbIsSchemaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 2*time.Second)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureSchema)
}

func TestPredictOutOfRangeProbIsSchemaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prob":1.7}`))
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 2*time.Second)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureSchema)
}

func TestPredictMalformedBodyIsParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prob":`))
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 2*time.Second)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureParse)
}

func TestPredictServerErrorIsOtherFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 2*time.Second)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureOther)
}

func TestPredictConnectionRefusedIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := New("m1", url, 2*time.Second)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureTransport)
}

func TestPredictTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"prob":0.5}`))
	}))
	defer srv.Close()

	g := New("m1", srv.URL, 50*time.Millisecond)
	_, err := g.Predict(context.Background(), 1, models.H1h)
	assertFailure(t, err, models.FailureTimeout)
}

func assertFailure(t *testing.T, err error, want models.FailureType) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with failure %s", want)
	}
	var pe *PredictionError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a PredictionError", err)
	}
	if pe.Failure != want {
		t.Fatalf("failure = %s, want %s", pe.Failure, want)
	}
}
