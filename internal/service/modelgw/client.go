package modelgw

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"ForecastBench/internal/domain/models"
	phttp "ForecastBench/pkg/http"
)

// Prediction is one model's answer for a (round, horizon) query.
type Prediction struct {
	Model string
	Prob  float64
}

// PredictionError carries the failure classification alongside the cause.
type PredictionError struct {
	Model   string
	Failure models.FailureType
	Err     error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("model %s: %s: %v", e.Model, e.Failure, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// Gateway queries candidate model endpoints over HTTP.
type Gateway struct {
	id      string
	url     string
	timeout time.Duration
	client  *phttp.Client
}

// New creates a gateway for a single model endpoint.
func New(id, url string, timeout time.Duration) *Gateway {
	return &Gateway{
		id:      id,
		url:     url,
		timeout: timeout,
		client:  phttp.NewClient(phttp.WithTimeout(timeout)),
	}
}

// ID returns the model identifier this gateway queries.
func (g *Gateway) ID() string { return g.id }

type predictRequest struct {
	Round   int    `json:"round"`
	Horizon string `json:"horizon"`
}

type predictResponse struct {
	Prob *float64 `json:"prob"`
}

// Predict asks the model for the probability of the event resolving true
// at the given horizon. Failures are classified so the benchmark can
// attribute them per model.
func (g *Gateway) Predict(ctx context.Context, round int, horizon models.Horizon) (*Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var resp predictResponse
	err := g.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodPost,
		URL:    g.url,
		Body:   predictRequest{Round: round, Horizon: string(horizon)},
	}, &resp)
	if err != nil {
		return nil, &PredictionError{Model: g.id, Failure: classify(err), Err: err}
	}

	if resp.Prob == nil {
		return nil, &PredictionError{
			Model:   g.id,
			Failure: models.FailureSchema,
			Err:     errors.New("response missing prob"),
		}
	}
	p := *resp.Prob
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, &PredictionError{
			Model:   g.id,
			Failure: models.FailureSchema,
			Err:     fmt.Errorf("prob %v outside [0, 1]", p),
		}
	}

	return &Prediction{Model: g.id, Prob: p}, nil
}

func classify(err error) models.FailureType {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return models.FailureTimeout
		}
		return models.FailureTransport
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "decode json"):
		return models.FailureParse
	case strings.Contains(msg, "request failed"):
		return models.FailureTransport
	case strings.Contains(msg, "unexpected status"):
		return models.FailureOther
	default:
		return models.FailureOther
	}
}
