package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ForecastBench/internal/domain/models"
	domrepo "ForecastBench/internal/domain/repository"
	pkgkafka "ForecastBench/pkg/kafka"
)

// KafkaOutcomesHandler consumes outcome messages and writes them to storage.
// It is the persistence leg of the kafka backend: producers publish round
// outcomes, this handler lands them in ClickHouse.
type KafkaOutcomesHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var o models.RoundOutcome
	if err := json.Unmarshal(b, &o); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if !models.IsValidHorizon(o.Horizon) {
		h.metrics.RecordError("consumer_horizon")
		return nil // poison message, do not retry
	}
	if !o.At.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(o.At).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &o)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordOutcome(o.Model, string(o.Horizon))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
