package usecase

import (
	"context"
	"fmt"

	"ForecastBench/internal/domain/models"
	drepo "ForecastBench/internal/domain/repository"
)

// ResolutionPersister is the downstream of the resolution pipeline: it lands
// settled labels in storage so that histories can be rebuilt on restart.
type ResolutionPersister struct {
	storage drepo.Storage
}

func NewResolutionPersister(storage drepo.Storage) *ResolutionPersister {
	return &ResolutionPersister{storage: storage}
}

func (p *ResolutionPersister) Process(ctx context.Context, r *models.LabelResolution) error {
	if p.storage == nil {
		return nil
	}
	if err := p.storage.StoreResolution(ctx, r); err != nil {
		return fmt.Errorf("store resolution: %w", err)
	}
	return nil
}
