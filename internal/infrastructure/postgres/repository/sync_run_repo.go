package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

type DefaultSyncRunRepository struct {
	DB *gorm.DB
}

func NewDefaultSyncRunRepository(db *gorm.DB) *DefaultSyncRunRepository {
	return &DefaultSyncRunRepository{
		DB: db,
	}
}

func (r *DefaultSyncRunRepository) SaveSyncRun(ctx context.Context, run *domain.SyncRunSummary) error {
	model, err := mappers.ToGORMSyncRun(run)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Create(model).Error
}

func (r *DefaultSyncRunRepository) GetLatestSyncRuns(ctx context.Context, limit int) ([]*domain.SyncRunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	var runModels []*models.SyncRunModel
	if err := r.DB.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}

	runs := make([]*domain.SyncRunSummary, 0, len(runModels))
	for _, model := range runModels {
		run, err := mappers.ToDomainSyncRun(model)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
