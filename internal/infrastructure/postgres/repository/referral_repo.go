package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

type DefaultReferralRepository struct {
	DB *gorm.DB
}

func NewDefaultReferralRepository(db *gorm.DB) *DefaultReferralRepository {
	return &DefaultReferralRepository{
		DB: db,
	}
}

func (r *DefaultReferralRepository) GetActiveEdgesByPartnerIDs(ctx context.Context, partnerIDs []string) ([]*domain.ReferralEdge, error) {
	if len(partnerIDs) == 0 {
		return nil, nil
	}
	var edgeModels []*models.ReferralEdgeModel
	if err := r.DB.WithContext(ctx).
		Where("partner_id IN ? AND active", partnerIDs).
		Order("created_at, id").
		Find(&edgeModels).Error; err != nil {
		return nil, err
	}

	edges := make([]*domain.ReferralEdge, len(edgeModels))
	for i, model := range edgeModels {
		edges[i] = mappers.ToDomainReferralEdge(model)
	}
	return edges, nil
}

// GetActiveEdgeByUserID returns nil without error when the user has no
// active referrer.
func (r *DefaultReferralRepository) GetActiveEdgeByUserID(ctx context.Context, userID string) (*domain.ReferralEdge, error) {
	var model models.ReferralEdgeModel
	if err := r.DB.WithContext(ctx).Where("user_id = ? AND active", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return mappers.ToDomainReferralEdge(&model), nil
}

// Reassign deactivates the user's current edge, inserts the new one and
// appends the history entry atomically.
func (r *DefaultReferralRepository) Reassign(ctx context.Context, edge *domain.ReferralEdge, history *domain.ReferralHistory) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ReferralEdgeModel{}).
			Where("user_id = ? AND active", edge.UserID).
			Updates(map[string]interface{}{
				"active":         false,
				"deactivated_at": edge.CreatedAt,
			}).Error; err != nil {
			return err
		}
		if err := tx.Create(mappers.ToGORMReferralEdge(edge)).Error; err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		return tx.Create(mappers.ToGORMReferralHistory(history)).Error
	})
}

func (r *DefaultReferralRepository) GetHistoryByUserID(ctx context.Context, userID string) ([]*domain.ReferralHistory, error) {
	var historyModels []*models.ReferralHistoryModel
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("changed_at, id").
		Find(&historyModels).Error; err != nil {
		return nil, err
	}

	history := make([]*domain.ReferralHistory, len(historyModels))
	for i, model := range historyModels {
		history[i] = mappers.ToDomainReferralHistory(model)
	}
	return history, nil
}
