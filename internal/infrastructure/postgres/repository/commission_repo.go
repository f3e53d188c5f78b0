package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

var commissionColumns = []string{
	"fixed",
	"spread_share",
	"total",
	"total_trades",
	"total_lots",
	"computed_at",
}

type DefaultCommissionRepository struct {
	DB *gorm.DB
}

func NewDefaultCommissionRepository(db *gorm.DB) *DefaultCommissionRepository {
	return &DefaultCommissionRepository{
		DB: db,
	}
}

// SaveSnapshots replaces the partner's per-user rows and total in one
// transaction. Users missing from perUser lose their row.
func (r *DefaultCommissionRepository) SaveSnapshots(ctx context.Context, total *domain.PartnerCommission, perUser []*domain.CommissionSnapshot) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Where("partner_id = ?", total.PartnerID)
		if len(perUser) > 0 {
			userIDs := make([]string, len(perUser))
			for i, s := range perUser {
				userIDs[i] = s.ReferredUserID
			}
			stale = stale.Where("referred_user_id NOT IN ?", userIDs)
		}
		if err := stale.Delete(&models.CommissionSnapshotModel{}).Error; err != nil {
			return err
		}

		if len(perUser) > 0 {
			snapshotModels := make([]*models.CommissionSnapshotModel, len(perUser))
			for i, s := range perUser {
				snapshotModels[i] = mappers.ToGORMCommissionSnapshot(s)
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "partner_id"}, {Name: "referred_user_id"}},
				DoUpdates: clause.AssignmentColumns(commissionColumns),
			}).Create(&snapshotModels).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partner_id"}},
			DoUpdates: clause.AssignmentColumns(commissionColumns),
		}).Create(mappers.ToGORMPartnerCommission(total)).Error
	})
}

func (r *DefaultCommissionRepository) GetPartnerCommission(ctx context.Context, partnerID string) (*domain.PartnerCommission, error) {
	var model models.PartnerCommissionModel
	if err := r.DB.WithContext(ctx).Where("partner_id = ?", partnerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}
	return mappers.ToDomainPartnerCommission(&model), nil
}

func (r *DefaultCommissionRepository) DeletePartnerCommission(ctx context.Context, partnerID string) error {
	return r.DB.WithContext(ctx).Where("partner_id = ?", partnerID).Delete(&models.PartnerCommissionModel{}).Error
}

func (r *DefaultCommissionRepository) GetSnapshotsByPartnerID(ctx context.Context, partnerID string) ([]*domain.CommissionSnapshot, error) {
	var snapshotModels []*models.CommissionSnapshotModel
	if err := r.DB.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("total DESC, referred_user_id").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}

	snapshots := make([]*domain.CommissionSnapshot, len(snapshotModels))
	for i, model := range snapshotModels {
		snapshots[i] = mappers.ToDomainCommissionSnapshot(model)
	}
	return snapshots, nil
}
