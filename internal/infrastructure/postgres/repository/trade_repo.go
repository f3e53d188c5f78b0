package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

const tradeUpsertChunk = 500

// Columns refreshed when a trade is synced again. id, account_id,
// external_id and created_at are never touched.
var tradeMutableColumns = []string{
	"user_id",
	"partner_id",
	"symbol",
	"side",
	"volume",
	"open_price",
	"close_price",
	"profit",
	"group_at_sync",
	"commission",
	"open_time",
	"close_time",
	"updated_at",
}

type DefaultTradeRepository struct {
	DB *gorm.DB
}

func NewDefaultTradeRepository(db *gorm.DB) *DefaultTradeRepository {
	return &DefaultTradeRepository{
		DB: db,
	}
}

// UpsertTrades writes the batch keyed by (account_id, external_id). Callers
// pass each key at most once per batch; postgres rejects an ON CONFLICT
// statement that touches the same row twice.
func (r *DefaultTradeRepository) UpsertTrades(ctx context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	tradeModels := make([]*models.TradeRecordModel, len(trades))
	for i, t := range trades {
		model := mappers.ToGORMTrade(t)
		if model.ID == "" {
			model.ID = uuid.NewString()
		}
		tradeModels[i] = model
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(tradeMutableColumns),
		}).CreateInBatches(tradeModels, tradeUpsertChunk).Error
	})
}

func (r *DefaultTradeRepository) GetClosedTradesByUserIDs(ctx context.Context, userIDs []string) ([]*domain.TradeRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var tradeModels []*models.TradeRecordModel
	if err := r.DB.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("account_id, external_id").
		Find(&tradeModels).Error; err != nil {
		return nil, err
	}
	return toDomainTrades(tradeModels), nil
}

func (r *DefaultTradeRepository) GetTradesByAccountID(ctx context.Context, accountID string) ([]*domain.TradeRecord, error) {
	var tradeModels []*models.TradeRecordModel
	if err := r.DB.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("close_time DESC NULLS LAST, external_id").
		Find(&tradeModels).Error; err != nil {
		return nil, err
	}
	return toDomainTrades(tradeModels), nil
}

func (r *DefaultTradeRepository) PurgeTradesByAccountID(ctx context.Context, accountID string) (int64, error) {
	res := r.DB.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.TradeRecordModel{})
	return res.RowsAffected, res.Error
}

func toDomainTrades(tradeModels []*models.TradeRecordModel) []*domain.TradeRecord {
	trades := make([]*domain.TradeRecord, len(tradeModels))
	for i, model := range tradeModels {
		trades[i] = mappers.ToDomainTrade(model)
	}
	return trades
}
