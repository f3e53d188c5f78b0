package mappers

import (
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

func ToDomainTrade(model *models.TradeRecordModel) *domain.TradeRecord {
	return &domain.TradeRecord{
		ID:          model.ID,
		AccountID:   model.AccountID,
		ExternalID:  model.ExternalID,
		UserID:      model.UserID,
		PartnerID:   deref(model.PartnerID),
		Symbol:      model.Symbol,
		Side:        domain.TradeSide(model.Side),
		Volume:      model.Volume,
		OpenPrice:   model.OpenPrice,
		ClosePrice:  model.ClosePrice,
		Profit:      model.Profit,
		GroupAtSync: model.GroupAtSync,
		Commission:  model.Commission,
		OpenTime:    model.OpenTime,
		CloseTime:   model.CloseTime,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func ToGORMTrade(trade *domain.TradeRecord) *models.TradeRecordModel {
	return &models.TradeRecordModel{
		ID:          trade.ID,
		AccountID:   trade.AccountID,
		ExternalID:  trade.ExternalID,
		UserID:      trade.UserID,
		PartnerID:   nullable(trade.PartnerID),
		Symbol:      trade.Symbol,
		Side:        string(trade.Side),
		Volume:      trade.Volume,
		OpenPrice:   trade.OpenPrice,
		ClosePrice:  trade.ClosePrice,
		Profit:      trade.Profit,
		GroupAtSync: trade.GroupAtSync,
		Commission:  trade.Commission,
		OpenTime:    trade.OpenTime,
		CloseTime:   trade.CloseTime,
		CreatedAt:   trade.CreatedAt,
		UpdatedAt:   trade.UpdatedAt,
	}
}
