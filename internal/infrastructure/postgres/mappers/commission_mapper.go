package mappers

import (
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

func ToDomainPartnerCommission(model *models.PartnerCommissionModel) *domain.PartnerCommission {
	return &domain.PartnerCommission{
		PartnerID: model.PartnerID,
		Totals: domain.CommissionTotals{
			Fixed:       model.Fixed,
			SpreadShare: model.SpreadShare,
			Total:       model.Total,
			TotalTrades: model.TotalTrades,
			TotalLots:   model.TotalLots,
		},
		ComputedAt: model.ComputedAt,
	}
}

func ToGORMPartnerCommission(c *domain.PartnerCommission) *models.PartnerCommissionModel {
	return &models.PartnerCommissionModel{
		PartnerID:   c.PartnerID,
		Fixed:       c.Totals.Fixed,
		SpreadShare: c.Totals.SpreadShare,
		Total:       c.Totals.Total,
		TotalTrades: c.Totals.TotalTrades,
		TotalLots:   c.Totals.TotalLots,
		ComputedAt:  c.ComputedAt,
	}
}

func ToDomainCommissionSnapshot(model *models.CommissionSnapshotModel) *domain.CommissionSnapshot {
	return &domain.CommissionSnapshot{
		PartnerID:      model.PartnerID,
		ReferredUserID: model.ReferredUserID,
		Totals: domain.CommissionTotals{
			Fixed:       model.Fixed,
			SpreadShare: model.SpreadShare,
			Total:       model.Total,
			TotalTrades: model.TotalTrades,
			TotalLots:   model.TotalLots,
		},
		ComputedAt: model.ComputedAt,
	}
}

func ToGORMCommissionSnapshot(s *domain.CommissionSnapshot) *models.CommissionSnapshotModel {
	return &models.CommissionSnapshotModel{
		PartnerID:      s.PartnerID,
		ReferredUserID: s.ReferredUserID,
		Fixed:          s.Totals.Fixed,
		SpreadShare:    s.Totals.SpreadShare,
		Total:          s.Totals.Total,
		TotalTrades:    s.Totals.TotalTrades,
		TotalLots:      s.Totals.TotalLots,
		ComputedAt:     s.ComputedAt,
	}
}
