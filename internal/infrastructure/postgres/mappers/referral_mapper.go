package mappers

import (
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

func ToDomainReferralEdge(model *models.ReferralEdgeModel) *domain.ReferralEdge {
	return &domain.ReferralEdge{
		ID:            model.ID,
		UserID:        model.UserID,
		PartnerID:     model.PartnerID,
		Active:        model.Active,
		CreatedAt:     model.CreatedAt,
		DeactivatedAt: model.DeactivatedAt,
	}
}

func ToGORMReferralEdge(edge *domain.ReferralEdge) *models.ReferralEdgeModel {
	return &models.ReferralEdgeModel{
		ID:            edge.ID,
		UserID:        edge.UserID,
		PartnerID:     edge.PartnerID,
		Active:        edge.Active,
		CreatedAt:     edge.CreatedAt,
		DeactivatedAt: edge.DeactivatedAt,
	}
}

func ToDomainReferralHistory(model *models.ReferralHistoryModel) *domain.ReferralHistory {
	return &domain.ReferralHistory{
		ID:            model.ID,
		UserID:        model.UserID,
		FromPartnerID: deref(model.FromPartnerID),
		ToPartnerID:   model.ToPartnerID,
		Reason:        model.Reason,
		ChangedAt:     model.ChangedAt,
	}
}

func ToGORMReferralHistory(h *domain.ReferralHistory) *models.ReferralHistoryModel {
	return &models.ReferralHistoryModel{
		ID:            h.ID,
		UserID:        h.UserID,
		FromPartnerID: nullable(h.FromPartnerID),
		ToPartnerID:   h.ToPartnerID,
		Reason:        h.Reason,
		ChangedAt:     h.ChangedAt,
	}
}
