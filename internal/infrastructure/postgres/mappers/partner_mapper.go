package mappers

import (
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

func ToDomainPartner(model *models.PartnerModel) *domain.Partner {
	return &domain.Partner{
		ID:                        model.ID,
		UserID:                    model.UserID,
		Email:                     model.Email,
		Name:                      model.Name,
		ReferredByPartnerID:       deref(model.ReferredByPartnerID),
		ReferralCode:              deref(model.ReferralCode),
		Status:                    domain.PartnerStatus(model.Status),
		DefaultUSDPerLot:          model.DefaultUSDPerLot,
		DefaultSpreadSharePercent: model.DefaultSpreadSharePercent,
		ApprovedAt:                model.ApprovedAt,
		CreatedAt:                 model.CreatedAt,
		UpdatedAt:                 model.UpdatedAt,
	}
}

func ToGORMPartner(partner *domain.Partner) *models.PartnerModel {
	return &models.PartnerModel{
		ID:                        partner.ID,
		UserID:                    partner.UserID,
		Email:                     partner.Email,
		Name:                      partner.Name,
		ReferredByPartnerID:       nullable(partner.ReferredByPartnerID),
		ReferralCode:              nullable(partner.ReferralCode),
		Status:                    string(partner.Status),
		DefaultUSDPerLot:          partner.DefaultUSDPerLot,
		DefaultSpreadSharePercent: partner.DefaultSpreadSharePercent,
		ApprovedAt:                partner.ApprovedAt,
		CreatedAt:                 partner.CreatedAt,
		UpdatedAt:                 partner.UpdatedAt,
	}
}

func ToDomainGroupAssignment(model *models.GroupAssignmentModel) *domain.GroupAssignment {
	return &domain.GroupAssignment{
		ID:                 model.ID,
		PartnerID:          model.PartnerID,
		GroupID:            model.GroupID,
		GroupName:          model.GroupName,
		USDPerLot:          model.USDPerLot,
		SpreadSharePercent: model.SpreadSharePercent,
		CreatedAt:          model.CreatedAt,
	}
}

func ToGORMGroupAssignment(a *domain.GroupAssignment) *models.GroupAssignmentModel {
	return &models.GroupAssignmentModel{
		ID:                 a.ID,
		PartnerID:          a.PartnerID,
		GroupID:            a.GroupID,
		GroupName:          a.GroupName,
		USDPerLot:          a.USDPerLot,
		SpreadSharePercent: a.SpreadSharePercent,
		CreatedAt:          a.CreatedAt,
	}
}

func ToDomainTradingAccount(model *models.TradingAccountModel) *domain.TradingAccount {
	return &domain.TradingAccount{
		ID:        model.ID,
		UserID:    model.UserID,
		Login:     model.Login,
		Password:  model.Password,
		CreatedAt: model.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
