package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/postgres/models"
)

type DefaultPartnerRepository struct {
	DB *gorm.DB
}

func NewDefaultPartnerRepository(db *gorm.DB) *DefaultPartnerRepository {
	return &DefaultPartnerRepository{
		DB: db,
	}
}

func (r *DefaultPartnerRepository) GetPartnerByID(ctx context.Context, partnerID string) (*domain.Partner, error) {
	var model models.PartnerModel
	if err := r.DB.WithContext(ctx).Where("id = ?", partnerID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, err
	}
	return mappers.ToDomainPartner(&model), nil
}

func (r *DefaultPartnerRepository) GetPartnerByUserID(ctx context.Context, userID string) (*domain.Partner, error) {
	var model models.PartnerModel
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, err
	}
	return mappers.ToDomainPartner(&model), nil
}

func (r *DefaultPartnerRepository) ListPartnersByStatus(ctx context.Context, status domain.PartnerStatus) ([]*domain.Partner, error) {
	var partnerModels []*models.PartnerModel
	if err := r.DB.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("id").
		Find(&partnerModels).Error; err != nil {
		return nil, err
	}

	partners := make([]*domain.Partner, len(partnerModels))
	for i, model := range partnerModels {
		partners[i] = mappers.ToDomainPartner(model)
	}
	return partners, nil
}

func (r *DefaultPartnerRepository) UpdatePartnerStatus(ctx context.Context, partnerID string, status domain.PartnerStatus) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":     string(status),
		"updated_at": now,
	}
	if status == domain.PartnerApproved {
		updates["approved_at"] = gorm.Expr("COALESCE(approved_at, ?)", now)
	}

	res := r.DB.WithContext(ctx).Model(&models.PartnerModel{}).Where("id = ?", partnerID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

func (r *DefaultPartnerRepository) SetReferralCode(ctx context.Context, partnerID, code string) error {
	res := r.DB.WithContext(ctx).Model(&models.PartnerModel{}).Where("id = ?", partnerID).Updates(map[string]interface{}{
		"referral_code": code,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

type DefaultGroupAssignmentRepository struct {
	DB *gorm.DB
}

func NewDefaultGroupAssignmentRepository(db *gorm.DB) *DefaultGroupAssignmentRepository {
	return &DefaultGroupAssignmentRepository{
		DB: db,
	}
}

func (r *DefaultGroupAssignmentRepository) GetAssignmentsByPartnerID(ctx context.Context, partnerID string) ([]*domain.GroupAssignment, error) {
	var assignmentModels []*models.GroupAssignmentModel
	if err := r.DB.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("created_at, id").
		Find(&assignmentModels).Error; err != nil {
		return nil, err
	}

	assignments := make([]*domain.GroupAssignment, len(assignmentModels))
	for i, model := range assignmentModels {
		assignments[i] = mappers.ToDomainGroupAssignment(model)
	}
	return assignments, nil
}

// ReplaceAssignments swaps the partner's whole set in one transaction.
func (r *DefaultGroupAssignmentRepository) ReplaceAssignments(ctx context.Context, partnerID string, assignments []*domain.GroupAssignment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("partner_id = ?", partnerID).Delete(&models.GroupAssignmentModel{}).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		assignmentModels := make([]*models.GroupAssignmentModel, len(assignments))
		for i, a := range assignments {
			assignmentModels[i] = mappers.ToGORMGroupAssignment(a)
		}
		return tx.Create(&assignmentModels).Error
	})
}

type DefaultTradingAccountRepository struct {
	DB *gorm.DB
}

func NewDefaultTradingAccountRepository(db *gorm.DB) *DefaultTradingAccountRepository {
	return &DefaultTradingAccountRepository{
		DB: db,
	}
}

func (r *DefaultTradingAccountRepository) GetAccountsByUserIDs(ctx context.Context, userIDs []string) ([]*domain.TradingAccount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var accountModels []*models.TradingAccountModel
	if err := r.DB.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("id").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]*domain.TradingAccount, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = mappers.ToDomainTradingAccount(model)
	}
	return accounts, nil
}

func (r *DefaultTradingAccountRepository) GetAccountByID(ctx context.Context, accountID string) (*domain.TradingAccount, error) {
	var model models.TradingAccountModel
	if err := r.DB.WithContext(ctx).Where("id = ?", accountID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return mappers.ToDomainTradingAccount(&model), nil
}
