package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-ib-service/internal/usecase/groupkey"
)

const referralCodeLength = 10

type PartnerUsecase interface {
	GetPartner(ctx context.Context, partnerID string) (*domain.Partner, error)
	ListApproved(ctx context.Context) ([]*domain.Partner, error)
	Approve(ctx context.Context, partnerID string, assignments []*domain.GroupAssignment) error
	SetStatus(ctx context.Context, partnerID string, status domain.PartnerStatus) error
	ReplaceAssignments(ctx context.Context, partnerID string, assignments []*domain.GroupAssignment) error
	RuleMap(ctx context.Context, partner *domain.Partner) (domain.RuleMap, error)
}

type DefaultPartnerUsecase struct {
	partnerRepo    domain.PartnerRepository
	assignmentRepo domain.GroupAssignmentRepository
	snapshotRepo   domain.CommissionSnapshotRepository
	commissions    cache.Cache[*domain.PartnerCommission]
	logger         *slog.Logger
}

// NewDefaultPartnerUsecase builds the partner usecase. snapshotRepo and
// commissions may be nil; when set, rule and status changes expire the
// partner's stored and cached commission.
func NewDefaultPartnerUsecase(
	partnerRepo domain.PartnerRepository,
	assignmentRepo domain.GroupAssignmentRepository,
	snapshotRepo domain.CommissionSnapshotRepository,
	commissions cache.Cache[*domain.PartnerCommission],
	logger *slog.Logger,
) *DefaultPartnerUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultPartnerUsecase{
		partnerRepo:    partnerRepo,
		assignmentRepo: assignmentRepo,
		snapshotRepo:   snapshotRepo,
		commissions:    commissions,
		logger:         logger,
	}
}

func (uc *DefaultPartnerUsecase) GetPartner(ctx context.Context, partnerID string) (*domain.Partner, error) {
	return uc.partnerRepo.GetPartnerByID(ctx, partnerID)
}

func (uc *DefaultPartnerUsecase) ListApproved(ctx context.Context) ([]*domain.Partner, error) {
	return uc.partnerRepo.ListPartnersByStatus(ctx, domain.PartnerApproved)
}

// Approve installs the partner's group assignments and marks it approved.
// A referral code is issued on first approval.
func (uc *DefaultPartnerUsecase) Approve(ctx context.Context, partnerID string, assignments []*domain.GroupAssignment) error {
	partner, err := uc.partnerRepo.GetPartnerByID(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner.Status == domain.PartnerBanned {
		return fmt.Errorf("%w: partner %s is banned", domain.ErrInvalidStatus, partnerID)
	}

	if err := uc.ReplaceAssignments(ctx, partnerID, assignments); err != nil {
		return err
	}
	if err := uc.partnerRepo.UpdatePartnerStatus(ctx, partnerID, domain.PartnerApproved); err != nil {
		return fmt.Errorf("approve partner %s: %w", partnerID, err)
	}

	if partner.ReferralCode == "" {
		idGenerator, err := nanoid.Standard(referralCodeLength)
		if err != nil {
			return err
		}
		if err := uc.partnerRepo.SetReferralCode(ctx, partnerID, idGenerator()); err != nil {
			return fmt.Errorf("set referral code for partner %s: %w", partnerID, err)
		}
	}

	uc.logger.Info("partner approved", "partner_id", partnerID, "assignments", len(assignments))
	return nil
}

func (uc *DefaultPartnerUsecase) SetStatus(ctx context.Context, partnerID string, status domain.PartnerStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if err := uc.partnerRepo.UpdatePartnerStatus(ctx, partnerID, status); err != nil {
		return fmt.Errorf("set status of partner %s: %w", partnerID, err)
	}
	return uc.invalidate(ctx, partnerID)
}

// ReplaceAssignments swaps the partner's whole assignment set. The input is
// left untouched; stored rows are normalized copies.
func (uc *DefaultPartnerUsecase) ReplaceAssignments(ctx context.Context, partnerID string, assignments []*domain.GroupAssignment) error {
	for _, a := range assignments {
		if err := validateAssignment(a); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	normalized := make([]*domain.GroupAssignment, len(assignments))
	for i, a := range assignments {
		n := *a
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		n.PartnerID = partnerID
		n.GroupID = strings.TrimSpace(n.GroupID)
		n.GroupName = strings.TrimSpace(n.GroupName)
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		normalized[i] = &n
	}

	if err := uc.assignmentRepo.ReplaceAssignments(ctx, partnerID, normalized); err != nil {
		return fmt.Errorf("replace assignments of partner %s: %w", partnerID, err)
	}
	return uc.invalidate(ctx, partnerID)
}

var hundred = decimal.NewFromInt(100)

func validateAssignment(a *domain.GroupAssignment) error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: nil assignment", domain.ErrInvalidAssignment)
	case strings.TrimSpace(a.GroupID) == "" && strings.TrimSpace(a.GroupName) == "":
		return fmt.Errorf("%w: group id or name required", domain.ErrInvalidAssignment)
	case a.USDPerLot.IsNegative():
		return fmt.Errorf("%w: negative usd per lot for group %s", domain.ErrInvalidAssignment, a.GroupID)
	case a.SpreadSharePercent.IsNegative() || a.SpreadSharePercent.GreaterThan(hundred):
		return fmt.Errorf("%w: spread share out of range for group %s", domain.ErrInvalidAssignment, a.GroupID)
	}
	return nil
}

func (uc *DefaultPartnerUsecase) RuleMap(ctx context.Context, partner *domain.Partner) (domain.RuleMap, error) {
	assignments, err := uc.assignmentRepo.GetAssignmentsByPartnerID(ctx, partner.ID)
	if err != nil {
		return nil, fmt.Errorf("load assignments of partner %s: %w", partner.ID, err)
	}
	return groupkey.BuildRuleMap(partner, assignments), nil
}

func (uc *DefaultPartnerUsecase) invalidate(ctx context.Context, partnerID string) error {
	if uc.commissions != nil {
		uc.commissions.Invalidate(partnerID)
	}
	if uc.snapshotRepo != nil {
		if err := uc.snapshotRepo.DeletePartnerCommission(ctx, partnerID); err != nil {
			return fmt.Errorf("expire commission of partner %s: %w", partnerID, err)
		}
	}
	return nil
}
