package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

type ReferralUsecase interface {
	ResolveScope(ctx context.Context, partner *domain.Partner) (domain.ReferralScope, error)
	ReferrerOf(ctx context.Context, userID string) (string, error)
	Assign(ctx context.Context, userID, partnerID, reason string) error
	History(ctx context.Context, userID string) ([]*domain.ReferralHistory, error)
}

type DefaultReferralUsecase struct {
	referralRepo domain.ReferralRepository
	partnerRepo  domain.PartnerRepository
	logger       *slog.Logger
}

func NewDefaultReferralUsecase(referralRepo domain.ReferralRepository, partnerRepo domain.PartnerRepository, logger *slog.Logger) *DefaultReferralUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultReferralUsecase{
		referralRepo: referralRepo,
		partnerRepo:  partnerRepo,
		logger:       logger,
	}
}

// ResolveScope walks active referral edges breadth-first from the partner.
// A referred user who is a partner too pulls in their own referrals. The
// partner's personal user is never part of the scope.
func (uc *DefaultReferralUsecase) ResolveScope(ctx context.Context, partner *domain.Partner) (domain.ReferralScope, error) {
	scope := domain.ReferralScope{
		PartnerID:      partner.ID,
		Owners:         make(map[string]string),
		ExcludedUserID: partner.UserID,
	}

	visited := map[string]struct{}{partner.ID: {}}
	frontier := []string{partner.ID}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return scope, err
		}

		edges, err := uc.referralRepo.GetActiveEdgesByPartnerIDs(ctx, frontier)
		if err != nil {
			return scope, fmt.Errorf("load referral edges: %w", err)
		}

		var next []string
		for _, edge := range edges {
			if edge.UserID == partner.UserID {
				continue
			}
			if _, seen := scope.Owners[edge.UserID]; seen {
				continue
			}
			scope.Owners[edge.UserID] = edge.PartnerID

			sub, err := uc.partnerRepo.GetPartnerByUserID(ctx, edge.UserID)
			if errors.Is(err, domain.ErrPartnerNotFound) {
				continue
			}
			if err != nil {
				return scope, fmt.Errorf("lookup sub-partner of user %s: %w", edge.UserID, err)
			}
			if _, seen := visited[sub.ID]; seen {
				continue
			}
			visited[sub.ID] = struct{}{}
			next = append(next, sub.ID)
		}
		frontier = next
	}

	return scope, nil
}

// ReferrerOf returns the partner on the user's active referral edge, or ""
// when the user has no referrer.
func (uc *DefaultReferralUsecase) ReferrerOf(ctx context.Context, userID string) (string, error) {
	edge, err := uc.referralRepo.GetActiveEdgeByUserID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load active referral of user %s: %w", userID, err)
	}
	if edge == nil {
		return "", nil
	}
	return edge.PartnerID, nil
}

// Assign points the user at a new referring partner. The previous edge is
// deactivated and the change is appended to the referral history.
func (uc *DefaultReferralUsecase) Assign(ctx context.Context, userID, partnerID, reason string) error {
	partner, err := uc.partnerRepo.GetPartnerByID(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner.UserID == userID {
		return domain.ErrSelfReferral
	}

	current, err := uc.referralRepo.GetActiveEdgeByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load active referral of user %s: %w", userID, err)
	}
	if current != nil && current.PartnerID == partnerID {
		return nil
	}

	now := time.Now().UTC()
	edge := &domain.ReferralEdge{
		ID:        uuid.NewString(),
		UserID:    userID,
		PartnerID: partnerID,
		Active:    true,
		CreatedAt: now,
	}
	history := &domain.ReferralHistory{
		ID:          uuid.NewString(),
		UserID:      userID,
		ToPartnerID: partnerID,
		Reason:      reason,
		ChangedAt:   now,
	}
	if current != nil {
		history.FromPartnerID = current.PartnerID
	}

	if err := uc.referralRepo.Reassign(ctx, edge, history); err != nil {
		return fmt.Errorf("reassign user %s: %w", userID, err)
	}

	uc.logger.Info("referral reassigned",
		"user_id", userID,
		"from_partner_id", history.FromPartnerID,
		"to_partner_id", partnerID)
	return nil
}

func (uc *DefaultReferralUsecase) History(ctx context.Context, userID string) ([]*domain.ReferralHistory, error) {
	return uc.referralRepo.GetHistoryByUserID(ctx, userID)
}
