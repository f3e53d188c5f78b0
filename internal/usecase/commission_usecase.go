package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-ib-service/internal/usecase/groupkey"
)

const (
	LookupCache      = "cache"
	LookupSnapshot   = "snapshot"
	LookupRecomputed = "recomputed"
)

type CommissionUsecase interface {
	Aggregate(ctx context.Context, partnerID string) (*domain.PartnerCommission, error)
	GetCommission(ctx context.Context, partnerID string, maxAge time.Duration) (*domain.PartnerCommission, error)
	ListUserBreakdown(ctx context.Context, partnerID string) ([]*domain.CommissionSnapshot, error)
}

type CommissionDeps struct {
	PartnerRepo    domain.PartnerRepository
	AssignmentRepo domain.GroupAssignmentRepository
	AccountRepo    domain.TradingAccountRepository
	TradeRepo      domain.TradeRepository
	SnapshotRepo   domain.CommissionSnapshotRepository
	Referrals      ReferralUsecase
	Cache          cache.Cache[*domain.PartnerCommission]
	Publisher      domain.EventPublisher
	Metrics        *metrics.IBMetrics
	Logger         *slog.Logger
}

type DefaultCommissionUsecase struct {
	CommissionDeps
	now func() time.Time
}

func NewDefaultCommissionUsecase(deps CommissionDeps) *DefaultCommissionUsecase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &DefaultCommissionUsecase{
		CommissionDeps: deps,
		now:            time.Now,
	}
}

// Aggregate recomputes the partner's commission from stored trades. Every
// trade is resolved against the partner's current rules, so rule edits apply
// retroactively on the next run.
func (uc *DefaultCommissionUsecase) Aggregate(ctx context.Context, partnerID string) (result *domain.PartnerCommission, err error) {
	started := uc.now()
	defer func() {
		uc.Metrics.RecordAggregation(result, err, uc.now().Sub(started).Seconds())
	}()

	partner, err := uc.PartnerRepo.GetPartnerByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	assignments, err := uc.AssignmentRepo.GetAssignmentsByPartnerID(ctx, partner.ID)
	if err != nil {
		return nil, fmt.Errorf("load assignments of partner %s: %w", partner.ID, err)
	}
	rules := groupkey.BuildRuleMap(partner, assignments)

	scope, err := uc.Referrals.ResolveScope(ctx, partner)
	if err != nil {
		return nil, fmt.Errorf("resolve referral scope of partner %s: %w", partner.ID, err)
	}

	ownAccounts, err := uc.ownAccountIDs(ctx, partner)
	if err != nil {
		return nil, err
	}

	var trades []*domain.TradeRecord
	if userIDs := scope.UserIDs(); len(userIDs) > 0 {
		trades, err = uc.TradeRepo.GetClosedTradesByUserIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("load trades for partner %s: %w", partner.ID, err)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].AccountID != trades[j].AccountID {
			return trades[i].AccountID < trades[j].AccountID
		}
		return trades[i].ExternalID < trades[j].ExternalID
	})

	now := uc.now().UTC()
	total := &domain.PartnerCommission{PartnerID: partner.ID, ComputedAt: now}
	perUser := make(map[string]*domain.CommissionSnapshot)

	for _, t := range trades {
		if t.UserID == scope.ExcludedUserID {
			continue
		}
		if _, own := ownAccounts[t.AccountID]; own {
			continue
		}
		if _, inScope := scope.Owners[t.UserID]; !inScope {
			continue
		}

		fixed, spread := commissionFor(t, rules)
		total.Totals.Add(fixed, spread, t.Volume)

		row, ok := perUser[t.UserID]
		if !ok {
			row = &domain.CommissionSnapshot{PartnerID: partner.ID, ReferredUserID: t.UserID, ComputedAt: now}
			perUser[t.UserID] = row
		}
		row.Totals.Add(fixed, spread, t.Volume)
	}

	rows := make([]*domain.CommissionSnapshot, 0, len(perUser))
	for _, row := range perUser {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ReferredUserID < rows[j].ReferredUserID })

	if err := uc.SnapshotRepo.SaveSnapshots(ctx, total, rows); err != nil {
		return nil, fmt.Errorf("save commission snapshot of partner %s: %w", partner.ID, err)
	}
	if uc.Cache != nil {
		uc.Cache.Invalidate(partner.ID)
	}

	if uc.Publisher != nil {
		if err := uc.Publisher.PublishCommission(total); err != nil {
			uc.Logger.Error("failed to publish commission snapshot", "partner_id", partner.ID, "error", err)
		}
	}

	uc.Logger.Info("commission aggregated",
		"partner_id", partner.ID,
		"users", len(rows),
		"trades", total.Totals.TotalTrades,
		"total", total.Totals.Total.String())
	return total, nil
}

// commissionFor re-derives a trade's commission from its group at sync time.
// Trades with no matching rule count towards volume with zero commission.
func commissionFor(t *domain.TradeRecord, rules domain.RuleMap) (fixed, spread decimal.Decimal) {
	rule, _, ok := groupkey.ResolveGroup(t.GroupAtSync, rules)
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	fixed  = t.Volume.Mul(rule.USDPerLot)
	spread = t.Volume.Mul(rule.SpreadSharePercent).Div(hundred)
	return fixed, spread
}

func (uc *DefaultCommissionUsecase) ownAccountIDs(ctx context.Context, partner *domain.Partner) (map[string]struct{}, error) {
	own := make(map[string]struct{})
	if partner.UserID == "" {
		return own, nil
	}
	accounts, err := uc.AccountRepo.GetAccountsByUserIDs(ctx, []string{partner.UserID})
	if err != nil {
		return nil, fmt.Errorf("load own accounts of partner %s: %w", partner.ID, err)
	}
	for _, a := range accounts {
		own[a.ID] = struct{}{}
	}
	return own, nil
}

// GetCommission serves the partner's commission from the process cache, then
// from the persisted snapshot while it is younger than maxAge, and recomputes
// otherwise. maxAge <= 0 always recomputes.
func (uc *DefaultCommissionUsecase) GetCommission(ctx context.Context, partnerID string, maxAge time.Duration) (*domain.PartnerCommission, error) {
	if maxAge > 0 {
		if c, ok := uc.cached(partnerID, maxAge); ok {
			uc.Metrics.RecordLookup(LookupCache)
			return c, nil
		}

		snapshot, err := uc.SnapshotRepo.GetPartnerCommission(ctx, partnerID)
		switch {
		case err == nil && snapshot.Age(uc.now()) < maxAge:
			uc.remember(snapshot)
			uc.Metrics.RecordLookup(LookupSnapshot)
			return snapshot, nil
		case err != nil && !errors.Is(err, domain.ErrSnapshotNotFound):
			return nil, fmt.Errorf("load commission snapshot of partner %s: %w", partnerID, err)
		}
	}

	c, err := uc.Aggregate(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	uc.remember(c)
	uc.Metrics.RecordLookup(LookupRecomputed)
	return c, nil
}

func (uc *DefaultCommissionUsecase) cached(partnerID string, maxAge time.Duration) (*domain.PartnerCommission, bool) {
	if uc.Cache == nil {
		return nil, false
	}
	c, ok := uc.Cache.Get(partnerID)
	if !ok || c.Age(uc.now()) >= maxAge {
		return nil, false
	}
	return c, true
}

func (uc *DefaultCommissionUsecase) remember(c *domain.PartnerCommission) {
	if uc.Cache != nil {
		uc.Cache.Set(c.PartnerID, c)
	}
}

func (uc *DefaultCommissionUsecase) ListUserBreakdown(ctx context.Context, partnerID string) ([]*domain.CommissionSnapshot, error) {
	if _, err := uc.PartnerRepo.GetPartnerByID(ctx, partnerID); err != nil {
		return nil, err
	}
	return uc.SnapshotRepo.GetSnapshotsByPartnerID(ctx, partnerID)
}
