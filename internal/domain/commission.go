package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionTotals struct {
	Fixed       decimal.Decimal
	SpreadShare decimal.Decimal
	Total       decimal.Decimal
	TotalTrades int64
	TotalLots   decimal.Decimal
}

func (t *CommissionTotals) Add(fixed, spread, lots decimal.Decimal) {
	t.Fixed = t.Fixed.Add(fixed)
	t.SpreadShare = t.SpreadShare.Add(spread)
	t.Total = t.Fixed.Add(t.SpreadShare)
	t.TotalLots = t.TotalLots.Add(lots)
	t.TotalTrades++
}

// CommissionSnapshot is the materialized commission a partner earned from one
// referred user.
type CommissionSnapshot struct {
	PartnerID      string
	ReferredUserID string
	Totals         CommissionTotals
	ComputedAt     time.Time
}

// PartnerCommission is the partner-wide total; its ComputedAt is the
// staleness timestamp reporting consumers see.
type PartnerCommission struct {
	PartnerID  string
	Totals     CommissionTotals
	ComputedAt time.Time
}

func (c *PartnerCommission) Age(now time.Time) time.Duration {
	return now.Sub(c.ComputedAt)
}

type CommissionSnapshotRepository interface {
	// SaveSnapshots replaces the partner's per-user rows and upserts the
	// partner total in one transaction.
	SaveSnapshots(ctx context.Context, total *PartnerCommission, perUser []*CommissionSnapshot) error
	GetPartnerCommission(ctx context.Context, partnerID string) (*PartnerCommission, error)
	GetSnapshotsByPartnerID(ctx context.Context, partnerID string) ([]*CommissionSnapshot, error)
	// DeletePartnerCommission drops the partner total so the next read
	// recomputes it. Missing totals are not an error.
	DeletePartnerCommission(ctx context.Context, partnerID string) error
}
