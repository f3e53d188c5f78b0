package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WildcardGroupKey is the rule map key used when a partner has no group
// assignments and all trades fall back to the partner defaults.
const WildcardGroupKey = "*"

// CommissionRule is the pair of values applied to a partner's trade:
// a fixed amount per lot and a percentage share of spread.
type CommissionRule struct {
	GroupKey           string
	USDPerLot          decimal.Decimal
	SpreadSharePercent decimal.Decimal
}

// RuleMap maps a normalized group key to the rule assigned to it.
type RuleMap map[string]CommissionRule

type GroupAssignment struct {
	ID                 string
	PartnerID          string
	GroupID            string
	GroupName          string
	USDPerLot          decimal.Decimal
	SpreadSharePercent decimal.Decimal
	CreatedAt          time.Time
}

type GroupAssignmentRepository interface {
	GetAssignmentsByPartnerID(ctx context.Context, partnerID string) ([]*GroupAssignment, error)
	// ReplaceAssignments swaps the partner's whole assignment set in one transaction.
	ReplaceAssignments(ctx context.Context, partnerID string, assignments []*GroupAssignment) error
}
