package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PartnerStatus string

const (
	PartnerPending  PartnerStatus = "pending"
	PartnerApproved PartnerStatus = "approved"
	PartnerRejected PartnerStatus = "rejected"
	PartnerBanned   PartnerStatus = "banned"
)

func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerPending, PartnerApproved, PartnerRejected, PartnerBanned:
		return true
	}
	return false
}

// Partner is an introducing broker. UserID is the partner's own portal user,
// whose trading accounts never count towards the partner's commission.
type Partner struct {
	ID                        string
	UserID                    string
	Email                     string
	Name                      string
	ReferredByPartnerID       string
	ReferralCode              string
	Status                    PartnerStatus
	DefaultUSDPerLot          decimal.Decimal
	DefaultSpreadSharePercent decimal.Decimal
	ApprovedAt                *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type PartnerRepository interface {
	GetPartnerByID(ctx context.Context, partnerID string) (*Partner, error)
	GetPartnerByUserID(ctx context.Context, userID string) (*Partner, error)
	ListPartnersByStatus(ctx context.Context, status PartnerStatus) ([]*Partner, error)
	UpdatePartnerStatus(ctx context.Context, partnerID string, status PartnerStatus) error
	SetReferralCode(ctx context.Context, partnerID, code string) error
}
