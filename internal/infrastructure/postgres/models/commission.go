package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionSnapshotModel struct {
	PartnerID      string          `gorm:"primaryKey;type:uuid"`
	ReferredUserID string          `gorm:"primaryKey;type:uuid"`
	Fixed          decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	SpreadShare    decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	Total          decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	TotalTrades    int64           `gorm:"not null"`
	TotalLots      decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	ComputedAt     time.Time       `gorm:"not null"`
}

func (CommissionSnapshotModel) TableName() string {
	return "commission_snapshots"
}

type PartnerCommissionModel struct {
	PartnerID   string          `gorm:"primaryKey;type:uuid"`
	Fixed       decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	SpreadShare decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	Total       decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	TotalTrades int64           `gorm:"not null"`
	TotalLots   decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	ComputedAt  time.Time       `gorm:"not null"`
}

func (PartnerCommissionModel) TableName() string {
	return "partner_commissions"
}
