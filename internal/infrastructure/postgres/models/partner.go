package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PartnerModel struct {
	ID                        string `gorm:"primaryKey;type:uuid"`
	UserID                    string `gorm:"type:uuid;not null;uniqueIndex"`
	Email                     string `gorm:"not null"`
	Name                      string
	ReferredByPartnerID       *string         `gorm:"type:uuid"`
	ReferralCode              *string         `gorm:"uniqueIndex"`
	Status                    string          `gorm:"not null;index"`
	DefaultUSDPerLot          decimal.Decimal `gorm:"column:default_usd_per_lot;type:numeric(24,8);not null;default:0"`
	DefaultSpreadSharePercent decimal.Decimal `gorm:"type:numeric(24,8);not null;default:0"`
	ApprovedAt                *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

func (PartnerModel) TableName() string {
	return "partners"
}

type GroupAssignmentModel struct {
	ID                 string `gorm:"primaryKey;type:uuid"`
	PartnerID          string `gorm:"type:uuid;not null;index"`
	GroupID            string
	GroupName          string
	USDPerLot          decimal.Decimal `gorm:"column:usd_per_lot;type:numeric(24,8);not null"`
	SpreadSharePercent decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	CreatedAt          time.Time
}

func (GroupAssignmentModel) TableName() string {
	return "group_assignments"
}

type TradingAccountModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	UserID    string `gorm:"type:uuid;not null;index"`
	Login     string `gorm:"not null;uniqueIndex"`
	Password  string
	CreatedAt time.Time
}

func (TradingAccountModel) TableName() string {
	return "trading_accounts"
}
