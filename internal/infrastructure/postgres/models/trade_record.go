package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeRecordModel struct {
	ID          string  `gorm:"primaryKey;type:uuid"`
	AccountID   string  `gorm:"type:uuid;not null;uniqueIndex:uniq_trade_account_external"`
	ExternalID  string  `gorm:"not null;uniqueIndex:uniq_trade_account_external"`
	UserID      string  `gorm:"type:uuid;not null;index"`
	PartnerID   *string `gorm:"type:uuid"`
	Symbol      string  `gorm:"not null"`
	Side        string
	Volume      decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	OpenPrice   decimal.Decimal `gorm:"type:numeric(24,8)"`
	ClosePrice  decimal.Decimal `gorm:"type:numeric(24,8)"`
	Profit      decimal.Decimal `gorm:"type:numeric(24,8)"`
	GroupAtSync string
	Commission  decimal.Decimal `gorm:"type:numeric(24,8);not null"`
	OpenTime    *time.Time
	CloseTime   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TradeRecordModel) TableName() string {
	return "trade_records"
}
