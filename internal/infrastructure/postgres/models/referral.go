package models

import "time"

// At most one active edge per user is enforced by a partial unique index
// on (user_id) WHERE active.
type ReferralEdgeModel struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	UserID        string `gorm:"type:uuid;not null"`
	PartnerID     string `gorm:"type:uuid;not null;index"`
	Active        bool   `gorm:"not null;default:true"`
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

func (ReferralEdgeModel) TableName() string {
	return "referral_edges"
}

type ReferralHistoryModel struct {
	ID            string  `gorm:"primaryKey;type:uuid"`
	UserID        string  `gorm:"type:uuid;not null;index"`
	FromPartnerID *string `gorm:"type:uuid"`
	ToPartnerID   string  `gorm:"type:uuid;not null"`
	Reason        string
	ChangedAt     time.Time
}

func (ReferralHistoryModel) TableName() string {
	return "referral_history"
}
