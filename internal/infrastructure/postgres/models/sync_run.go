package models

import (
	"time"

	"gorm.io/datatypes"
)

type SyncRunModel struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	Trigger        string `gorm:"not null"`
	WindowSeconds  int64  `gorm:"not null"`
	Partners       int
	PartnersFailed int
	Accounts       int
	AccountsFailed int
	Received       int
	Stored         int
	Skipped        datatypes.JSON `gorm:"type:jsonb"`
	Matches        datatypes.JSON `gorm:"type:jsonb"`
	Canceled       bool
	StartedAt      time.Time `gorm:"not null;index"`
	FinishedAt     time.Time `gorm:"not null"`
}

func (SyncRunModel) TableName() string {
	return "sync_runs"
}
