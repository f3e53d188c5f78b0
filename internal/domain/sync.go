package domain

import (
	"context"
	"time"
)

// TradingPlatform is the external trading-platform API.
type TradingPlatform interface {
	Authenticate(ctx context.Context, login, password string) (string, error)
	ClosedTrades(ctx context.Context, token, login string, from, to time.Time) ([]RawTrade, error)
	ClientGroup(ctx context.Context, token, login string) (string, error)
}

type SyncTrigger string

const (
	TriggerSchedule SyncTrigger = "schedule"
	TriggerManual   SyncTrigger = "manual"
	TriggerBackfill SyncTrigger = "backfill"
	TriggerEvent    SyncTrigger = "event"
)

type SyncRunSummary struct {
	ID             string
	Trigger        SyncTrigger
	Window         time.Duration
	Partners       int
	PartnersFailed int
	Accounts       int
	AccountsFailed int
	Trades         UpsertStats
	StartedAt      time.Time
	FinishedAt     time.Time
	Canceled       bool
}

func (s *SyncRunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

type SyncRunRepository interface {
	SaveSyncRun(ctx context.Context, run *SyncRunSummary) error
	GetLatestSyncRuns(ctx context.Context, limit int) ([]*SyncRunSummary, error)
}
