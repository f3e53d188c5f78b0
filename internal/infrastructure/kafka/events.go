package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/shopspring/decimal"
)

type CommissionEvent struct {
	PartnerID   string          `json:"partner_id"`
	Fixed       decimal.Decimal `json:"fixed"`
	SpreadShare decimal.Decimal `json:"spread_share"`
	Total       decimal.Decimal `json:"total"`
	TotalTrades int64           `json:"total_trades"`
	TotalLots   decimal.Decimal `json:"total_lots"`
	ComputedAt  time.Time       `json:"computed_at"`
}

type SyncRunEvent struct {
	RunID          string         `json:"run_id"`
	Trigger        string         `json:"trigger"`
	WindowSeconds  int64          `json:"window_seconds"`
	Partners       int            `json:"partners"`
	PartnersFailed int            `json:"partners_failed"`
	Accounts       int            `json:"accounts"`
	AccountsFailed int            `json:"accounts_failed"`
	TradesReceived int            `json:"trades_received"`
	TradesStored   int            `json:"trades_stored"`
	Skipped        map[string]int `json:"skipped,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Canceled       bool           `json:"canceled"`
}

func EncodeCommission(c *domain.PartnerCommission) (domain.Message, error) {
	v, err := json.Marshal(CommissionEvent{
		PartnerID:   c.PartnerID,
		Fixed:       c.Totals.Fixed,
		SpreadShare: c.Totals.SpreadShare,
		Total:       c.Totals.Total,
		TotalTrades: c.Totals.TotalTrades,
		TotalLots:   c.Totals.TotalLots,
		ComputedAt:  c.ComputedAt.UTC(),
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode commission event: %w", err)
	}
	return domain.Message{Key: []byte(c.PartnerID), Value: v}, nil
}

func EncodeSyncRun(run *domain.SyncRunSummary) (domain.Message, error) {
	skipped := make(map[string]int, len(run.Trades.Skipped))
	for reason, n := range run.Trades.Skipped {
		skipped[string(reason)] = n
	}
	v, err := json.Marshal(SyncRunEvent{
		RunID:          run.ID,
		Trigger:        string(run.Trigger),
		WindowSeconds:  int64(run.Window.Seconds()),
		Partners:       run.Partners,
		PartnersFailed: run.PartnersFailed,
		Accounts:       run.Accounts,
		AccountsFailed: run.AccountsFailed,
		TradesReceived: run.Trades.Received,
		TradesStored:   run.Trades.Stored,
		Skipped:        skipped,
		StartedAt:      run.StartedAt.UTC(),
		FinishedAt:     run.FinishedAt.UTC(),
		Canceled:       run.Canceled,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode sync run event: %w", err)
	}
	return domain.Message{Key: []byte(run.ID), Value: v}, nil
}

// DecodePartnerEvent parses an approval-workflow event. Events without a
// partner id are rejected.
func DecodePartnerEvent(msg domain.Message) (domain.PartnerEvent, error) {
	var ev domain.PartnerEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("decode partner event: %w", err)
	}
	if ev.PartnerID == "" {
		ev.PartnerID = string(msg.Key)
	}
	if ev.PartnerID == "" {
		return ev, fmt.Errorf("decode partner event: missing partner_id")
	}
	return ev, nil
}
