package response

import (
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CommissionResponse struct {
	PartnerID   string          `json:"partner_id"`
	Fixed       decimal.Decimal `json:"fixed"`
	SpreadShare decimal.Decimal `json:"spread_share"`
	Total       decimal.Decimal `json:"total"`
	TotalTrades int64           `json:"total_trades"`
	TotalLots   decimal.Decimal `json:"total_lots"`
	ComputedAt  time.Time       `json:"computed_at"`
	AgeSeconds  int64           `json:"age_seconds"`
}

type UserCommissionResponse struct {
	ReferredUserID string          `json:"referred_user_id"`
	Fixed          decimal.Decimal `json:"fixed"`
	SpreadShare    decimal.Decimal `json:"spread_share"`
	Total          decimal.Decimal `json:"total"`
	TotalTrades    int64           `json:"total_trades"`
	TotalLots      decimal.Decimal `json:"total_lots"`
	ComputedAt     time.Time       `json:"computed_at"`
}

type SyncRunResponse struct {
	RunID          string         `json:"run_id"`
	Trigger        string         `json:"trigger"`
	Partners       int            `json:"partners"`
	PartnersFailed int            `json:"partners_failed"`
	Accounts       int            `json:"accounts"`
	AccountsFailed int            `json:"accounts_failed"`
	TradesReceived int            `json:"trades_received"`
	TradesStored   int            `json:"trades_stored"`
	Skipped        map[string]int `json:"skipped"`
	DurationMillis int64          `json:"duration_ms"`
	Canceled       bool           `json:"canceled"`
}

func NewCommissionResponse(c *domain.PartnerCommission, now time.Time) CommissionResponse {
	return CommissionResponse{
		PartnerID:   c.PartnerID,
		Fixed:       c.Totals.Fixed,
		SpreadShare: c.Totals.SpreadShare,
		Total:       c.Totals.Total,
		TotalTrades: c.Totals.TotalTrades,
		TotalLots:   c.Totals.TotalLots,
		ComputedAt:  c.ComputedAt.UTC(),
		AgeSeconds:  int64(c.Age(now).Seconds()),
	}
}

func NewUserCommissionResponses(rows []*domain.CommissionSnapshot) []UserCommissionResponse {
	out := make([]UserCommissionResponse, len(rows))
	for i, row := range rows {
		out[i] = UserCommissionResponse{
			ReferredUserID: row.ReferredUserID,
			Fixed:          row.Totals.Fixed,
			SpreadShare:    row.Totals.SpreadShare,
			Total:          row.Totals.Total,
			TotalTrades:    row.Totals.TotalTrades,
			TotalLots:      row.Totals.TotalLots,
			ComputedAt:     row.ComputedAt.UTC(),
		}
	}
	return out
}

func NewSyncRunResponse(run *domain.SyncRunSummary) SyncRunResponse {
	skipped := make(map[string]int, len(run.Trades.Skipped))
	for reason, n := range run.Trades.Skipped {
		skipped[string(reason)] = n
	}
	return SyncRunResponse{
		RunID:          run.ID,
		Trigger:        string(run.Trigger),
		Partners:       run.Partners,
		PartnersFailed: run.PartnersFailed,
		Accounts:       run.Accounts,
		AccountsFailed: run.AccountsFailed,
		TradesReceived: run.Trades.Received,
		TradesStored:   run.Trades.Stored,
		Skipped:        skipped,
		DurationMillis: run.Duration().Milliseconds(),
		Canceled:       run.Canceled,
	}
}
