package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TradeSide string

const (
	SideBuy     TradeSide = "buy"
	SideSell    TradeSide = "sell"
	SideUnknown TradeSide = ""
)

// TradeRecord is one closed trade reported by the trading platform.
// (AccountID, ExternalID) is the idempotency key.
type TradeRecord struct {
	ID          string
	AccountID   string
	ExternalID  string
	UserID      string
	PartnerID   string
	Symbol      string
	Side        TradeSide
	Volume      decimal.Decimal
	OpenPrice   decimal.Decimal
	ClosePrice  decimal.Decimal
	Profit      decimal.Decimal
	GroupAtSync string
	Commission  decimal.Decimal
	OpenTime    *time.Time
	CloseTime   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SkipReason string

const (
	SkipNoID      SkipReason = "no_id"
	SkipNoSymbol  SkipReason = "no_symbol"
	SkipNotClosed SkipReason = "not_closed"
	SkipNoVolume  SkipReason = "no_volume"
	SkipError     SkipReason = "error"
)

var SkipReasons = []SkipReason{SkipNoID, SkipNoSymbol, SkipNotClosed, SkipNoVolume, SkipError}

type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchFuzzy  MatchKind = "fuzzy"
	MatchSingle MatchKind = "single"
	MatchNone   MatchKind = "none"
)

// UpsertContext carries what the trade store needs to attribute a batch of
// trades coming from one trading account.
type UpsertContext struct {
	AccountID   string
	UserID      string
	PartnerID   string
	Rules       RuleMap
	GroupAtSync string
}

type UpsertStats struct {
	Received int
	Stored   int
	Skipped  map[SkipReason]int
	Matches  map[MatchKind]int
}

func NewUpsertStats() UpsertStats {
	return UpsertStats{
		Skipped: make(map[SkipReason]int, len(SkipReasons)),
		Matches: make(map[MatchKind]int, 4),
	}
}

func (s UpsertStats) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Merge adds other into s.
func (s *UpsertStats) Merge(other UpsertStats) {
	if s.Skipped == nil {
		s.Skipped = make(map[SkipReason]int, len(SkipReasons))
	}
	if s.Matches == nil {
		s.Matches = make(map[MatchKind]int, 4)
	}
	s.Received += other.Received
	s.Stored += other.Stored
	for k, v := range other.Skipped {
		s.Skipped[k] += v
	}
	for k, v := range other.Matches {
		s.Matches[k] += v
	}
}

type TradeRepository interface {
	// UpsertTrades inserts or updates trades keyed by (account_id, external_id)
	// with a single atomic statement per chunk.
	UpsertTrades(ctx context.Context, trades []*TradeRecord) error
	GetClosedTradesByUserIDs(ctx context.Context, userIDs []string) ([]*TradeRecord, error)
	GetTradesByAccountID(ctx context.Context, accountID string) ([]*TradeRecord, error)
	PurgeTradesByAccountID(ctx context.Context, accountID string) (int64, error)
}
