package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/usecase/groupkey"
)

type TradeStoreUsecase interface {
	Upsert(ctx context.Context, trades []domain.RawTrade, in domain.UpsertContext) (domain.UpsertStats, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error)
	Purge(ctx context.Context, accountID string) (int64, error)
}

type DefaultTradeStoreUsecase struct {
	tradeRepo   domain.TradeRepository
	volumeScale decimal.Decimal
	logger      *slog.Logger
	now         func() time.Time
}

// NewDefaultTradeStoreUsecase builds the trade store. volumeScale divides
// values read from plain "volume" fields (e.g. 100 when the platform reports
// hundredths of a lot); explicit lot fields are taken as is.
func NewDefaultTradeStoreUsecase(repo domain.TradeRepository, volumeScale float64, logger *slog.Logger) *DefaultTradeStoreUsecase {
	scale := decimal.NewFromFloat(volumeScale)
	if !scale.IsPositive() {
		scale = decimal.NewFromInt(1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultTradeStoreUsecase{
		tradeRepo:   repo,
		volumeScale: scale,
		logger:      logger,
		now:         time.Now,
	}
}

// Upsert stores the closed trades of one account. Bad items are counted by
// skip reason and never fail the call; only a repository error does.
func (uc *DefaultTradeStoreUsecase) Upsert(ctx context.Context, trades []domain.RawTrade, in domain.UpsertContext) (domain.UpsertStats, error) {
	stats := domain.NewUpsertStats()
	stats.Received = len(trades)
	if len(trades) == 0 {
		return stats, nil
	}

	now := uc.now().UTC()
	records := make([]*domain.TradeRecord, 0, len(trades))
	kinds := make([]domain.MatchKind, 0, len(trades))
	position := make(map[string]int, len(trades))

	for _, raw := range trades {
		record, reason := uc.parseTrade(raw)
		if reason != "" {
			stats.Skipped[reason]++
			continue
		}

		group := in.GroupAtSync
		if group == "" {
			group, _ = raw.String(domain.GroupFields)
		}
		rule, kind, ok := groupkey.ResolveGroup(group, in.Rules)

		record.AccountID = in.AccountID
		record.UserID = in.UserID
		record.PartnerID = in.PartnerID
		record.GroupAtSync = group
		record.Commission = decimal.Zero
		if ok {
			record.Commission = record.Volume.Mul(rule.USDPerLot).Round(8)
		}
		record.CreatedAt = now
		record.UpdatedAt = now

		// Same deal twice in one page: the later copy wins, and the batch
		// must not hit the same conflict key twice.
		if i, dup := position[record.ExternalID]; dup {
			records[i] = record
			kinds[i] = kind
			continue
		}
		position[record.ExternalID] = len(records)
		records = append(records, record)
		kinds   = append(kinds, kind)
	}

	if len(records) == 0 {
		return stats, nil
	}

	if err := uc.tradeRepo.UpsertTrades(ctx, records); err != nil {
		return stats, fmt.Errorf("upsert trades for account %s: %w", in.AccountID, err)
	}
	stats.Stored = len(records)

	unmatched := make(map[string]int)
	for i, kind := range kinds {
		stats.Matches[kind]++
		if kind == domain.MatchNone {
			unmatched[records[i].GroupAtSync]++
		}
	}
	if in.PartnerID != "" {
		for group, count := range unmatched {
			uc.logger.Warn("trades stored without a matching commission rule",
				"account_id", in.AccountID,
				"partner_id", in.PartnerID,
				"group", group,
				"count", count)
		}
	}

	return stats, nil
}

// parseTrade maps a raw upstream item to a record, or returns why it is skipped.
func (uc *DefaultTradeStoreUsecase) parseTrade(raw domain.RawTrade) (*domain.TradeRecord, domain.SkipReason) {
	externalID, ok := raw.ExternalID()
	if !ok {
		return nil, domain.SkipNoID
	}
	symbol, ok := raw.String(domain.SymbolFields)
	if !ok {
		return nil, domain.SkipNoSymbol
	}

	profit, _, err := raw.Decimal(domain.ProfitFields)
	if err != nil {
		return nil, domain.SkipError
	}
	closePrice, _, err := raw.Decimal(domain.ClosePriceFields)
	if err != nil {
		return nil, domain.SkipError
	}
	openPrice, _, err := raw.Decimal(domain.OpenPriceFields)
	if err != nil {
		return nil, domain.SkipError
	}
	closeTime, hasCloseTime, err := raw.Time(domain.CloseTimeFields)
	if err != nil {
		return nil, domain.SkipError
	}
	openTime, _, err := raw.Time(domain.OpenTimeFields)
	if err != nil {
		return nil, domain.SkipError
	}

	if !IsClosedTrade(profit, closePrice, hasCloseTime) {
		return nil, domain.SkipNotClosed
	}

	volume, err := uc.lots(raw)
	if err != nil {
		return nil, domain.SkipError
	}
	if volume.IsZero() {
		return nil, domain.SkipNoVolume
	}

	return &domain.TradeRecord{
		ExternalID: externalID,
		Symbol:     symbol,
		Side:       raw.Side(),
		Volume:     volume,
		OpenPrice:  openPrice,
		ClosePrice: closePrice,
		Profit:     profit,
		OpenTime:   openTime,
		CloseTime:  closeTime,
	}, ""
}

func (uc *DefaultTradeStoreUsecase) lots(raw domain.RawTrade) (decimal.Decimal, error) {
	lots, present, err := raw.Decimal(domain.LotsFields)
	if err != nil {
		return decimal.Zero, err
	}
	if present && !lots.IsZero() {
		return lots.Abs(), nil
	}
	volume, _, err := raw.Decimal(domain.VolumeFields)
	if err != nil {
		return decimal.Zero, err
	}
	return volume.Abs().Div(uc.volumeScale), nil
}

// IsClosedTrade is the one definition of a closed position used everywhere:
// a realized profit, a close price, or a close timestamp is enough.
func IsClosedTrade(profit, closePrice decimal.Decimal, hasCloseTime bool) bool {
	return !profit.IsZero() || !closePrice.IsZero() || hasCloseTime
}

func (uc *DefaultTradeStoreUsecase) ListByAccount(ctx context.Context, accountID string) ([]*domain.TradeRecord, error) {
	return uc.tradeRepo.GetTradesByAccountID(ctx, accountID)
}

func (uc *DefaultTradeStoreUsecase) Purge(ctx context.Context, accountID string) (int64, error) {
	n, err := uc.tradeRepo.PurgeTradesByAccountID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("purge trades for account %s: %w", accountID, err)
	}
	uc.logger.Info("purged trades", "account_id", accountID, "count", n)
	return n, nil
}
