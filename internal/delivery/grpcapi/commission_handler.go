package grpcapi

import (
	"context"
	"errors"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/usecase"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type PartnerSyncer interface {
	SyncPartner(ctx context.Context, partnerID string, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error)
}

type CommissionHandler struct {
	commissionUc  usecase.CommissionUsecase
	syncer        PartnerSyncer
	maxAge        time.Duration
	defaultWindow time.Duration
}

func NewCommissionHandler(
	commissionUc usecase.CommissionUsecase,
	syncer PartnerSyncer,
	maxAge, defaultWindow time.Duration,
) *CommissionHandler {
	return &CommissionHandler{
		commissionUc:  commissionUc,
		syncer:        syncer,
		maxAge:        maxAge,
		defaultWindow: defaultWindow,
	}
}

func (h *CommissionHandler) GetCommission(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	partnerID, err := partnerIDOf(r)
	if err != nil {
		return nil, err
	}
	maxAge := h.maxAge
	if r.GetFields()["fresh"].GetBoolValue() {
		maxAge = 0
	}

	commission, err := h.commissionUc.GetCommission(ctx, partnerID, maxAge)
	if err != nil {
		return nil, toStatus(err)
	}

	fields := totalsFields(commission.Totals)
	fields["partner_id"] = commission.PartnerID
	fields["computed_at"] = commission.ComputedAt.UTC().Format(time.RFC3339)
	return structpb.NewStruct(fields)
}

func (h *CommissionHandler) ListUserBreakdown(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	partnerID, err := partnerIDOf(r)
	if err != nil {
		return nil, err
	}
	rows, err := h.commissionUc.ListUserBreakdown(ctx, partnerID)
	if err != nil {
		return nil, toStatus(err)
	}

	users := make([]any, len(rows))
	for i, row := range rows {
		fields := totalsFields(row.Totals)
		fields["referred_user_id"] = row.ReferredUserID
		fields["computed_at"] = row.ComputedAt.UTC().Format(time.RFC3339)
		users[i] = fields
	}
	return structpb.NewStruct(map[string]any{
		"partner_id": partnerID,
		"users":      users,
	})
}

func (h *CommissionHandler) SyncPartner(ctx context.Context, r *structpb.Struct) (*structpb.Struct, error) {
	partnerID, err := partnerIDOf(r)
	if err != nil {
		return nil, err
	}
	window := h.defaultWindow
	if days := r.GetFields()["days"].GetNumberValue(); days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	run, err := h.syncer.SyncPartner(ctx, partnerID, domain.TriggerManual, window)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"run_id":          run.ID,
		"accounts":        run.Accounts,
		"accounts_failed": run.AccountsFailed,
		"trades_received": run.Trades.Received,
		"trades_stored":   run.Trades.Stored,
		"canceled":        run.Canceled,
	})
}

func partnerIDOf(r *structpb.Struct) (string, error) {
	id := r.GetFields()["partner_id"].GetStringValue()
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "partner_id is required")
	}
	return id, nil
}

func totalsFields(t domain.CommissionTotals) map[string]any {
	return map[string]any{
		"fixed":        t.Fixed.String(),
		"spread_share": t.SpreadShare.String(),
		"total":        t.Total.String(),
		"total_trades": t.TotalTrades,
		"total_lots":   t.TotalLots.String(),
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrPartnerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrPartnerNotApproved), errors.Is(err, domain.ErrSyncAlreadyRunning):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
