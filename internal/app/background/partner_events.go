package background

import (
	"context"
	"errors"
	"log/slog"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	publisher "github.com/LavaJover/shvark-ib-service/internal/infrastructure/kafka"
)

func (bt *BackgroundTasks) startPartnerEvents(ctx context.Context) error {
	msgs, err := bt.Subscriber.Subscribe(ctx, domain.TopicPartnerEvents, bt.cfg.GroupID)
	if err != nil {
		return err
	}
	bt.goTracked(func() { bt.consumePartnerEvents(ctx, msgs) })
	return nil
}

// consumePartnerEvents backfills a partner whenever the approval workflow
// approves it, edits its assignments or moves a referral to it. Events are
// handled one at a time; a backfill in progress when ctx is done finishes
// before the consumer returns.
func (bt *BackgroundTasks) consumePartnerEvents(ctx context.Context, msgs <-chan domain.Message) {
	for {
		var msg domain.Message
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			msg = m
		}

		ev, err := publisher.DecodePartnerEvent(msg)
		if err != nil {
			bt.logger.Warn("dropping partner event", slog.String("error", err.Error()))
			continue
		}
		switch ev.Type {
		case domain.PartnerEventApproved, domain.PartnerEventAssignmentsEdited, domain.PartnerEventReferralAssigned:
		default:
			bt.logger.Debug("ignoring partner event", slog.String("type", string(ev.Type)))
			continue
		}

		run, err := bt.Sync.SyncPartner(ctx, ev.PartnerID, domain.TriggerEvent, bt.cfg.BackfillWindow)
		switch {
		case errors.Is(err, domain.ErrPartnerNotApproved), errors.Is(err, domain.ErrPartnerNotFound):
			bt.logger.Info("partner event for inactive partner",
				slog.String("partner_id", ev.PartnerID),
				slog.String("type", string(ev.Type)))
		case err != nil:
			bt.logger.Error("event backfill failed",
				slog.String("partner_id", ev.PartnerID),
				slog.String("error", err.Error()))
		default:
			bt.logger.Info("event backfill finished",
				slog.String("partner_id", ev.PartnerID),
				slog.String("type", string(ev.Type)),
				slog.Int("trades_stored", run.Trades.Stored))
		}
	}
}
