package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/robfig/cron/v3"
)

type SyncRunner interface {
	RunOnce(ctx context.Context, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error)
	SyncPartner(ctx context.Context, partnerID string, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error)
}

type Evictor interface {
	EvictExpired() int
}

type Config struct {
	// Cron expression, e.g. "@every 5m" or "0 */10 * * * *".
	Schedule       string
	InitialDelay   time.Duration
	Window         time.Duration
	BackfillWindow time.Duration
	JanitorEvery   time.Duration
	GroupID        string
}

type BackgroundTasks struct {
	Sync       SyncRunner
	Cache      Evictor
	Subscriber domain.SubscriberPort
	cfg        Config
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewBackgroundTasks(sync SyncRunner, cache Evictor, subscriber domain.SubscriberPort, cfg Config, logger *slog.Logger) *BackgroundTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundTasks{
		Sync:       sync,
		Cache:      cache,
		Subscriber: subscriber,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "background")),
	}
}

// StartAll starts the sync schedule, the cache janitor and, when a
// subscriber is configured, the partner event consumer. The returned
// function cancels them and waits until every sync they started has
// finished, so the caller may close the database afterwards.
func (bt *BackgroundTasks) StartAll(parent context.Context) (stop func(), err error) {
	ctx, cancel := context.WithCancel(parent)

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{bt.logger}),
		cron.WithChain(cron.Recover(cronLogger{bt.logger}), cron.SkipIfStillRunning(cronLogger{bt.logger})),
	)
	if _, err := c.AddFunc(bt.cfg.Schedule, func() { bt.runScheduled(ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("sync schedule %q: %w", bt.cfg.Schedule, err)
	}
	c.Start()

	stop = func() {
		cancel()
		<-c.Stop().Done()
		bt.wg.Wait()
	}

	bt.goTracked(func() { bt.startInitialRun(ctx) })
	if bt.Cache != nil && bt.cfg.JanitorEvery > 0 {
		bt.goTracked(func() { bt.startCacheJanitor(ctx) })
	}
	if bt.Subscriber != nil {
		if err := bt.startPartnerEvents(ctx); err != nil {
			stop()
			return nil, err
		}
	}

	return stop, nil
}

func (bt *BackgroundTasks) goTracked(fn func()) {
	bt.wg.Add(1)
	go func() {
		defer bt.wg.Done()
		fn()
	}()
}

func (bt *BackgroundTasks) runScheduled(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := bt.Sync.RunOnce(ctx, domain.TriggerSchedule, bt.cfg.Window)
	switch {
	case errors.Is(err, domain.ErrSyncAlreadyRunning):
		bt.logger.Info("scheduled sync skipped, another run is in progress")
	case err != nil:
		bt.logger.Error("scheduled sync failed", slog.String("error", err.Error()))
	}
}

func (bt *BackgroundTasks) startInitialRun(ctx context.Context) {
	if bt.cfg.InitialDelay < 0 {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(bt.cfg.InitialDelay):
		bt.runScheduled(ctx)
	}
}

func (bt *BackgroundTasks) startCacheJanitor(ctx context.Context) {
	ticker := time.NewTicker(bt.cfg.JanitorEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := bt.Cache.EvictExpired(); n > 0 {
				bt.logger.Debug("evicted expired commission entries", slog.Int("count", n))
			}
		}
	}
}

// cronLogger routes robfig/cron diagnostics to slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
