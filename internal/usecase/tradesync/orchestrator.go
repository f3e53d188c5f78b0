// Package tradesync pulls closed trades for every approved partner's team
// from the trading platform and refreshes their commission snapshots.
package tradesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-ib-service/internal/usecase"
)

type Config struct {
	AccountConcurrency int
	AccountTimeout     time.Duration
	AggregateTimeout   time.Duration
}

type Deps struct {
	Partners    usecase.PartnerUsecase
	Referrals   usecase.ReferralUsecase
	Trades      usecase.TradeStoreUsecase
	Commissions usecase.CommissionUsecase
	AccountRepo domain.TradingAccountRepository
	SyncRunRepo domain.SyncRunRepository
	Platform    domain.TradingPlatform
	Publisher   domain.EventPublisher
	Metrics     *metrics.IBMetrics
	Logger      *slog.Logger
}

type Orchestrator struct {
	Deps
	cfg     Config
	running atomic.Bool
	now     func() time.Time
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.AccountConcurrency <= 0 {
		cfg.AccountConcurrency = 1
	}
	if cfg.AccountTimeout <= 0 {
		cfg.AccountTimeout = 2 * time.Minute
	}
	if cfg.AggregateTimeout <= 0 {
		cfg.AggregateTimeout = time.Minute
	}
	return &Orchestrator{Deps: deps, cfg: cfg, now: time.Now}
}

// Running reports whether a full sync run is in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// accountJob is one trading account with the partner that owns it for
// commission purposes, i.e. the user's direct referrer.
type accountJob struct {
	account *domain.TradingAccount
	ownerID string
	rules   domain.RuleMap
}

type partnerResult struct {
	accounts       int
	accountsFailed int
	trades         domain.UpsertStats
	failed         bool
	canceled       bool
}

// RunOnce syncs every approved partner once. Partners are processed one at a
// time; a failing partner or account is counted and skipped. Once ctx is
// done no new work is started, but accounts already in flight finish.
func (o *Orchestrator) RunOnce(ctx context.Context, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncAlreadyRunning
	}
	defer o.running.Store(false)

	run := o.newRun(trigger, window)

	partners, err := o.Partners.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved partners: %w", err)
	}
	o.Logger.Info("sync run started",
		"run_id", run.ID,
		"trigger", trigger,
		"window", window,
		"partners", len(partners))

	for _, partner := range partners {
		if ctx.Err() != nil {
			run.Canceled = true
			break
		}
		o.applyPartner(run, partner, o.syncPartner(ctx, partner, trigger, window))
	}
	if ctx.Err() != nil {
		run.Canceled = true
	}

	o.finish(ctx, run)
	return run, nil
}

// SyncPartner runs the account pipeline for a single approved partner, for
// manual and backfill syncs that usually ask for a wider window.
func (o *Orchestrator) SyncPartner(ctx context.Context, partnerID string, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error) {
	partner, err := o.Partners.GetPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if partner.Status != domain.PartnerApproved {
		return nil, fmt.Errorf("%w: %s", domain.ErrPartnerNotApproved, partnerID)
	}

	run := o.newRun(trigger, window)
	o.applyPartner(run, partner, o.syncPartner(ctx, partner, trigger, window))
	if ctx.Err() != nil {
		run.Canceled = true
	}
	o.finish(ctx, run)
	return run, nil
}

func (o *Orchestrator) newRun(trigger domain.SyncTrigger, window time.Duration) *domain.SyncRunSummary {
	return &domain.SyncRunSummary{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Window:    window,
		Trades:    domain.NewUpsertStats(),
		StartedAt: o.now().UTC(),
	}
}

func (o *Orchestrator) applyPartner(run *domain.SyncRunSummary, partner *domain.Partner, res partnerResult) {
	run.Partners++
	run.Accounts += res.accounts
	run.AccountsFailed += res.accountsFailed
	run.Trades.Merge(res.trades)
	if res.canceled {
		run.Canceled = true
	}
	if res.failed || (res.accounts > 0 && res.accountsFailed == res.accounts) {
		run.PartnersFailed++
		o.Metrics.RecordPartnerFailed()
		o.Logger.Warn("partner sync failed",
			"partner_id", partner.ID,
			"accounts", res.accounts,
			"accounts_failed", res.accountsFailed)
	}
}

func (o *Orchestrator) syncPartner(ctx context.Context, partner *domain.Partner, trigger domain.SyncTrigger, window time.Duration) partnerResult {
	res := partnerResult{trades: domain.NewUpsertStats()}

	jobs, err := o.planAccounts(ctx, partner)
	if err != nil {
		o.Logger.Error("failed to plan partner sync", "partner_id", partner.ID, "error", err)
		res.failed = true
		return res
	}

	var (
		mu      sync.Mutex
		touched = map[string]struct{}{partner.ID: {}}
	)

	var g errgroup.Group
	g.SetLimit(o.cfg.AccountConcurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			res.canceled = true
			break
		}
		job := job
		res.accounts++
		g.Go(func() error {
			started := o.now()
			stats, err := o.syncAccount(ctx, job, trigger, window)
			o.Metrics.RecordAccountSync(err == nil, o.now().Sub(started).Seconds())

			mu.Lock()
			defer mu.Unlock()
			res.trades.Merge(stats)
			if err != nil {
				res.accountsFailed++
				o.Logger.Warn("account sync failed",
					"partner_id", partner.ID,
					"owner_partner_id", job.ownerID,
					"account_id", job.account.ID,
					"error", err)
				return nil
			}
			touched[job.ownerID] = struct{}{}
			return nil
		})
	}
	_ = g.Wait()

	o.aggregate(ctx, touched)

	o.Logger.Info("partner synced",
		"partner_id", partner.ID,
		"accounts", res.accounts,
		"accounts_failed", res.accountsFailed,
		"stored", res.trades.Stored,
		"skipped", res.trades.SkippedTotal())
	return res
}

// planAccounts lists the partner's own accounts and every account in its
// referral scope. Each account is owned by its user's direct referrer no
// matter whose run enumerates it; an account whose user has no referrer has
// no owner and earns no commission.
func (o *Orchestrator) planAccounts(ctx context.Context, partner *domain.Partner) ([]accountJob, error) {
	scope, err := o.Referrals.ResolveScope(ctx, partner)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	userIDs := scope.UserIDs()
	if partner.UserID != "" {
		userIDs = append(userIDs, partner.UserID)
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	accounts, err := o.AccountRepo.GetAccountsByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	owners := scope.Owners
	if partner.UserID != "" {
		referrer, err := o.Referrals.ReferrerOf(ctx, partner.UserID)
		if err != nil {
			return nil, err
		}
		owners = make(map[string]string, len(scope.Owners)+1)
		for userID, ownerID := range scope.Owners {
			owners[userID] = ownerID
		}
		owners[partner.UserID] = referrer
	}

	rules := make(map[string]domain.RuleMap)
	jobs := make([]accountJob, 0, len(accounts))
	for _, account := range accounts {
		ownerID := owners[account.UserID]
		if ownerID == "" {
			jobs = append(jobs, accountJob{account: account})
			continue
		}

		ruleMap, ok := rules[ownerID]
		if !ok {
			owner := partner
			if ownerID != partner.ID {
				owner, err = o.Partners.GetPartner(ctx, ownerID)
				if err != nil {
					return nil, fmt.Errorf("load owner partner %s: %w", ownerID, err)
				}
			}
			ruleMap, err = o.Partners.RuleMap(ctx, owner)
			if err != nil {
				return nil, err
			}
			rules[ownerID] = ruleMap
		}

		jobs = append(jobs, accountJob{account: account, ownerID: ownerID, rules: ruleMap})
	}
	return jobs, nil
}

// syncAccount runs on a context detached from the run's cancellation so an
// upsert that has started is never cut short; the per-account timeout still
// bounds it.
func (o *Orchestrator) syncAccount(parent context.Context, job accountJob, trigger domain.SyncTrigger, window time.Duration) (domain.UpsertStats, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), o.cfg.AccountTimeout)
	defer cancel()

	account := job.account
	if account.Login == "" || account.Password == "" {
		return domain.UpsertStats{}, fmt.Errorf("account %s: %w", account.ID, domain.ErrMissingCredential)
	}

	token, err := o.Platform.Authenticate(ctx, account.Login, account.Password)
	if err != nil {
		return domain.UpsertStats{}, fmt.Errorf("authenticate %s: %w", account.Login, err)
	}

	to := o.now().UTC()
	from := to.Add(-window)
	raw, err := o.Platform.ClosedTrades(ctx, token, account.Login, from, to)
	if err != nil {
		return domain.UpsertStats{}, fmt.Errorf("fetch closed trades of %s: %w", account.Login, err)
	}

	group, err := o.Platform.ClientGroup(ctx, token, account.Login)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamAuth) {
			return domain.UpsertStats{}, fmt.Errorf("fetch profile of %s: %w", account.Login, err)
		}
		// Trades may still carry their own group field.
		o.Logger.Warn("client profile unavailable", "account_id", account.ID, "error", err)
		group = ""
	}

	stats, err := o.Trades.Upsert(ctx, raw, domain.UpsertContext{
		AccountID:   account.ID,
		UserID:      account.UserID,
		PartnerID:   job.ownerID,
		Rules:       job.rules,
		GroupAtSync: group,
	})
	o.Metrics.RecordUpsert(trigger, stats)
	return stats, err
}

func (o *Orchestrator) aggregate(parent context.Context, partnerIDs map[string]struct{}) {
	ids := make([]string, 0, len(partnerIDs))
	for id := range partnerIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), o.cfg.AggregateTimeout)
		_, err := o.Commissions.Aggregate(ctx, id)
		cancel()
		if err != nil {
			o.Logger.Error("commission aggregation failed", "partner_id", id, "error", err)
		}
	}
}

func (o *Orchestrator) finish(parent context.Context, run *domain.SyncRunSummary) {
	run.FinishedAt = o.now().UTC()

	o.Logger.Info("sync run finished",
		"run_id", run.ID,
		"trigger", run.Trigger,
		"partners", run.Partners,
		"partners_failed", run.PartnersFailed,
		"accounts", run.Accounts,
		"accounts_failed", run.AccountsFailed,
		"received", run.Trades.Received,
		"stored", run.Trades.Stored,
		"skipped", run.Trades.Skipped,
		"canceled", run.Canceled,
		"elapsed", run.Duration())

	o.Metrics.RecordSyncRun(run)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), o.cfg.AggregateTimeout)
	defer cancel()
	if o.SyncRunRepo != nil {
		if err := o.SyncRunRepo.SaveSyncRun(ctx, run); err != nil {
			o.Logger.Error("failed to save sync run", "run_id", run.ID, "error", err)
		}
	}
	if o.Publisher != nil {
		if err := o.Publisher.PublishSyncRun(run); err != nil {
			o.Logger.Error("failed to publish sync run", "run_id", run.ID, "error", err)
		}
	}
}
