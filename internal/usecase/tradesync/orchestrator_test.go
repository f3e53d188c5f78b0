package tradesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/LavaJover/shvark-ib-service/internal/domain/domaintest"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/cache"
	"github.com/LavaJover/shvark-ib-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-ib-service/internal/usecase"
)

type fakePlatform struct {
	mu       sync.Mutex
	trades   map[string][]domain.RawTrade
	groups   map[string]string
	authErr  map[string]error
	onFetch  func(ctx context.Context, login string) error
	fetched  []string
	lastFrom time.Time
}

func (p *fakePlatform) Authenticate(_ context.Context, login, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.authErr[login]; err != nil {
		return "", err
	}
	return "token-" + login, nil
}

func (p *fakePlatform) ClosedTrades(ctx context.Context, _ string, login string, from, _ time.Time) ([]domain.RawTrade, error) {
	if p.onFetch != nil {
		if err := p.onFetch(ctx, login); err != nil {
			return nil, err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched = append(p.fetched, login)
	p.lastFrom = from
	return p.trades[login], nil
}

func (p *fakePlatform) ClientGroup(_ context.Context, _ string, login string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	group, ok := p.groups[login]
	if !ok {
		return "", domain.ErrUpstream
	}
	return group, nil
}

type fixture struct {
	partners  *domaintest.MemPartnerRepo
	trades    *domaintest.MemTradeRepo
	snapshots *domaintest.MemSnapshotRepo
	runs      *domaintest.MemSyncRunRepo
	publisher *domaintest.RecordingPublisher
	accounts  *domaintest.MemAccountRepo
	platform  *fakePlatform
	metrics   *metrics.IBMetrics
	orch      *Orchestrator
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newFixture builds partner p-1 with sub-partner p-2:
//
//	p-1 (user u-p, own account acc-p)
//	├── u-1 (acc-1)
//	└── u-s = p-2
//	    └── u-2 (acc-2)
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		partners: domaintest.NewMemPartnerRepo(
			&domain.Partner{ID: "p-1", UserID: "u-p", Status: domain.PartnerApproved},
			&domain.Partner{ID: "p-2", UserID: "u-s", Status: domain.PartnerApproved, ReferredByPartnerID: "p-1"},
			&domain.Partner{ID: "p-3", UserID: "u-x", Status: domain.PartnerPending},
		),
		trades:    domaintest.NewMemTradeRepo(),
		snapshots: domaintest.NewMemSnapshotRepo(),
		runs:      &domaintest.MemSyncRunRepo{},
		publisher: &domaintest.RecordingPublisher{},
		accounts: &domaintest.MemAccountRepo{Accounts: []*domain.TradingAccount{
			{ID: "acc-p", UserID: "u-p", Login: "1000", Password: "secret"},
			{ID: "acc-1", UserID: "u-1", Login: "1001", Password: "secret"},
			{ID: "acc-2", UserID: "u-2", Login: "1002", Password: "secret"},
		}},
		platform: &fakePlatform{
			trades: map[string][]domain.RawTrade{
				"1000": {{"orderId": "1", "symbol": "EURUSD", "lots": 10.0, "profit": 3.0}},
				"1001": {{"orderId": "1", "symbol": "EURUSD", "lots": 2.5, "profit": 31.4}},
				"1002": {{"orderId": "1", "symbol": "XAUUSD", "lots": 1.0, "closePrice": 2310.5}},
			},
			groups: map[string]string{
				"1000": "real\\bbook\\pro",
				"1001": "real\\bbook\\pro",
				"1002": "real\\bbook\\ecn",
			},
		},
		metrics: metrics.NewIBMetrics(prometheus.NewRegistry()),
	}

	assignments := domaintest.NewMemAssignmentRepo()
	require.NoError(t, assignments.ReplaceAssignments(ctx, "p-1", []*domain.GroupAssignment{
		{GroupID: "pro", USDPerLot: d("5"), SpreadSharePercent: d("10")},
	}))
	require.NoError(t, assignments.ReplaceAssignments(ctx, "p-2", []*domain.GroupAssignment{
		{GroupID: "ecn", USDPerLot: d("2")},
	}))

	referrals := &domaintest.MemReferralRepo{}
	referrals.Link("u-1", "p-1")
	referrals.Link("u-s", "p-1")
	referrals.Link("u-2", "p-2")

	commissionCache := cache.NewTTLCache[*domain.PartnerCommission](time.Minute)
	partnerUC := usecase.NewDefaultPartnerUsecase(f.partners, assignments, f.snapshots, commissionCache, nil)
	referralUC := usecase.NewDefaultReferralUsecase(referrals, f.partners, nil)
	commissionUC := usecase.NewDefaultCommissionUsecase(usecase.CommissionDeps{
		PartnerRepo:    f.partners,
		AssignmentRepo: assignments,
		AccountRepo:    f.accounts,
		TradeRepo:      f.trades,
		SnapshotRepo:   f.snapshots,
		Referrals:      referralUC,
		Cache:          commissionCache,
		Publisher:      f.publisher,
		Metrics:        f.metrics,
	})

	f.orch = NewOrchestrator(Deps{
		Partners:    partnerUC,
		Referrals:   referralUC,
		Trades:      usecase.NewDefaultTradeStoreUsecase(f.trades, 1, nil),
		Commissions: commissionUC,
		AccountRepo: f.accounts,
		SyncRunRepo: f.runs,
		Platform:    f.platform,
		Publisher:   f.publisher,
		Metrics:     f.metrics,
	}, Config{AccountConcurrency: 2, AccountTimeout: 5 * time.Second})
	return f
}

func TestRunOnceSyncsAllApprovedPartners(t *testing.T) {
	f := newFixture(t)

	run, err := f.orch.RunOnce(context.Background(), domain.TriggerSchedule, 7*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, run.Partners)
	require.Equal(t, 4, run.Accounts)
	require.Zero(t, run.AccountsFailed)
	require.Zero(t, run.PartnersFailed)
	require.False(t, run.Canceled)
	require.Equal(t, 3, f.trades.Len())

	// acc-2 belongs to p-2's referral, so its stored commission uses p-2's rules.
	stored, err := f.trades.GetTradesByAccountID(context.Background(), "acc-2")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "p-2", stored[0].PartnerID)
	require.True(t, stored[0].Commission.Equal(d("2")))

	top, err := f.snapshots.GetPartnerCommission(context.Background(), "p-1")
	require.NoError(t, err)
	// acc-1: 2.5 lots on pro = 12.75; acc-2 re-resolved against p-1's single
	// rule = 5.1; p-1's own account is excluded.
	require.True(t, top.Totals.Total.Equal(d("17.85")), top.Totals.Total.String())
	require.EqualValues(t, 2, top.Totals.TotalTrades)

	sub, err := f.snapshots.GetPartnerCommission(context.Background(), "p-2")
	require.NoError(t, err)
	require.True(t, sub.Totals.Total.Equal(d("2")), sub.Totals.Total.String())

	require.Len(t, f.runs.Runs, 1)
	require.Len(t, f.publisher.Runs, 1)
	require.Equal(t, run.ID, f.runs.Runs[0].ID)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SyncRunsTotal.WithLabelValues(string(domain.TriggerSchedule), "false")))
}

func TestAccountOwnerDoesNotDependOnSyncOrder(t *testing.T) {
	type row struct{ partnerID, commission string }
	syncInOrder := func(order ...string) row {
		f := newFixture(t)
		f.accounts.Accounts = append(f.accounts.Accounts,
			&domain.TradingAccount{ID: "acc-s", UserID: "u-s", Login: "1003", Password: "secret"})
		f.platform.trades["1003"] = []domain.RawTrade{{"orderId": "1", "symbol": "EURUSD", "lots": 1.0, "profit": 2.0}}
		f.platform.groups["1003"] = "real\\bbook\\pro"

		for _, partnerID := range order {
			_, err := f.orch.SyncPartner(context.Background(), partnerID, domain.TriggerManual, time.Hour)
			require.NoError(t, err)
		}
		stored, err := f.trades.GetTradesByAccountID(context.Background(), "acc-s")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		return row{stored[0].PartnerID, stored[0].Commission.String()}
	}

	// u-s is p-2's own user and was referred by p-1.
	want := row{"p-1", "5"}
	require.Equal(t, want, syncInOrder("p-1", "p-2"))
	require.Equal(t, want, syncInOrder("p-2", "p-1"))
}

func TestPartnerOwnAccountWithoutReferrerEarnsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.SyncPartner(context.Background(), "p-1", domain.TriggerManual, time.Hour)
	require.NoError(t, err)

	stored, err := f.trades.GetTradesByAccountID(context.Background(), "acc-p")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Empty(t, stored[0].PartnerID)
	require.True(t, stored[0].Commission.IsZero())
}

func TestRunOnceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.RunOnce(ctx, domain.TriggerSchedule, time.Hour)
	require.NoError(t, err)
	first, err := f.snapshots.GetPartnerCommission(ctx, "p-1")
	require.NoError(t, err)

	_, err = f.orch.RunOnce(ctx, domain.TriggerSchedule, time.Hour)
	require.NoError(t, err)
	second, err := f.snapshots.GetPartnerCommission(ctx, "p-1")
	require.NoError(t, err)

	require.Equal(t, 3, f.trades.Len())
	require.True(t, first.Totals.Total.Equal(second.Totals.Total))
}

func TestRunOnceIsolatesAccountFailures(t *testing.T) {
	f := newFixture(t)
	f.accounts.Accounts[0].Password = ""
	f.platform.authErr = map[string]error{"1001": errors.New("invalid credentials")}

	run, err := f.orch.RunOnce(context.Background(), domain.TriggerSchedule, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 4, run.Accounts)
	require.Equal(t, 2, run.AccountsFailed)
	require.Zero(t, run.PartnersFailed)

	stored, err := f.trades.GetTradesByAccountID(context.Background(), "acc-2")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, 1, f.trades.Len())
}

func TestRunOnceStopsLaunchingAfterCancel(t *testing.T) {
	f := newFixture(t)
	f.orch.cfg.AccountConcurrency = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once
	f.platform.onFetch = func(accountCtx context.Context, _ string) error {
		once.Do(cancel)
		return accountCtx.Err()
	}

	run, err := f.orch.RunOnce(ctx, domain.TriggerSchedule, time.Hour)
	require.NoError(t, err)
	require.True(t, run.Canceled)
	require.Equal(t, 1, run.Partners)
	require.Less(t, run.Accounts, 3)
	require.Zero(t, run.AccountsFailed)

	// The account that was in flight when the run was canceled completed.
	require.GreaterOrEqual(t, f.trades.Len(), 1)
	require.Len(t, f.runs.Runs, 1)
	require.True(t, f.runs.Runs[0].Canceled)
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.platform.onFetch = func(context.Context, string) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.RunOnce(context.Background(), domain.TriggerSchedule, time.Hour)
		done <- err
	}()

	<-entered
	_, err := f.orch.RunOnce(context.Background(), domain.TriggerManual, time.Hour)
	require.ErrorIs(t, err, domain.ErrSyncAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestSyncPartner(t *testing.T) {
	f := newFixture(t)

	run, err := f.orch.SyncPartner(context.Background(), "p-2", domain.TriggerBackfill, 90*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, run.Partners)
	require.Equal(t, 1, run.Accounts)
	require.Equal(t, domain.TriggerBackfill, run.Trigger)
	require.WithinDuration(t, time.Now().Add(-90*24*time.Hour), f.platform.lastFrom, time.Minute)

	_, err = f.orch.SyncPartner(context.Background(), "p-3", domain.TriggerManual, time.Hour)
	require.ErrorIs(t, err, domain.ErrPartnerNotApproved)

	_, err = f.orch.SyncPartner(context.Background(), "p-missing", domain.TriggerManual, time.Hour)
	require.ErrorIs(t, err, domain.ErrPartnerNotFound)
}
