package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubCommissions struct {
	commission *domain.PartnerCommission
	rows       []*domain.CommissionSnapshot
	err        error
	lastMaxAge time.Duration
}

func (s *stubCommissions) Aggregate(ctx context.Context, partnerID string) (*domain.PartnerCommission, error) {
	return s.commission, s.err
}

func (s *stubCommissions) GetCommission(ctx context.Context, partnerID string, maxAge time.Duration) (*domain.PartnerCommission, error) {
	s.lastMaxAge = maxAge
	return s.commission, s.err
}

func (s *stubCommissions) ListUserBreakdown(ctx context.Context, partnerID string) ([]*domain.CommissionSnapshot, error) {
	return s.rows, s.err
}

type stubRunner struct {
	running    bool
	err        error
	lastWindow time.Duration
	runs       atomic.Int32
	done       chan struct{}
	release    chan struct{}
}

func (s *stubRunner) RunOnce(ctx context.Context, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error) {
	s.runs.Add(1)
	if s.done != nil {
		close(s.done)
	}
	if s.release != nil {
		<-s.release
	}
	return &domain.SyncRunSummary{ID: "run-all", Trigger: trigger}, nil
}

func (s *stubRunner) SyncPartner(ctx context.Context, partnerID string, trigger domain.SyncTrigger, window time.Duration) (*domain.SyncRunSummary, error) {
	s.lastWindow = window
	if s.err != nil {
		return nil, s.err
	}
	stats := domain.NewUpsertStats()
	stats.Stored = 3
	return &domain.SyncRunSummary{ID: "run-1", Trigger: trigger, Partners: 1, Trades: stats}, nil
}

func (s *stubRunner) Running() bool { return s.running }

var handlerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T, uc *stubCommissions, runner *stubRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewCommissionHandler(context.Background(), uc, runner, CommissionHandlerConfig{
		MaxAge:        4 * time.Hour,
		DefaultWindow: 7 * 24 * time.Hour,
		MaxDays:       90,
	}, nil)
	h.now = func() time.Time { return handlerNow }
	return NewRouter(h, prometheus.NewRegistry())
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestGetCommission(t *testing.T) {
	uc := &stubCommissions{commission: &domain.PartnerCommission{
		PartnerID: "p-1",
		Totals: domain.CommissionTotals{
			Fixed:       decimal.RequireFromString("12.5"),
			SpreadShare: decimal.RequireFromString("0.25"),
			Total:       decimal.RequireFromString("12.75"),
			TotalTrades: 1,
			TotalLots:   decimal.RequireFromString("2.5"),
		},
		ComputedAt: handlerNow.Add(-time.Hour),
	}}
	r := newTestRouter(t, uc, &stubRunner{})

	rec := do(r, http.MethodGet, "/api/partners/p-1/commission")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 4*time.Hour, uc.lastMaxAge)

	var body response.CommissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Total.Equal(decimal.RequireFromString("12.75")))
	require.Equal(t, int64(3600), body.AgeSeconds)

	rec = do(r, http.MethodGet, "/api/partners/p-1/commission?fresh=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, uc.lastMaxAge)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrPartnerNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: p-3", domain.ErrPartnerNotApproved), http.StatusConflict},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newTestRouter(t, &stubCommissions{}, &stubRunner{err: tc.err})
		rec := do(r, http.MethodPost, "/api/partners/p-3/sync")
		require.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestSyncPartnerWindow(t *testing.T) {
	runner := &stubRunner{}
	r := newTestRouter(t, &stubCommissions{}, runner)

	rec := do(r, http.MethodPost, "/api/partners/p-1/sync?days=30")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 30*24*time.Hour, runner.lastWindow)

	var body response.SyncRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "manual", body.Trigger)
	require.Equal(t, 3, body.TradesStored)

	rec = do(r, http.MethodPost, "/api/partners/p-1/sync")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 7*24*time.Hour, runner.lastWindow)

	rec = do(r, http.MethodPost, "/api/partners/p-1/sync?days=400")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSync(t *testing.T) {
	runner := &stubRunner{done: make(chan struct{})}
	r := newTestRouter(t, &stubCommissions{}, runner)

	rec := do(r, http.MethodPost, "/api/sync/run")
	require.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("background run not started")
	}

	busy := newTestRouter(t, &stubCommissions{}, &stubRunner{running: true})
	rec = do(busy, http.MethodPost, "/api/sync/run")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestWaitBlocksUntilManualRunReturns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &stubRunner{done: make(chan struct{}), release: make(chan struct{})}
	h := NewCommissionHandler(context.Background(), &stubCommissions{}, runner, CommissionHandlerConfig{}, nil)
	r := NewRouter(h, prometheus.NewRegistry())

	require.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/sync/run").Code)
	<-runner.done

	waited := make(chan struct{})
	go func() {
		h.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while the run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(runner.release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the run finished")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, &stubCommissions{}, &stubRunner{})
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health").Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics").Code)
}
