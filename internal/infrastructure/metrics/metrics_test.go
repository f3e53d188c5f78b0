package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

func TestRecordUpsert(t *testing.T) {
	m := NewIBMetrics(prometheus.NewRegistry())

	stats := domain.NewUpsertStats()
	stats.Received = 5
	stats.Stored = 3
	stats.Skipped[domain.SkipNoID] = 1
	stats.Skipped[domain.SkipNotClosed] = 1
	stats.Matches[domain.MatchExact] = 2
	stats.Matches[domain.MatchNone] = 1

	m.RecordUpsert(domain.TriggerSchedule, stats)

	require.Equal(t, 5.0, testutil.ToFloat64(m.TradesReceivedTotal.WithLabelValues("schedule")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.TradesStoredTotal.WithLabelValues("schedule")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.TradesSkippedTotal.WithLabelValues("no_id")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.RuleMatchesTotal.WithLabelValues("exact")))
}

func TestRecordAggregation(t *testing.T) {
	m := NewIBMetrics(prometheus.NewRegistry())

	m.RecordAggregation(&domain.PartnerCommission{
		PartnerID: "p1",
		Totals: domain.CommissionTotals{
			Fixed:       decimal.RequireFromString("12.5"),
			SpreadShare: decimal.RequireFromString("0.25"),
		},
	}, nil, 0.1)
	m.RecordAggregation(nil, errors.New("boom"), 0.1)

	require.Equal(t, 12.5, testutil.ToFloat64(m.CommissionTotal.WithLabelValues("p1", "fixed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AggregationsTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AggregationsTotal.WithLabelValues("failed")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *IBMetrics
	require.NotPanics(t, func() {
		m.RecordUpsert(domain.TriggerManual, domain.NewUpsertStats())
		m.RecordAccountSync(false, 1)
		m.RecordPartnerFailed()
		m.RecordSyncRun(&domain.SyncRunSummary{StartedAt: time.Now(), FinishedAt: time.Now()})
		m.RecordLookup("cache")
	})
}
