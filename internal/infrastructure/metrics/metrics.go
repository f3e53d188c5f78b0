package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LavaJover/shvark-ib-service/internal/domain"
)

// IBMetrics holds the engine's prometheus collectors. A nil *IBMetrics is
// valid and records nothing.
type IBMetrics struct {
	// Trade store
	TradesReceivedTotal *prometheus.CounterVec
	TradesStoredTotal   *prometheus.CounterVec
	TradesSkippedTotal  *prometheus.CounterVec
	RuleMatchesTotal    *prometheus.CounterVec

	// Sync
	SyncRunsTotal          *prometheus.CounterVec
	SyncRunDuration        *prometheus.HistogramVec
	AccountSyncsTotal      *prometheus.CounterVec
	AccountSyncDuration    prometheus.Histogram
	PartnerSyncFailedTotal prometheus.Counter
	LastSyncRunTimestamp   prometheus.Gauge

	// Commission
	AggregationsTotal   *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	CommissionTotal     *prometheus.GaugeVec
	CacheLookupsTotal   *prometheus.CounterVec
}

func NewIBMetrics(reg prometheus.Registerer) *IBMetrics {
	factory := promauto.With(reg)
	return &IBMetrics{
		TradesReceivedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_trades_received_total",
				Help: "Trades received from the trading platform",
			},
			[]string{"trigger"},
		),
		TradesStoredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_trades_stored_total",
				Help: "Trades inserted or updated in the trade store",
			},
			[]string{"trigger"},
		),
		TradesSkippedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_trades_skipped_total",
				Help: "Trades skipped by the trade store, by reason",
			},
			[]string{"reason"},
		),
		RuleMatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_rule_matches_total",
				Help: "Commission rule resolutions by match kind (exact/fuzzy/single/none)",
			},
			[]string{"kind"},
		),
		SyncRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_sync_runs_total",
				Help: "Completed sync runs",
			},
			[]string{"trigger", "canceled"},
		),
		SyncRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ib_sync_run_duration_seconds",
				Help:    "Wall time of a sync run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34m
			},
			[]string{"trigger"},
		),
		AccountSyncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_account_syncs_total",
				Help: "Per-account sync pipelines by result",
			},
			[]string{"result"},
		),
		AccountSyncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ib_account_sync_duration_seconds",
				Help:    "Wall time of one account's sync pipeline",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		PartnerSyncFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ib_partner_sync_failed_total",
				Help: "Partners whose sync had at least one failure",
			},
		),
		LastSyncRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ib_last_sync_run_timestamp_seconds",
				Help: "Unix time the last sync run finished",
			},
		),
		AggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_commission_aggregations_total",
				Help: "Commission aggregations by result",
			},
			[]string{"result"},
		),
		AggregationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ib_commission_aggregation_duration_seconds",
				Help:    "Time to recompute a partner's commission snapshot",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		CommissionTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ib_partner_commission_usd",
				Help: "Latest computed commission per partner",
			},
			[]string{"partner_id", "component"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ib_commission_lookups_total",
				Help: "Commission reads by source (cache/snapshot/recompute)",
			},
			[]string{"source"},
		),
	}
}

// RecordUpsert records one trade store call
func (m *IBMetrics) RecordUpsert(trigger domain.SyncTrigger, stats domain.UpsertStats) {
	if m == nil {
		return
	}
	m.TradesReceivedTotal.WithLabelValues(string(trigger)).Add(float64(stats.Received))
	m.TradesStoredTotal.WithLabelValues(string(trigger)).Add(float64(stats.Stored))
	for reason, n := range stats.Skipped {
		m.TradesSkippedTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	for kind, n := range stats.Matches {
		m.RuleMatchesTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func (m *IBMetrics) RecordAccountSync(ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.AccountSyncsTotal.WithLabelValues(result).Inc()
	m.AccountSyncDuration.Observe(seconds)
}

func (m *IBMetrics) RecordPartnerFailed() {
	if m == nil {
		return
	}
	m.PartnerSyncFailedTotal.Inc()
}

func (m *IBMetrics) RecordSyncRun(run *domain.SyncRunSummary) {
	if m == nil {
		return
	}
	canceled := "false"
	if run.Canceled {
		canceled = "true"
	}
	m.SyncRunsTotal.WithLabelValues(string(run.Trigger), canceled).Inc()
	m.SyncRunDuration.WithLabelValues(string(run.Trigger)).Observe(run.Duration().Seconds())
	m.LastSyncRunTimestamp.Set(float64(run.FinishedAt.Unix()))
}

func (m *IBMetrics) RecordAggregation(c *domain.PartnerCommission, err error, seconds float64) {
	if m == nil {
		return
	}
	m.AggregationDuration.Observe(seconds)
	if err != nil {
		m.AggregationsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.AggregationsTotal.WithLabelValues("ok").Inc()
	fixed, _ := c.Totals.Fixed.Float64()
	spread, _ := c.Totals.SpreadShare.Float64()
	m.CommissionTotal.WithLabelValues(c.PartnerID, "fixed").Set(fixed)
	m.CommissionTotal.WithLabelValues(c.PartnerID, "spread_share").Set(spread)
}

func (m *IBMetrics) RecordLookup(source string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(source).Inc()
}
