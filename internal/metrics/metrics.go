// Package metrics содержит прикладные метрики эскроу. Отдаются модулем MetricServer на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "escrow"

//nolint:gochecknoglobals
var (
	DealTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deal_transitions_total",
		Help:      "Deal status transitions by target status.",
	}, []string{"status"})

	LedgerPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_postings_total",
		Help:      "Committed ledger postings by audit action.",
	}, []string{"action"})

	LedgerVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_volume_cents_total",
		Help:      "Moved amount in minor units by audit action.",
	}, []string{"action"})

	FeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fees_collected_cents_total",
		Help:      "Platform fee retained on release and resolution.",
	})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Admission decisions: allowed, rejected, fail_open, fail_closed.",
	}, []string{"result"})

	WebhookDeposits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deposits_total",
		Help:      "External payment confirmations: applied, duplicate, ignored, rejected.",
	}, []string{"result"})

	AuditIntegrityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_integrity_failures_total",
		Help:      "Hash chain mismatches detected.",
	})

	AuditVerifiedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_verified_entries",
		Help:      "Entries covered by the last successful chain verification.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification delivery attempts by result.",
	}, []string{"result"})
)
