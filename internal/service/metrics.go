package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics
var (
	ledgerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerdesk_ledger_transitions_total",
		Help: "Transaction status transitions by outcome",
	}, []string{"type", "to", "result"})

	ledgerCredits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerdesk_ledger_credits_total",
		Help: "Admin fund additions and internal transfers by outcome",
	}, []string{"kind", "result"})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerdesk_side_effect_failures_total",
		Help: "Failed best-effort notification deliveries",
	}, []string{"channel"})

	notificationsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brokerdesk_notifications_purged_total",
		Help: "Read notifications removed by the retention job",
	})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
