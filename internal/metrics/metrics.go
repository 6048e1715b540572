package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_gateway_requests_total",
			Help: "Total KakaoPay API calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "billing_gateway_request_duration_seconds",
			Help: "Duration of KakaoPay API calls",
		},
		[]string{"operation"},
	)

	SubscriptionsActivated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_activated_total",
			Help: "Subscriptions transitioned to active, by plan",
		},
		[]string{"plan"},
	)

	SubscriptionsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_cancelled_total",
			Help: "Subscriptions cancelled by users",
		},
	)

	SubscriptionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_expired_total",
			Help: "Subscriptions expired by the sweep",
		},
	)

	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_sweep_runs_total",
			Help: "Completed expiry/reconciliation sweep runs",
		},
	)
)
