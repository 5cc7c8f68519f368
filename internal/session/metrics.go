package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_auth_attempts_total",
			Help: "Login and signup attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	tokenResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_token_resets_total",
			Help: "Times the stored token pair was cleared, by reason",
		},
		[]string{"reason"},
	)

	authRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_auth_retries_total",
			Help: "Requests re-issued after the authenticated attempt failed, by retry kind",
		},
		[]string{"kind"},
	)

	identityRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_identity_refreshes_total",
			Help: "Current-user refreshes by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome labels.
const (
	outcomeSuccess   = "success"
	outcomeRejected  = "rejected"
	outcomeNetwork   = "network_error"
	outcomeInvalid   = "invalid_input"
	outcomeThrottled = "throttled"
	outcomeStorage   = "storage_error"
)
