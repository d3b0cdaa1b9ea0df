// Package metrics defines and registers all custom Prometheus metrics for the
// identity auth service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bazaar-market/identity-auth/internal/core/domain"
)

const namespace = "identity_auth"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// Result maps an operation error to its result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case domain.IsClientError(err):
		return ResultFailure
	default:
		return ResultError
	}
}

// ── Wallet flow ───────────────────────────────────────────────────────────────

// ChallengesTotal counts challenge requests.
// Labels:
//   - class: admin, merchant or shopper
//   - auth_type: signup or login
//   - result: success, failure (client error) or error (server error)
var ChallengesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_challenges_total",
		Help:      "Total number of wallet challenge requests.",
	},
	[]string{"class", "auth_type", "result"},
)

// ProofsTotal counts signature proofs.
// Labels:
//   - class: admin, merchant or shopper
//   - result: success, failure or error
var ProofsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_proofs_total",
		Help:      "Total number of wallet signature proofs.",
	},
	[]string{"class", "result"},
)

// ProofDuration measures a proof from request to session issuance or rejection.
var ProofDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "wallet_proof_duration_seconds",
		Help:      "Duration of wallet proof handling.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"class"},
)

// ── Password flow ─────────────────────────────────────────────────────────────

// PasswordAttemptsTotal counts password signups and logins.
// Labels:
//   - class: merchant or shopper
//   - operation: signup or login
//   - result: success, failure or error
var PasswordAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_attempts_total",
		Help:      "Total number of password signup and login attempts.",
	},
	[]string{"class", "operation", "result"},
)

// ── Guards ────────────────────────────────────────────────────────────────────

// GuardDecisionsTotal counts authorization guard decisions.
// Labels:
//   - class: the guarded identity class
//   - result: success, failure or error
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of authorization guard decisions.",
	},
	[]string{"class", "result"},
)

// RateLimitedTotal counts requests rejected by the attempt limiter.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the attempt limiter.",
	},
	[]string{"scope"},
)

// ── Audit trail ───────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of events waiting in each dispatcher worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts events dropped because a worker channel was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped on a full queue.",
	},
)
