// Package observability provides Prometheus metrics for the session
// subsystem. Counters are package-level and registered on the default
// registry; serve them with promhttp.Handler.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets covers the expected latency range of an authentication
// decision, from a sub-millisecond signature check to a slow store
// round-trip.
var AuthBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Outcome label values for AuthenticationsTotal.
const (
	OutcomeAccessValid      = "access_valid"
	OutcomeRefreshed        = "refreshed"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeForbidden        = "forbidden"
	OutcomeStoreUnavailable = "store_unavailable"
)

// Result label values for RotationsTotal and ProactiveRotationsTotal.
const (
	ResultRotated       = "rotated"
	ResultReuseDetected = "reuse_detected"
	ResultFailed        = "failed"
)

var (
	// AuthenticationsTotal counts authentication decisions by outcome.
	AuthenticationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsess_authentications_total",
			Help: "Authentication decisions",
		},
		[]string{"outcome"},
	)

	// AuthenticationDuration records how long one decision took, including
	// any store round-trips.
	AuthenticationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authsess_authentication_duration_seconds",
			Help:    "Authentication decision duration",
			Buckets: AuthBuckets,
		},
	)

	// RotationsTotal counts refresh rotations by result.
	RotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsess_rotations_total",
			Help: "Refresh token rotations",
		},
		[]string{"result"},
	)

	// ProactiveRotationsTotal counts best-effort early rotations triggered
	// by a near-expiry access token.
	ProactiveRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsess_proactive_rotations_total",
			Help: "Proactive refresh rotations",
		},
		[]string{"result"},
	)

	// StoreErrorsTotal counts revocation-store failures by operation.
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authsess_store_errors_total",
			Help: "Revocation store failures",
		},
		[]string{"op"},
	)

	// SweptRecordsTotal counts expired revocation records removed by the
	// background sweeper.
	SweptRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authsess_swept_records_total",
			Help: "Expired revocation records swept",
		},
	)

	// AuditEventsDroppedTotal counts audit events discarded because the
	// dispatcher buffer was full.
	AuditEventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authsess_audit_events_dropped_total",
			Help: "Audit events dropped",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AuthenticationsTotal,
		AuthenticationDuration,
		RotationsTotal,
		ProactiveRotationsTotal,
		StoreErrorsTotal,
		SweptRecordsTotal,
		AuditEventsDroppedTotal,
	)
}
