package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reservation creation outcomes.
const (
	OutcomeCreated        = "created"
	OutcomeConflict       = "conflict"
	OutcomeClientNotFound = "client_not_found"
	OutcomeInvalid        = "invalid"
	OutcomeError          = "error"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "reservation_create_total",
			Help:      "Count of reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "reservation_cancelled_total",
			Help:      "Count of cancel requests that completed.",
		},
	)

	availabilityScans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "availability_scans_total",
			Help:      "Count of availability scans served from storage.",
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotbook",
			Name:      "availability_cache_lookups_total",
			Help:      "Availability cache lookups by result.",
		},
		[]string{"result"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slotbook",
			Name:      "grpc_handling_seconds",
			Help:      "Time spent handling gRPC requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationCancelled, availabilityScans, cacheLookups, rpcDuration)
	})
}

func IncReservationCreated(outcome string) {
	reservationCreated.WithLabelValues(outcome).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func IncAvailabilityScan() {
	availabilityScans.Inc()
}

func IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func ObserveRPC(method, code string, elapsed time.Duration) {
	rpcDuration.WithLabelValues(method, code).Observe(elapsed.Seconds())
}
