package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(reservationCreated.WithLabelValues(OutcomeConflict))
	IncReservationCreated(OutcomeConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(reservationCreated.WithLabelValues(OutcomeConflict)))

	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))
	IncCacheLookup(true)
	IncCacheLookup(false)
	IncCacheLookup(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))

	ObserveRPC("CreateReservation", "OK", 5*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(rpcDuration, "slotbook_grpc_handling_seconds"))
}
