// Package cache keeps recent availability scans in Redis. Entries are
// advisory: reservation creation never reads them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrefix     = "slotbook:availability"
	generationKey = keyPrefix + ":generation"

	invalidateTimeout = 2 * time.Second
)

// AvailabilityCache stores free-slot lists per query window. Every key embeds
// the current generation, so Invalidate retires all entries at once and old
// ones age out through their TTL.
type AvailabilityCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewAvailabilityCache(rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *AvailabilityCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AvailabilityCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *AvailabilityCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Get returns the cached slots for window. The generation observed is
// returned even on a miss and must be passed back to Set, so that a scan
// racing with an invalidation is stored under a retired key. A negative
// generation means the cache is unusable for this request.
func (c *AvailabilityCache) Get(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, int64, bool) {
	if !c.enabled() {
		return nil, -1, false
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Availability cache generation read failed")
		return nil, -1, false
	}

	val, err := c.rdb.Get(ctx, entryKey(gen, window)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug().Err(err).Msg("Availability cache read failed")
		}
		return nil, gen, false
	}

	var slots []models.TimeSlot
	if err := json.Unmarshal(val, &slots); err != nil {
		return nil, gen, false
	}
	return slots, gen, true
}

// Set stores slots for window under generation gen.
func (c *AvailabilityCache) Set(ctx context.Context, gen int64, window models.TimeSlot, slots []models.TimeSlot) {
	if !c.enabled() || gen < 0 {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, entryKey(gen, window), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("Availability cache write failed")
	}
}

// Invalidate retires every cached entry.
func (c *AvailabilityCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump availability generation: %w", err)
	}
	return nil
}

// SubscribeTo invalidates the cache whenever a reservation is written.
func (c *AvailabilityCache) SubscribeTo(bus *events.EventBus) {
	handler := func(events.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()
		return c.Invalidate(ctx)
	}
	bus.Subscribe(events.ReservationCreated, handler)
	bus.Subscribe(events.ReservationCancelled, handler)
}

func (c *AvailabilityCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func entryKey(gen int64, window models.TimeSlot) string {
	return fmt.Sprintf("%s:g%d:%d:%d", keyPrefix, gen, window.Start.UTC().UnixNano(), window.End.UTC().UnixNano())
}
