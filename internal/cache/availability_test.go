package cache

import (
	"context"
	"testing"
	"time"

	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var window = models.TimeSlot{
	Start: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
}

var free = []models.TimeSlot{
	{Start: window.Start, End: window.Start.Add(time.Hour)},
	{Start: window.Start.Add(2 * time.Hour), End: window.End},
}

func newTestCache(t *testing.T, ttl time.Duration) (*AvailabilityCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewAvailabilityCache(rdb, ttl, nil), mr
}

func TestAvailabilityCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, window)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	c.Set(ctx, gen, window, free)

	got, _, ok := c.Get(ctx, window)
	require.True(t, ok)
	require.Len(t, got, 2)
	for i := range free {
		assert.True(t, free[i].Equal(got[i]))
	}

	other := models.TimeSlot{Start: window.Start, End: window.End.Add(time.Hour)}
	_, _, ok = c.Get(ctx, other)
	assert.False(t, ok)
}

func TestAvailabilityCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, _ := c.Get(ctx, window)
	c.Set(ctx, gen, window, free)

	require.NoError(t, c.Invalidate(ctx))

	_, newGen, ok := c.Get(ctx, window)
	assert.False(t, ok)
	assert.Equal(t, gen+1, newGen)
}

func TestAvailabilityCache_StaleWriteAfterInvalidateIsHidden(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, _ := c.Get(ctx, window)
	// A booking lands while the scan is running.
	require.NoError(t, c.Invalidate(ctx))
	c.Set(ctx, gen, window, free)

	_, _, ok := c.Get(ctx, window)
	assert.False(t, ok)
}

func TestAvailabilityCache_TTL(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, 0, window, free)
	mr.FastForward(2 * time.Minute)

	_, _, ok := c.Get(ctx, window)
	assert.False(t, ok)
}

func TestAvailabilityCache_RedisDown(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	_, gen, ok := c.Get(ctx, window)
	assert.False(t, ok)
	assert.Negative(t, gen)
	c.Set(ctx, gen, window, free)
	assert.Error(t, c.Invalidate(ctx))
}

func TestAvailabilityCache_Disabled(t *testing.T) {
	var nilCache *AvailabilityCache
	_, _, ok := nilCache.Get(context.Background(), window)
	assert.False(t, ok)
	assert.NoError(t, nilCache.Invalidate(context.Background()))

	c := NewAvailabilityCache(nil, time.Minute, nil)
	_, _, ok = c.Get(context.Background(), window)
	assert.False(t, ok)
}

func TestAvailabilityCache_SubscribeTo(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	bus := events.NewEventBus(nil)
	c.SubscribeTo(bus)

	c.Set(ctx, 0, window, free)
	bus.Publish(events.Event{Type: events.ReservationCreated})

	_, gen, ok := c.Get(ctx, window)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)

	bus.Publish(events.Event{Type: events.ReservationCancelled})
	_, gen, _ = c.Get(ctx, window)
	assert.Equal(t, int64(2), gen)
}
