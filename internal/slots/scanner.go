// Package slots derives free fixed-length slots from the confirmed
// reservations that overlap a query window.
package slots

import (
	"context"
	"fmt"
	"iter"
	"time"

	"slotbook/internal/models"
)

// SlotDuration is the length of every candidate slot.
const SlotDuration = time.Hour

// ReservationFinder loads confirmed reservations overlapping a window.
type ReservationFinder interface {
	FindOverlapping(ctx context.Context, window models.TimeSlot) ([]models.Reservation, error)
}

// Scanner lists free slots for a window.
type Scanner struct {
	finder       ReservationFinder
	slotDuration time.Duration
}

// NewScanner creates a scanner that tiles windows with SlotDuration.
func NewScanner(finder ReservationFinder) *Scanner {
	return &Scanner{finder: finder, slotDuration: SlotDuration}
}

// Scan returns the free slots of window in ascending order. The result is a
// snapshot: a slot listed here can be taken before the caller books it.
func (s *Scanner) Scan(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, error) {
	booked, err := s.finder.FindOverlapping(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	intervals := make([]models.TimeSlot, 0, len(booked))
	for _, r := range booked {
		intervals = append(intervals, r.Slot)
	}
	return FreeSlots(window, intervals, s.slotDuration), nil
}

// FreeSlots tiles window with slots of length d and keeps those that overlap
// none of booked. Tiling starts at window.Start and continues while the
// cursor is before window.End, so the last slot may end after window.End.
func FreeSlots(window models.TimeSlot, booked []models.TimeSlot, d time.Duration) []models.TimeSlot {
	free := make([]models.TimeSlot, 0)
	for slot := range Tile(window, d) {
		if !overlapsAny(slot, booked) {
			free = append(free, slot)
		}
	}
	return free
}

// Tile yields consecutive slots of length d starting at window.Start. Each
// call to the returned sequence starts over.
func Tile(window models.TimeSlot, d time.Duration) iter.Seq[models.TimeSlot] {
	return func(yield func(models.TimeSlot) bool) {
		if d <= 0 {
			return
		}
		for cursor := window.Start; cursor.Before(window.End); cursor = cursor.Add(d) {
			if !yield(models.TimeSlot{Start: cursor, End: cursor.Add(d)}) {
				return
			}
		}
	}
}

func overlapsAny(slot models.TimeSlot, booked []models.TimeSlot) bool {
	for _, b := range booked {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
