package models

import (
	"math"
	"time"

	"slotbook/internal/domain"
)

// TimeSlot is a half-open interval [Start, End) in UTC.
type TimeSlot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// Instants are persisted as Unix nanoseconds in an int64, which bounds the
// representable range to roughly 1677-09-21 through 2262-04-11.
var (
	minInstant = time.Unix(0, math.MinInt64).UTC()
	maxInstant = time.Unix(0, math.MaxInt64).UTC()
)

// NewTimeSlot builds a slot in UTC and rejects empty, inverted or
// unrepresentable ranges.
func NewTimeSlot(start, end time.Time) (TimeSlot, error) {
	if start.IsZero() {
		return TimeSlot{}, domain.NewValidationError("start_time", "start time is required")
	}
	if end.IsZero() {
		return TimeSlot{}, domain.NewValidationError("end_time", "end time is required")
	}
	if err := CheckRepresentable(start, end); err != nil {
		return TimeSlot{}, err
	}
	if !start.Before(end) {
		return TimeSlot{}, domain.NewValidationError("end_time", "start time must be before end time")
	}
	return TimeSlot{Start: start.UTC(), End: end.UTC()}, nil
}

// CheckRepresentable rejects bounds outside [minInstant, maxInstant].
func CheckRepresentable(start, end time.Time) error {
	if start.Before(minInstant) || start.After(maxInstant) {
		return domain.NewValidationError("start_time", "start time is out of the supported range")
	}
	if end.Before(minInstant) || end.After(maxInstant) {
		return domain.NewValidationError("end_time", "end time is out of the supported range")
	}
	return nil
}

// Overlaps reports whether two slots share any instant.
// Slots that only touch at an endpoint do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Equal compares bounds only, ignoring location.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}
