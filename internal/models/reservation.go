package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// ParseReservationStatus maps stored text to a status. Anything that is not
// "cancelled" is treated as confirmed.
func ParseReservationStatus(s string) ReservationStatus {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusCancelled)) {
		return StatusCancelled
	}
	return StatusConfirmed
}

func (s ReservationStatus) String() string { return string(s) }

// Client is a party that can hold reservations. Clients are never updated or
// deleted.
type Client struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Reservation books Slot for ClientID. Only Status ever changes after
// creation.
type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	ClientID  uuid.UUID         `json:"client_id"`
	Slot      TimeSlot          `json:"slot"`
	Status    ReservationStatus `json:"status"`
	Notes     *string           `json:"notes,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NotesOrEmpty returns the notes text or "".
func (r *Reservation) NotesOrEmpty() string {
	if r.Notes == nil {
		return ""
	}
	return *r.Notes
}
