package grpcapi

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Messages of reservations.ReservationService. Instants travel as protobuf
// timestamps; ids as strings.

type ClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Client struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type ClientList struct {
	Clients []*Client `json:"clients"`
}

type ClientID struct {
	ID string `json:"id"`
}

type TimeRange struct {
	StartTime *timestamppb.Timestamp `json:"start_time,omitempty"`
	EndTime   *timestamppb.Timestamp `json:"end_time,omitempty"`
}

type SlotList struct {
	Slots []*TimeRange `json:"slots"`
}

type Availability struct {
	Available bool `json:"available"`
}

type ReservationRequest struct {
	ClientID string     `json:"client_id"`
	Slot     *TimeRange `json:"slot,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

type Reservation struct {
	ID        string                 `json:"id"`
	ClientID  string                 `json:"client_id"`
	Slot      *TimeRange             `json:"slot,omitempty"`
	Status    string                 `json:"status"`
	Notes     string                 `json:"notes,omitempty"`
	CreatedAt *timestamppb.Timestamp `json:"created_at,omitempty"`
}

type ReservationID struct {
	ID string `json:"id"`
}

type ReservationList struct {
	Reservations []*Reservation `json:"reservations"`
}
