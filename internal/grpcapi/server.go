package grpcapi

import (
	"context"
	"errors"
	"strings"

	"slotbook/internal/domain"
	"slotbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// BookingService is the engine the server exposes.
type BookingService interface {
	CreateClient(ctx context.Context, name, email string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	ListAvailableSlots(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, error)
	IsSlotAvailable(ctx context.Context, slot models.TimeSlot) (bool, error)
	CreateReservation(ctx context.Context, clientID uuid.UUID, slot models.TimeSlot, notes *string) (*models.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID) error
	ListClientReservations(ctx context.Context, clientID uuid.UUID) ([]models.Reservation, error)
}

// Server implements ReservationServiceServer on top of a BookingService.
type Server struct {
	svc    BookingService
	logger *zerolog.Logger
}

func NewServer(svc BookingService, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{svc: svc, logger: logger}
}

func (s *Server) CreateClient(ctx context.Context, req *ClientRequest) (*Client, error) {
	if req.Name == "" || req.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "name and email are required")
	}
	client, err := s.svc.CreateClient(ctx, req.Name, req.Email)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	return toClient(client), nil
}

func (s *Server) ListClients(ctx context.Context, _ *emptypb.Empty) (*ClientList, error) {
	clients, err := s.svc.ListClients(ctx)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	resp := &ClientList{Clients: make([]*Client, 0, len(clients))}
	for i := range clients {
		resp.Clients = append(resp.Clients, toClient(&clients[i]))
	}
	return resp, nil
}

func (s *Server) ListAvailableSlots(ctx context.Context, req *TimeRange) (*SlotList, error) {
	window, err := parseTimeRange(req)
	if err != nil {
		return nil, err
	}
	free, err := s.svc.ListAvailableSlots(ctx, window)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	resp := &SlotList{Slots: make([]*TimeRange, 0, len(free))}
	for _, slot := range free {
		resp.Slots = append(resp.Slots, toTimeRange(slot))
	}
	return resp, nil
}

func (s *Server) CheckAvailability(ctx context.Context, req *TimeRange) (*Availability, error) {
	slot, err := parseTimeRange(req)
	if err != nil {
		return nil, err
	}
	available, err := s.svc.IsSlotAvailable(ctx, slot)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	return &Availability{Available: available}, nil
}

func (s *Server) CreateReservation(ctx context.Context, req *ReservationRequest) (*Reservation, error) {
	clientID, err := parseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	slot, err := parseTimeRange(req.Slot)
	if err != nil {
		return nil, err
	}
	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	reservation, err := s.svc.CreateReservation(ctx, clientID, slot, notes)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	return toReservation(reservation), nil
}

func (s *Server) GetReservation(ctx context.Context, req *ReservationID) (*Reservation, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	reservation, err := s.svc.GetReservation(ctx, id)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	return toReservation(reservation), nil
}

func (s *Server) CancelReservation(ctx context.Context, req *ReservationID) (*emptypb.Empty, error) {
	id, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.CancelReservation(ctx, id); err != nil {
		return nil, s.statusFromDomainError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ListClientReservations(ctx context.Context, req *ClientID) (*ReservationList, error) {
	clientID, err := parseID("id", req.ID)
	if err != nil {
		return nil, err
	}
	reservations, err := s.svc.ListClientReservations(ctx, clientID)
	if err != nil {
		return nil, s.statusFromDomainError(err)
	}
	resp := &ReservationList{Reservations: make([]*Reservation, 0, len(reservations))}
	for i := range reservations {
		resp.Reservations = append(resp.Reservations, toReservation(&reservations[i]))
	}
	return resp, nil
}

// statusFromDomainError maps the error taxonomy onto gRPC codes. Storage
// causes are logged and replaced with a generic message.
func (s *Server) statusFromDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrReservationConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func parseID(field, raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %q", field, raw)
	}
	return id, nil
}

func parseTimeRange(tr *TimeRange) (models.TimeSlot, error) {
	if tr == nil || tr.StartTime == nil || tr.EndTime == nil {
		return models.TimeSlot{}, status.Error(codes.InvalidArgument, "start_time and end_time are required")
	}
	if err := tr.StartTime.CheckValid(); err != nil {
		return models.TimeSlot{}, status.Errorf(codes.InvalidArgument, "invalid start_time: %v", err)
	}
	if err := tr.EndTime.CheckValid(); err != nil {
		return models.TimeSlot{}, status.Errorf(codes.InvalidArgument, "invalid end_time: %v", err)
	}
	slot, err := models.NewTimeSlot(tr.StartTime.AsTime(), tr.EndTime.AsTime())
	if err != nil {
		return models.TimeSlot{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return slot, nil
}

func toTimeRange(slot models.TimeSlot) *TimeRange {
	return &TimeRange{
		StartTime: timestamppb.New(slot.Start),
		EndTime:   timestamppb.New(slot.End),
	}
}

func toClient(c *models.Client) *Client {
	return &Client{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: timestamppb.New(c.CreatedAt),
	}
}

func toReservation(r *models.Reservation) *Reservation {
	return &Reservation{
		ID:        r.ID.String(),
		ClientID:  r.ClientID.String(),
		Slot:      toTimeRange(r.Slot),
		Status:    r.Status.String(),
		Notes:     r.NotesOrEmpty(),
		CreatedAt: timestamppb.New(r.CreatedAt),
	}
}
