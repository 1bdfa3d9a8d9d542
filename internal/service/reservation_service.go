package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/slots"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxNotesLength bounds reservation notes, in characters.
const MaxNotesLength = 1000

// Repository is the persisted store the service runs against.
type Repository interface {
	CreateClient(ctx context.Context, name, email string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	IsSlotAvailable(ctx context.Context, slot models.TimeSlot) (bool, error)
	FindOverlapping(ctx context.Context, window models.TimeSlot) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, clientID uuid.UUID, slot models.TimeSlot, notes *string) (*models.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id uuid.UUID) (bool, error)
	GetClientReservations(ctx context.Context, clientID uuid.UUID) ([]models.Reservation, error)
}

// EventPublisher receives domain events after successful writes.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// AvailabilityCache holds recent scan results.
type AvailabilityCache interface {
	Get(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, int64, bool)
	Set(ctx context.Context, gen int64, window models.TimeSlot, free []models.TimeSlot)
}

// ReservationService validates requests and drives the store. It holds no
// locks of its own; every guarantee about overlap comes from the store.
type ReservationService struct {
	repo    Repository
	scanner *slots.Scanner
	events  EventPublisher
	cache   AvailabilityCache
	logger  *zerolog.Logger
}

// NewReservationService wires the service. events and cache may be nil.
func NewReservationService(repo Repository, eventBus EventPublisher, cache AvailabilityCache, logger *zerolog.Logger) *ReservationService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ReservationService{
		repo:    repo,
		scanner: slots.NewScanner(repo),
		events:  eventBus,
		cache:   cache,
		logger:  logger,
	}
}

func (s *ReservationService) CreateClient(ctx context.Context, name, email string) (*models.Client, error) {
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	client, err := s.repo.CreateClient(ctx, name, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create client")
		return nil, err
	}

	s.logger.Info().Str("client_id", client.ID.String()).Msg("Client created")
	s.publish(events.ClientCreated, client)
	return client, nil
}

func (s *ReservationService) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.repo.ListClients(ctx)
}

// ListAvailableSlots returns the free one-hour slots of window. The list is
// advisory; booking one of them can still fail with a conflict.
func (s *ReservationService) ListAvailableSlots(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, error) {
	window, err := models.NewTimeSlot(window.Start, window.End)
	if err != nil {
		return nil, err
	}

	gen := int64(-1)
	if s.cache != nil {
		cached, g, ok := s.cache.Get(ctx, window)
		metrics.IncCacheLookup(ok)
		if ok {
			return cached, nil
		}
		gen = g
	}

	free, err := s.scanner.Scan(ctx, window)
	if err != nil {
		s.logger.Error().Err(err).Time("start", window.Start).Time("end", window.End).Msg("Availability scan failed")
		return nil, err
	}
	metrics.IncAvailabilityScan()

	if s.cache != nil {
		s.cache.Set(ctx, gen, window, free)
	}
	return free, nil
}

// IsSlotAvailable is an advisory point check.
func (s *ReservationService) IsSlotAvailable(ctx context.Context, slot models.TimeSlot) (bool, error) {
	slot, err := models.NewTimeSlot(slot.Start, slot.End)
	if err != nil {
		return false, err
	}
	return s.repo.IsSlotAvailable(ctx, slot)
}

// CreateReservation books slot for clientID. A concurrent or earlier booking
// of an overlapping interval yields domain.ErrReservationConflict.
func (s *ReservationService) CreateReservation(ctx context.Context, clientID uuid.UUID, slot models.TimeSlot, notes *string) (*models.Reservation, error) {
	slot, err := models.NewTimeSlot(slot.Start, slot.End)
	if err != nil {
		metrics.IncReservationCreated(metrics.OutcomeInvalid)
		s.logger.Debug().Err(err).Str("client_id", clientID.String()).Msg("Reservation request rejected")
		return nil, err
	}
	if notes != nil {
		if utf8.RuneCountInString(*notes) > MaxNotesLength {
			metrics.IncReservationCreated(metrics.OutcomeInvalid)
			s.logger.Debug().Str("client_id", clientID.String()).Msg("Reservation notes too long")
			return nil, domain.NewValidationError("notes", "notes must be at most 1000 characters")
		}
		if strings.TrimSpace(*notes) == "" {
			notes = nil
		}
	}

	reservation, err := s.repo.CreateReservation(ctx, clientID, slot, notes)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrReservationConflict):
		metrics.IncReservationCreated(metrics.OutcomeConflict)
		s.logger.Info().
			Str("client_id", clientID.String()).
			Time("start", slot.Start).
			Time("end", slot.End).
			Msg("Reservation conflict")
		return nil, err
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncReservationCreated(metrics.OutcomeClientNotFound)
		return nil, err
	default:
		metrics.IncReservationCreated(metrics.OutcomeError)
		s.logger.Error().Err(err).Str("client_id", clientID.String()).Msg("Failed to create reservation")
		return nil, err
	}

	metrics.IncReservationCreated(metrics.OutcomeCreated)
	s.logger.Info().
		Str("reservation_id", reservation.ID.String()).
		Str("client_id", clientID.String()).
		Time("start", slot.Start).
		Time("end", slot.End).
		Msg("Reservation created")
	s.publish(events.ReservationCreated, reservation)
	return reservation, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

// CancelReservation releases the slot. Cancelling twice succeeds; only the
// call that changed the status is counted and published.
func (s *ReservationService) CancelReservation(ctx context.Context, id uuid.UUID) error {
	changed, err := s.repo.CancelReservation(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Str("reservation_id", id.String()).Msg("Failed to cancel reservation")
		}
		return err
	}
	if !changed {
		return nil
	}

	metrics.IncReservationCancelled()
	s.logger.Info().Str("reservation_id", id.String()).Msg("Reservation cancelled")
	s.publish(events.ReservationCancelled, map[string]string{"id": id.String()})
	return nil
}

func (s *ReservationService) ListClientReservations(ctx context.Context, clientID uuid.UUID) ([]models.Reservation, error) {
	return s.repo.GetClientReservations(ctx, clientID)
}

func (s *ReservationService) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
