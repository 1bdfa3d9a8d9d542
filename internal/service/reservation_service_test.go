package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateClient(ctx context.Context, name, email string) (*models.Client, error) {
	args := m.Called(ctx, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *mockRepo) ListClients(ctx context.Context) ([]models.Client, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *mockRepo) IsSlotAvailable(ctx context.Context, slot models.TimeSlot) (bool, error) {
	args := m.Called(ctx, slot)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) FindOverlapping(ctx context.Context, window models.TimeSlot) ([]models.Reservation, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockRepo) CreateReservation(ctx context.Context, clientID uuid.UUID, slot models.TimeSlot, notes *string) (*models.Reservation, error) {
	args := m.Called(ctx, clientID, slot, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockRepo) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockRepo) CancelReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) GetClientReservations(ctx context.Context, clientID uuid.UUID) ([]models.Reservation, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p any) error { return m.Called(et, p).Error(0) }

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, window models.TimeSlot) ([]models.TimeSlot, int64, bool) {
	args := m.Called(ctx, window)
	var free []models.TimeSlot
	if v := args.Get(0); v != nil {
		free = v.([]models.TimeSlot)
	}
	return free, args.Get(1).(int64), args.Bool(2)
}

func (m *mockCache) Set(ctx context.Context, gen int64, window models.TimeSlot, free []models.TimeSlot) {
	m.Called(ctx, gen, window, free)
}

var morning = models.TimeSlot{
	Start: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
}

func hourAt(h int) models.TimeSlot {
	start := time.Date(2026, 3, 5, h, 0, 0, 0, time.UTC)
	return models.TimeSlot{Start: start, End: start.Add(time.Hour)}
}

func newTestService(repo Repository, bus EventPublisher, cache AvailabilityCache) *ReservationService {
	logger := zerolog.New(io.Discard)
	return NewReservationService(repo, bus, cache, &logger)
}

func TestReservationService_CreateClient(t *testing.T) {
	repo := new(mockRepo)
	bus := new(mockEventBus)
	svc := newTestService(repo, bus, nil)
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		cases := []struct{ name, email, field string }{
			{"", "a@example.com", "name"},
			{"Alice", "", "email"},
		}
		for _, c := range cases {
			_, err := svc.CreateClient(ctx, c.name, c.email)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, c.field, ve.Field)
		}
		repo.AssertNotCalled(t, "CreateClient", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Publishes", func(t *testing.T) {
		client := &models.Client{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}
		repo.On("CreateClient", ctx, "Alice", "alice@example.com").Return(client, nil).Once()
		bus.On("PublishJSON", events.ClientCreated, client).Return(nil).Once()

		got, err := svc.CreateClient(ctx, "Alice", "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, client, got)
		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("PassesNonEmptyInputThrough", func(t *testing.T) {
		client := &models.Client{ID: uuid.New(), Name: " x ", Email: "bob"}
		repo.On("CreateClient", ctx, " x ", "bob").Return(client, nil).Once()
		bus.On("PublishJSON", events.ClientCreated, client).Return(nil).Once()

		got, err := svc.CreateClient(ctx, " x ", "bob")
		require.NoError(t, err)
		assert.Equal(t, client, got)
		repo.AssertExpectations(t)
	})
}

func TestReservationService_CreateReservation(t *testing.T) {
	ctx := context.Background()
	clientID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestService(repo, bus, nil)

		notes := "bring coffee"
		res := &models.Reservation{ID: uuid.New(), ClientID: clientID, Slot: hourAt(10), Status: models.StatusConfirmed, Notes: &notes}
		repo.On("CreateReservation", ctx, clientID, hourAt(10), &notes).Return(res, nil).Once()
		bus.On("PublishJSON", events.ReservationCreated, res).Return(nil).Once()

		got, err := svc.CreateReservation(ctx, clientID, hourAt(10), &notes)
		require.NoError(t, err)
		assert.Equal(t, res, got)
		repo.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("InvalidRangeNeverReachesStore", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)

		inverted := models.TimeSlot{Start: hourAt(10).End, End: hourAt(10).Start}
		_, err := svc.CreateReservation(ctx, clientID, inverted, nil)
		assert.ErrorIs(t, err, domain.ErrValidation)

		empty := models.TimeSlot{Start: hourAt(10).Start, End: hourAt(10).Start}
		_, err = svc.CreateReservation(ctx, clientID, empty, nil)
		assert.ErrorIs(t, err, domain.ErrValidation)

		repo.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NotesTooLong", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)

		notes := strings.Repeat("ж", MaxNotesLength+1)
		_, err := svc.CreateReservation(ctx, clientID, hourAt(10), &notes)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "notes", ve.Field)

		ok := strings.Repeat("ж", MaxNotesLength)
		repo.On("CreateReservation", ctx, clientID, hourAt(10), &ok).Return(&models.Reservation{ID: uuid.New()}, nil).Once()
		_, err = svc.CreateReservation(ctx, clientID, hourAt(10), &ok)
		assert.NoError(t, err)
	})

	t.Run("BlankNotesDropped", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)

		blank := "   "
		repo.On("CreateReservation", ctx, clientID, hourAt(10), (*string)(nil)).Return(&models.Reservation{ID: uuid.New()}, nil).Once()
		_, err := svc.CreateReservation(ctx, clientID, hourAt(10), &blank)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("ConflictPassesThroughWithoutEvent", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestService(repo, bus, nil)

		repo.On("CreateReservation", ctx, clientID, hourAt(10), (*string)(nil)).Return(nil, domain.ErrReservationConflict).Once()

		_, err := svc.CreateReservation(ctx, clientID, hourAt(10), nil)
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
		bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("UnknownClient", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)

		repo.On("CreateReservation", ctx, clientID, hourAt(10), (*string)(nil)).
			Return(nil, &domain.ClientNotFoundError{ID: clientID}).Once()

		_, err := svc.CreateReservation(ctx, clientID, hourAt(10), nil)
		var nf *domain.ClientNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, clientID, nf.ID)
	})

	t.Run("PublishFailureDoesNotFailBooking", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestService(repo, bus, nil)

		res := &models.Reservation{ID: uuid.New(), ClientID: clientID, Slot: hourAt(11)}
		repo.On("CreateReservation", ctx, clientID, hourAt(11), (*string)(nil)).Return(res, nil).Once()
		bus.On("PublishJSON", events.ReservationCreated, res).Return(errors.New("bus down")).Once()

		got, err := svc.CreateReservation(ctx, clientID, hourAt(11), nil)
		require.NoError(t, err)
		assert.Equal(t, res, got)
	})
}

func TestReservationService_AvailabilityIsAdvisory(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	clientID := uuid.New()

	repo.On("IsSlotAvailable", ctx, hourAt(10)).Return(true, nil).Once()
	repo.On("CreateReservation", ctx, clientID, hourAt(10), (*string)(nil)).Return(nil, domain.ErrReservationConflict).Once()

	available, err := svc.IsSlotAvailable(ctx, hourAt(10))
	require.NoError(t, err)
	require.True(t, available)

	_, err = svc.CreateReservation(ctx, clientID, hourAt(10), nil)
	assert.ErrorIs(t, err, domain.ErrReservationConflict)
}

func TestReservationService_ListAvailableSlots(t *testing.T) {
	ctx := context.Background()
	booked := []models.Reservation{{ID: uuid.New(), Slot: hourAt(10), Status: models.StatusConfirmed}}
	expected := []models.TimeSlot{hourAt(9), hourAt(11)}

	t.Run("ScansStore", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)
		repo.On("FindOverlapping", ctx, morning).Return(booked, nil).Once()

		free, err := svc.ListAvailableSlots(ctx, morning)
		require.NoError(t, err)
		assert.Equal(t, expected, free)
	})

	t.Run("InvalidWindow", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)

		_, err := svc.ListAvailableSlots(ctx, models.TimeSlot{Start: morning.End, End: morning.Start})
		assert.ErrorIs(t, err, domain.ErrValidation)
		repo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newTestService(repo, nil, nil)
		storageErr := domain.NewStorageError("find overlapping reservations", errors.New("disk"))
		repo.On("FindOverlapping", ctx, morning).Return(nil, storageErr).Once()

		_, err := svc.ListAvailableSlots(ctx, morning)
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("CacheHitSkipsStore", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockCache)
		svc := newTestService(repo, nil, cache)
		cache.On("Get", ctx, morning).Return(expected, int64(3), true).Once()

		free, err := svc.ListAvailableSlots(ctx, morning)
		require.NoError(t, err)
		assert.Equal(t, expected, free)
		repo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything)
	})

	t.Run("CacheMissStoresUnderObservedGeneration", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockCache)
		svc := newTestService(repo, nil, cache)
		cache.On("Get", ctx, morning).Return(nil, int64(7), false).Once()
		repo.On("FindOverlapping", ctx, morning).Return(booked, nil).Once()
		cache.On("Set", ctx, int64(7), morning, expected).Once()

		free, err := svc.ListAvailableSlots(ctx, morning)
		require.NoError(t, err)
		assert.Equal(t, expected, free)
		cache.AssertExpectations(t)
	})
}

func TestReservationService_CancelReservation(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("PublishesEventOnlyWhenChanged", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestService(repo, bus, nil)

		repo.On("CancelReservation", ctx, id).Return(true, nil).Once()
		repo.On("CancelReservation", ctx, id).Return(false, nil).Once()
		bus.On("PublishJSON", events.ReservationCancelled, map[string]string{"id": id.String()}).Return(nil).Once()

		require.NoError(t, svc.CancelReservation(ctx, id))
		require.NoError(t, svc.CancelReservation(ctx, id), "repeated cancel succeeds")
		repo.AssertExpectations(t)
		bus.AssertNumberOfCalls(t, "PublishJSON", 1)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(mockRepo)
		bus := new(mockEventBus)
		svc := newTestService(repo, bus, nil)

		repo.On("CancelReservation", ctx, id).Return(false, &domain.ReservationNotFoundError{ID: id}).Once()

		err := svc.CancelReservation(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestReservationService_Reads(t *testing.T) {
	repo := new(mockRepo)
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()
	clientID := uuid.New()
	res := models.Reservation{ID: uuid.New(), ClientID: clientID, Slot: hourAt(9)}

	repo.On("ListClients", ctx).Return([]models.Client{{ID: clientID}}, nil).Once()
	repo.On("GetReservation", ctx, res.ID).Return(&res, nil).Once()
	repo.On("GetClientReservations", ctx, clientID).Return([]models.Reservation{res}, nil).Once()

	clients, err := svc.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	got, err := svc.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, &res, got)

	list, err := svc.ListClientReservations(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, []models.Reservation{res}, list)
	repo.AssertExpectations(t)
}
