package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"mdining/internal/database"
	"mdining/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListVenues(ctx context.Context, venueType string) ([]models.Venue, error) {
	args := m.Called(ctx, venueType)
	return args.Get(0).([]models.Venue), args.Error(1)
}

func (m *mockStore) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *mockStore) ShiftsForDate(ctx context.Context, venueID, date string) ([]models.Shift, error) {
	args := m.Called(ctx, venueID, date)
	return args.Get(0).([]models.Shift), args.Error(1)
}

func (m *mockStore) AvailableDates(ctx context.Context, venueID, from, to string) ([]string, error) {
	args := m.Called(ctx, venueID, from, to)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) MenuForDate(ctx context.Context, venueID, date string) ([]models.MenuEntry, error) {
	args := m.Called(ctx, venueID, date)
	return args.Get(0).([]models.MenuEntry), args.Error(1)
}

func TestFailoverStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	store := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		venue := &models.Venue{Slug: "bursley"}
		primary.On("GetVenueBySlug", ctx, "bursley").Return(venue, nil).Once()

		got, err := store.GetVenueBySlug(ctx, "bursley")
		assert.NoError(t, err)
		assert.Equal(t, venue, got)
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundIsAnAnswer", func(t *testing.T) {
		primary.On("GetVenueBySlug", ctx, "nowhere").
			Return(nil, fmt.Errorf("get venue: %w", database.ErrVenueNotFound)).Once()

		_, err := store.GetVenueBySlug(ctx, "nowhere")
		assert.ErrorIs(t, err, database.ErrVenueNotFound)
		assert.False(t, store.isDown.Load())
		fallback.AssertNotCalled(t, "GetVenueBySlug", ctx, "nowhere")
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		shifts := []models.Shift{{VenueID: "v1", Date: "2026-02-09", StartTime: "17:00", EndTime: "20:00"}}
		primary.On("ShiftsForDate", ctx, "v1", "2026-02-09").Return([]models.Shift(nil), errors.New("conn refused")).Once()
		fallback.On("ShiftsForDate", ctx, "v1", "2026-02-09").Return(shifts, nil).Once()

		got, err := store.ShiftsForDate(ctx, "v1", "2026-02-09")
		assert.NoError(t, err)
		assert.Equal(t, shifts, got)
		assert.True(t, store.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		fallback.On("AvailableDates", ctx, "v1", "2026-02-02", "2026-02-23").Return([]string{"2026-02-09"}, nil).Once()

		got, err := store.AvailableDates(ctx, "v1", "2026-02-02", "2026-02-23")
		require.NoError(t, err)
		assert.Equal(t, []string{"2026-02-09"}, got)
		primary.AssertNotCalled(t, "AvailableDates", ctx, "v1", "2026-02-02", "2026-02-23")
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		store.isDown.Store(true)
		store.lastCheck = time.Now().Add(-2 * time.Minute)

		venues := []models.Venue{{Slug: "bursley"}}
		primary.On("ListVenues", ctx, models.VenueDiningHall).Return(venues, nil).Once()

		got, err := store.ListVenues(ctx, models.VenueDiningHall)
		assert.NoError(t, err)
		assert.Equal(t, venues, got)
		assert.False(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("CanceledContextDoesNotFailOver", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		primary.On("MenuForDate", canceled, "v1", "2026-02-09").Return([]models.MenuEntry(nil), context.Canceled).Once()

		_, err := store.MenuForDate(canceled, "v1", "2026-02-09")
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, store.isDown.Load())
	})
}

func TestFailoverStore_VenueIDsFollowSlug(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	const date = "2026-02-09"
	halls := []models.Venue{{ID: "pg-1", Slug: "bursley"}}

	t.Run("ShiftsFailOverMidRequest", func(t *testing.T) {
		primary := new(mockStore)
		fallback := new(mockStore)
		store := NewFailoverStore(primary, fallback, &logger)

		shifts := []models.Shift{{VenueID: "lite-1", Date: date, StartTime: "17:00", EndTime: "20:00", EventName: "Dinner"}}
		primary.On("ListVenues", ctx, models.VenueDiningHall).Return(halls, nil).Once()
		primary.On("ShiftsForDate", ctx, "pg-1", date).Return([]models.Shift(nil), errors.New("conn reset")).Once()
		fallback.On("GetVenueBySlug", ctx, "bursley").Return(&models.Venue{ID: "lite-1", Slug: "bursley"}, nil).Once()
		fallback.On("ShiftsForDate", ctx, "lite-1", date).Return(shifts, nil).Once()

		venues, err := store.ListVenues(ctx, models.VenueDiningHall)
		require.NoError(t, err)
		got, err := store.ShiftsForDate(ctx, venues[0].ID, date)
		require.NoError(t, err)
		assert.Equal(t, shifts, got)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
		fallback.AssertNotCalled(t, "ShiftsForDate", ctx, "pg-1", date)
	})

	t.Run("MissingMirrorSurfaces", func(t *testing.T) {
		primary := new(mockStore)
		fallback := new(mockStore)
		store := NewFailoverStore(primary, fallback, &logger)

		primary.On("ListVenues", ctx, models.VenueDiningHall).Return(halls, nil).Once()
		primary.On("MenuForDate", ctx, "pg-1", date).Return([]models.MenuEntry(nil), errors.New("conn reset")).Once()
		fallback.On("GetVenueBySlug", ctx, "bursley").
			Return(nil, fmt.Errorf("%w: bursley", database.ErrVenueNotFound)).Once()

		_, err := store.ListVenues(ctx, models.VenueDiningHall)
		require.NoError(t, err)
		_, err = store.MenuForDate(ctx, "pg-1", date)
		assert.ErrorIs(t, err, ErrVenueNotMirrored)
		fallback.AssertNotCalled(t, "MenuForDate", ctx, "pg-1", date)
	})

	t.Run("RecoveredPrimaryTranslatesFallbackIDs", func(t *testing.T) {
		primary := new(mockStore)
		fallback := new(mockStore)
		store := NewFailoverStore(primary, fallback, &logger)
		store.isDown.Store(true)
		store.lastCheck = time.Now()

		fallback.On("GetVenueBySlug", ctx, "bursley").Return(&models.Venue{ID: "lite-1", Slug: "bursley"}, nil).Once()
		venue, err := store.GetVenueBySlug(ctx, "bursley")
		require.NoError(t, err)

		store.lastCheck = time.Now().Add(-2 * time.Minute)
		primary.On("GetVenueBySlug", ctx, "bursley").Return(&halls[0], nil).Once()
		primary.On("AvailableDates", ctx, "pg-1", "2026-02-02", "2026-02-23").Return([]string{date}, nil).Once()

		got, err := store.AvailableDates(ctx, venue.ID, "2026-02-02", "2026-02-23")
		require.NoError(t, err)
		assert.Equal(t, []string{date}, got)
		assert.False(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})
}
