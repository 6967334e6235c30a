// Package repository composes venue stores.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"mdining/internal/database"
	"mdining/internal/models"
	"mdining/internal/service"

	"github.com/rs/zerolog"
)

// retryPrimaryAfter is how long reads stay on the fallback before the
// primary is tried again.
const retryPrimaryAfter = time.Minute

// ErrVenueNotMirrored is returned when a venue id from one store has no
// counterpart in the store serving the read.
var ErrVenueNotMirrored = errors.New("venue not mirrored")

// FailoverStore reads from primary and switches to fallback while primary
// is failing. A missing venue is an answer, not a failure. The two stores
// issue their own venue ids, so ids are carried across by slug.
type FailoverStore struct {
	primary  service.Store
	fallback service.Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time

	refs sync.Map // venue id -> venueRef
}

func NewFailoverStore(primary, fallback service.Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverStore) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) < retryPrimaryAfter {
		return false
	}
	f.lastCheck = time.Now()
	return true
}

func (f *FailoverStore) markDown(op string, err error) {
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Str("op", op).Msg("primary store failing, switching to fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("primary store recovered")
	}
}

// venueRef records the slug behind a venue id and which store issued it.
type venueRef struct {
	slug    string
	primary bool
}

func call[T any](ctx context.Context, f *FailoverStore, op string, fn func(s service.Store, primary bool) (T, error)) (T, error) {
	if f.usePrimary() {
		res, err := fn(f.primary, true)
		if err == nil || errors.Is(err, database.ErrVenueNotFound) || errors.Is(err, ErrVenueNotMirrored) {
			f.markUp()
			return res, err
		}
		if ctx.Err() != nil {
			return res, err
		}
		f.markDown(op, err)
	}
	return fn(f.fallback, false)
}

func (f *FailoverStore) remember(primary bool, venues ...models.Venue) {
	for i := range venues {
		f.refs.Store(venues[i].ID, venueRef{slug: venues[i].Slug, primary: primary})
	}
}

// venueID maps an id issued by the other store onto s by slug. Unknown ids
// pass through unchanged.
func (f *FailoverStore) venueID(ctx context.Context, s service.Store, primary bool, id string) (string, error) {
	v, ok := f.refs.Load(id)
	if !ok || v.(venueRef).primary == primary {
		return id, nil
	}
	slug := v.(venueRef).slug
	venue, err := s.GetVenueBySlug(ctx, slug)
	if errors.Is(err, database.ErrVenueNotFound) {
		return "", fmt.Errorf("%w: %s", ErrVenueNotMirrored, slug)
	}
	if err != nil {
		return "", err
	}
	f.remember(primary, *venue)
	return venue.ID, nil
}

func (f *FailoverStore) ListVenues(ctx context.Context, venueType string) ([]models.Venue, error) {
	return call(ctx, f, "list_venues", func(s service.Store, primary bool) ([]models.Venue, error) {
		venues, err := s.ListVenues(ctx, venueType)
		if err == nil {
			f.remember(primary, venues...)
		}
		return venues, err
	})
}

func (f *FailoverStore) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	return call(ctx, f, "get_venue", func(s service.Store, primary bool) (*models.Venue, error) {
		venue, err := s.GetVenueBySlug(ctx, slug)
		if err == nil {
			f.remember(primary, *venue)
		}
		return venue, err
	})
}

func (f *FailoverStore) ShiftsForDate(ctx context.Context, venueID, date string) ([]models.Shift, error) {
	return call(ctx, f, "shifts", func(s service.Store, primary bool) ([]models.Shift, error) {
		id, err := f.venueID(ctx, s, primary, venueID)
		if err != nil {
			return nil, err
		}
		return s.ShiftsForDate(ctx, id, date)
	})
}

func (f *FailoverStore) AvailableDates(ctx context.Context, venueID, from, to string) ([]string, error) {
	return call(ctx, f, "available_dates", func(s service.Store, primary bool) ([]string, error) {
		id, err := f.venueID(ctx, s, primary, venueID)
		if err != nil {
			return nil, err
		}
		return s.AvailableDates(ctx, id, from, to)
	})
}

func (f *FailoverStore) MenuForDate(ctx context.Context, venueID, date string) ([]models.MenuEntry, error) {
	return call(ctx, f, "menu", func(s service.Store, primary bool) ([]models.MenuEntry, error) {
		id, err := f.venueID(ctx, s, primary, venueID)
		if err != nil {
			return nil, err
		}
		return s.MenuForDate(ctx, id, date)
	})
}
