// Package service joins the store, the status resolver, the capacity feed and
// the filter engine into the views served by the API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mdining/internal/capacity"
	"mdining/internal/filter"
	"mdining/internal/geo"
	"mdining/internal/metrics"
	"mdining/internal/models"
	"mdining/internal/status"

	"github.com/rs/zerolog"
)

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// ErrMealNotFound is returned when the requested meal is not served that day.
var ErrMealNotFound = errors.New("meal not served")

// Window of dates offered around today.
const (
	PastDays   = 7
	FutureDays = 14
)

// Store is the read side of the venue database.
type Store interface {
	ListVenues(ctx context.Context, venueType string) ([]models.Venue, error)
	GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error)
	ShiftsForDate(ctx context.Context, venueID, date string) ([]models.Shift, error)
	AvailableDates(ctx context.Context, venueID, from, to string) ([]string, error)
	MenuForDate(ctx context.Context, venueID, date string) ([]models.MenuEntry, error)
}

// DiningService builds the venue views from a Store, the resolver and the
// capacity feed.
type DiningService struct {
	store    Store
	resolver *status.Resolver
	capacity capacity.Fetcher
	logger   *zerolog.Logger
}

// NewDiningService wires the service. capacityFeed may be nil, in which case
// every venue reports no crowd data.
func NewDiningService(store Store, resolver *status.Resolver, capacityFeed capacity.Fetcher, logger *zerolog.Logger) *DiningService {
	if resolver == nil {
		resolver = status.NewResolver(nil)
	}
	return &DiningService{store: store, resolver: resolver, capacity: capacityFeed, logger: logger}
}

// HallOverview is one dining hall on the landing view.
type HallOverview struct {
	Venue         models.Venue   `json:"venue"`
	Status        status.Status  `json:"status"`
	Capacity      capacity.Level `json:"capacity"`
	DistanceMiles *float64       `json:"distance_miles,omitempty"`
	DistanceLabel string         `json:"distance_label,omitempty"`
}

// Overview returns every dining hall with today's status and crowd level.
// With an origin the halls are ordered nearest first, otherwise by name.
func (s *DiningService) Overview(ctx context.Context, now time.Time, origin *geo.Point) ([]HallOverview, error) {
	halls, err := s.store.ListVenues(ctx, models.VenueDiningHall)
	if err != nil {
		return nil, fmt.Errorf("list dining halls: %w", err)
	}

	today := status.Today(now, s.resolver.Location())
	snap := s.snapshot(ctx)

	out := make([]HallOverview, 0, len(halls))
	for i := range halls {
		shifts, err := s.store.ShiftsForDate(ctx, halls[i].ID, today)
		if err != nil {
			return nil, fmt.Errorf("shifts for %s: %w", halls[i].Slug, err)
		}
		st := s.resolve(shifts, today, now)
		out = append(out, HallOverview{
			Venue:    halls[i],
			Status:   st,
			Capacity: snap.Lookup(halls[i].Name),
		})
	}

	if origin != nil {
		points := make([]geo.Point, len(out))
		for i := range out {
			points[i] = geo.Point{Lat: out[i].Venue.Latitude, Lon: out[i].Venue.Longitude}
			d := geo.Distance(*origin, points[i])
			out[i].DistanceMiles = &d
			out[i].DistanceLabel = geo.Format(d)
		}
		order := geo.SortByDistance(*origin, points)
		sorted := make([]HallOverview, len(out))
		for i, idx := range order {
			sorted[i] = out[idx]
		}
		out = sorted
	}
	return out, nil
}

func (s *DiningService) snapshot(ctx context.Context) *capacity.Snapshot {
	if s.capacity == nil {
		return nil
	}
	snap, err := s.capacity.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("capacity unavailable")
		return nil
	}
	return snap
}

func (s *DiningService) resolve(shifts []models.Shift, date string, now time.Time) status.Status {
	st := s.resolver.Resolve(shifts, date, now)
	metrics.IncStatusResolved(string(st.State))
	return st
}

// MealMenu is one meal of a venue's menu, grouped by station.
type MealMenu struct {
	Meal     string                `json:"meal"`
	Stations []filter.StationGroup `json:"stations"`
}

// VenueDetail is the full view of one venue on one date.
type VenueDetail struct {
	Venue          models.Venue   `json:"venue"`
	Date           string         `json:"date"`
	Status         status.Status  `json:"status"`
	Hours          []models.Shift `json:"hours"`
	Menu           []MealMenu     `json:"menu"`
	AvailableDates []string       `json:"available_dates"`
}

// Venue returns the venue's status, hours and menu on date. An empty date
// means today in the resolver's zone.
func (s *DiningService) Venue(ctx context.Context, slug, date string, now time.Time) (*VenueDetail, error) {
	date, err := s.normalizeDate(date, now)
	if err != nil {
		return nil, err
	}

	venue, err := s.store.GetVenueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	shifts, err := s.store.ShiftsForDate(ctx, venue.ID, date)
	if err != nil {
		return nil, fmt.Errorf("shifts for %s: %w", slug, err)
	}
	entries, err := s.store.MenuForDate(ctx, venue.ID, date)
	if err != nil {
		return nil, fmt.Errorf("menu for %s: %w", slug, err)
	}
	dates, err := s.availableDates(ctx, venue.ID, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("venue", slug).Str("date", date).Int("shifts", len(shifts)).Msg("venue resolved")
	return &VenueDetail{
		Venue:          *venue,
		Date:           date,
		Status:         s.resolve(shifts, date, now),
		Hours:          shifts,
		Menu:           groupMenu(entries),
		AvailableDates: dates,
	}, nil
}

// AvailableDates lists the dates in the browsing window on which the venue
// has hours.
func (s *DiningService) AvailableDates(ctx context.Context, slug string, now time.Time) ([]string, error) {
	venue, err := s.store.GetVenueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.availableDates(ctx, venue.ID, now)
}

func (s *DiningService) availableDates(ctx context.Context, venueID string, now time.Time) ([]string, error) {
	from, to := DateWindow(now, s.resolver.Location())
	dates, err := s.store.AvailableDates(ctx, venueID, from, to)
	if err != nil {
		return nil, fmt.Errorf("available dates: %w", err)
	}
	return dates, nil
}

// DateWindow returns the first and last browsable dates around now.
func DateWindow(now time.Time, loc *time.Location) (from, to string) {
	if loc == nil {
		loc = status.Eastern
	}
	local := now.In(loc)
	return local.AddDate(0, 0, -PastDays).Format(status.DateLayout),
		local.AddDate(0, 0, FutureDays).Format(status.DateLayout)
}

// MenuResult is a filtered meal.
type MenuResult struct {
	Venue         string                `json:"venue"`
	Date          string                `json:"date"`
	Meal          string                `json:"meal,omitempty"`
	Filters       filter.State          `json:"filters"`
	Maxima        filter.Maxima         `json:"maxima"`
	ActiveFilters int                   `json:"active_filters"`
	Total         int                   `json:"total"`
	Items         []models.Item         `json:"items"`
	Stations      []filter.StationGroup `json:"stations"`
}

// Menu filters the items served at meal (all meals when empty) by st. Upper
// macro bounds left at their defaults are first fitted to the meal. A meal
// with no items that day is ErrMealNotFound.
func (s *DiningService) Menu(ctx context.Context, slug, date, meal string, st filter.State, now time.Time) (*MenuResult, error) {
	date, err := s.normalizeDate(date, now)
	if err != nil {
		return nil, err
	}

	venue, err := s.store.GetVenueBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.MenuForDate(ctx, venue.ID, date)
	if err != nil {
		return nil, fmt.Errorf("menu for %s: %w", slug, err)
	}

	items := make([]models.Item, 0, len(entries))
	for i := range entries {
		if meal == "" || strings.EqualFold(entries[i].Meal, meal) {
			items = append(items, entries[i].Item)
		}
	}
	if meal != "" && len(items) == 0 {
		return nil, fmt.Errorf("no %s menu for %s on %s: %w", meal, slug, date, ErrMealNotFound)
	}

	mx := filter.MacroMaxima(items)
	st = filter.Calibrate(st, items)
	matched := filter.Items(items, st)
	metrics.AddItemsFiltered(len(items))

	return &MenuResult{
		Venue:         venue.Slug,
		Date:          date,
		Meal:          meal,
		Filters:       st,
		Maxima:        mx,
		ActiveFilters: filter.ActiveCount(st, mx),
		Total:         len(items),
		Items:         matched,
		Stations:      filter.GroupByStation(matched),
	}, nil
}

func (s *DiningService) normalizeDate(date string, now time.Time) (string, error) {
	if date == "" {
		return status.Today(now, s.resolver.Location()), nil
	}
	if _, err := time.Parse(status.DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return date, nil
}

var mealRank = map[string]int{"breakfast": 0, "brunch": 1, "lunch": 2, "dinner": 3}

// groupMenu splits entries per meal, meals in serving order with unknown
// meals last by name, and groups each meal by station.
func groupMenu(entries []models.MenuEntry) []MealMenu {
	byMeal := make(map[string][]models.Item)
	var meals []string
	for i := range entries {
		m := entries[i].Meal
		if _, ok := byMeal[m]; !ok {
			meals = append(meals, m)
		}
		byMeal[m] = append(byMeal[m], entries[i].Item)
	}

	rank := func(m string) int {
		if r, ok := mealRank[strings.ToLower(m)]; ok {
			return r
		}
		return len(mealRank)
	}
	sort.SliceStable(meals, func(i, j int) bool {
		ri, rj := rank(meals[i]), rank(meals[j])
		if ri != rj {
			return ri < rj
		}
		return meals[i] < meals[j]
	})

	out := make([]MealMenu, 0, len(meals))
	for _, m := range meals {
		out = append(out, MealMenu{Meal: m, Stations: filter.GroupByStation(byMeal[m])})
	}
	return out
}
