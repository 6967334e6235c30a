// Package pg reads venues, hours and menus from the hosted Postgres database
// that the menu scraper populates.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mdining/internal/database"
	"mdining/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store is a read-only view over the dining_halls, operating_hours, items
// and menu_events tables.
type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string, logger *zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info().Str("host", cfg.ConnConfig.Host).Msg("connected to postgres")
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const venueColumns = `id::text, COALESCE(official_id, 0), slug, name, COALESCE(display_name, ''), COALESCE(type, ''),
	COALESCE(latitude, 0), COALESCE(longitude, 0), COALESCE(address, ''), COALESCE(image_url, '')`

// ListVenues returns venues ordered by name. An empty venueType lists every type.
func (s *Store) ListVenues(ctx context.Context, venueType string) ([]models.Venue, error) {
	query, args := listVenuesQuery(venueType)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []models.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}

func listVenuesQuery(venueType string) (string, []any) {
	query := `SELECT ` + venueColumns + ` FROM dining_halls`
	var args []any
	if venueType != "" {
		query += ` WHERE type = $1`
		args = append(args, venueType)
	}
	return query + ` ORDER BY name`, args
}

// GetVenueBySlug returns the venue with slug or database.ErrVenueNotFound.
func (s *Store) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM dining_halls WHERE slug = $1 LIMIT 1`, slug)
	v, err := scanVenue(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", database.ErrVenueNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get venue %s: %w", slug, err)
	}
	return v, nil
}

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(&v.ID, &v.OfficialID, &v.Slug, &v.Name, &v.DisplayName, &v.Type,
		&v.Latitude, &v.Longitude, &v.Address, &v.ImageURL)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ShiftsForDate returns the venue's shifts on date ordered by start time.
// Times are truncated to HH:MM.
func (s *Store) ShiftsForDate(ctx context.Context, venueID, date string) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, dining_hall_id::text, date::text,
		       left(start_time::text, 5), left(end_time::text, 5), COALESCE(event_name, '')
		FROM operating_hours
		WHERE dining_hall_id::text = $1 AND date::text = $2
		ORDER BY start_time`,
		venueID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]models.Shift, 0)
	for rows.Next() {
		var sh models.Shift
		if err := rows.Scan(&sh.ID, &sh.VenueID, &sh.Date, &sh.StartTime, &sh.EndTime, &sh.EventName); err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

// AvailableDates returns the distinct dates in [from, to] with operating hours.
func (s *Store) AvailableDates(ctx context.Context, venueID, from, to string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT date::text FROM operating_hours
		WHERE dining_hall_id::text = $1 AND date::text >= $2 AND date::text <= $3
		ORDER BY 1`,
		venueID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query available dates: %w", err)
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// MenuForDate returns every item the venue serves on date with its meal.
func (s *Store) MenuForDate(ctx context.Context, venueID, date string) ([]models.MenuEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT me.meal, i.id::text, i.dining_hall_id::text, i.name, COALESCE(i.station, ''),
		       COALESCE(i.dietary_tags, '{}'), i.macronutrients, i.avg_rating, i.nutrition_score
		FROM menu_events me
		JOIN items i ON i.id = me.item_id
		WHERE me.dining_hall_id::text = $1 AND me.date::text = $2
		ORDER BY me.meal, i.name`,
		venueID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	entries := make([]models.MenuEntry, 0)
	for rows.Next() {
		var (
			e      models.MenuEntry
			macros []byte
			rating *float64
			score  *int32
		)
		if err := rows.Scan(&e.Meal, &e.Item.ID, &e.Item.VenueID, &e.Item.Name, &e.Item.Station,
			&e.Item.DietaryTags, &macros, &rating, &score); err != nil {
			return nil, err
		}
		e.Item.Macronutrients, err = decodeMacros(macros)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", e.Item.ID, err)
		}
		e.Item.AvgRating = rating
		if score != nil {
			v := int(*score)
			e.Item.NutritionScore = &v
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decodeMacros(raw []byte) (models.Macros, error) {
	m := models.Macros{}
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode macronutrients: %w", err)
	}
	return m, nil
}
