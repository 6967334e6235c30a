package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"mdining/internal/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Fixture is a day-by-day schedule and menu for one venue, as imported by
// the seed command.
type Fixture struct {
	Venue string         `yaml:"venue"`
	Hours []models.Shift `yaml:"hours"`
	Menus []FixtureMenu  `yaml:"menus"`
}

// FixtureMenu is the items served at one meal on one date.
type FixtureMenu struct {
	Date  string        `yaml:"date"`
	Meal  string        `yaml:"meal"`
	Items []models.Item `yaml:"items"`
}

// ImportStats summarizes an import.
type ImportStats struct {
	Shifts     int
	Items      int
	MenuEvents int
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate fixture: %w", err)
	}
	return &f, nil
}

// Validate checks dates, times and names of the fixture.
func (f *Fixture) Validate() error {
	if f.Venue == "" {
		return fmt.Errorf("venue is required")
	}
	for i, h := range f.Hours {
		if _, err := time.Parse(dateLayout, h.Date); err != nil {
			return fmt.Errorf("hours[%d]: invalid date format '%s', expected YYYY-MM-DD", i, h.Date)
		}
		start, err := time.Parse("15:04", h.StartTime)
		if err != nil {
			return fmt.Errorf("hours[%d].start_time: invalid format '%s', expected HH:MM", i, h.StartTime)
		}
		end, err := time.Parse("15:04", h.EndTime)
		if err != nil {
			return fmt.Errorf("hours[%d].end_time: invalid format '%s', expected HH:MM", i, h.EndTime)
		}
		if !end.After(start) {
			return fmt.Errorf("hours[%d]: end_time must be after start_time", i)
		}
	}
	for i, m := range f.Menus {
		if _, err := time.Parse(dateLayout, m.Date); err != nil {
			return fmt.Errorf("menus[%d]: invalid date format '%s', expected YYYY-MM-DD", i, m.Date)
		}
		if m.Meal == "" {
			return fmt.Errorf("menus[%d].meal is required", i)
		}
		for j := range m.Items {
			if strings.TrimSpace(m.Items[j].Name) == "" {
				return fmt.Errorf("menus[%d].items[%d].name is required", i, j)
			}
		}
	}
	return nil
}

const dateLayout = "2006-01-02"

// ImportFixture replaces the venue's hours and menus on every date the
// fixture mentions. Items are upserted by (venue, name).
func (db *DB) ImportFixture(ctx context.Context, f *Fixture) (ImportStats, error) {
	var stats ImportStats

	venue, err := db.GetVenueBySlug(ctx, f.Venue)
	if err != nil {
		return stats, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	hourDates := make(map[string]struct{})
	for _, h := range f.Hours {
		hourDates[h.Date] = struct{}{}
	}
	for date := range hourDates {
		if _, err := tx.ExecContext(ctx, `DELETE FROM operating_hours WHERE venue_id = ? AND date = ?`, venue.ID, date); err != nil {
			return stats, fmt.Errorf("clear hours %s: %w", date, err)
		}
	}
	for _, h := range f.Hours {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO operating_hours (id, venue_id, date, start_time, end_time, event_name)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), venue.ID, h.Date, h.StartTime, h.EndTime, h.EventName,
		)
		if err != nil {
			return stats, fmt.Errorf("insert shift %s %s: %w", h.Date, h.EventName, err)
		}
		stats.Shifts++
	}

	menuDates := make(map[string]struct{})
	for _, m := range f.Menus {
		menuDates[m.Date] = struct{}{}
	}
	for date := range menuDates {
		if _, err := tx.ExecContext(ctx, `DELETE FROM menu_events WHERE venue_id = ? AND date = ?`, venue.ID, date); err != nil {
			return stats, fmt.Errorf("clear menu %s: %w", date, err)
		}
	}
	for _, m := range f.Menus {
		meal := titleCase(m.Meal)
		for i := range m.Items {
			itemID, err := upsertItem(ctx, tx, venue.ID, &m.Items[i])
			if err != nil {
				return stats, err
			}
			stats.Items++
			res, err := tx.ExecContext(ctx, `
				INSERT INTO menu_events (id, venue_id, item_id, meal, date)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(item_id, date, meal) DO NOTHING`,
				uuid.NewString(), venue.ID, itemID, meal, m.Date,
			)
			if err != nil {
				return stats, fmt.Errorf("insert menu event: %w", err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				stats.MenuEvents++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}
	db.logger.Info().
		Str("venue", venue.Slug).
		Int("shifts", stats.Shifts).
		Int("items", stats.Items).
		Int("menu_events", stats.MenuEvents).
		Msg("fixture imported")
	return stats, nil
}

func upsertItem(ctx context.Context, tx *sql.Tx, venueID string, item *models.Item) (string, error) {
	tags, err := json.Marshal(dedupeTags(item.DietaryTags))
	if err != nil {
		return "", err
	}
	macros := item.Macronutrients
	if macros == nil {
		macros = models.Macros{}
	}
	macrosJSON, err := json.Marshal(macros)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(item.Name)
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM items WHERE venue_id = ? AND name = ?`, venueID, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = item.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO items (id, venue_id, name, station, dietary_tags, macronutrients, avg_rating, nutrition_score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, venueID, name, item.Station, string(tags), string(macrosJSON), item.AvgRating, item.NutritionScore,
		)
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE items SET station = ?, dietary_tags = ?, macronutrients = ?, avg_rating = ?, nutrition_score = ?
			WHERE id = ?`,
			item.Station, string(tags), string(macrosJSON), item.AvgRating, item.NutritionScore, id,
		)
	}
	if err != nil {
		return "", fmt.Errorf("upsert item %s: %w", name, err)
	}
	return id, nil
}

// dedupeTags drops duplicate tags and sorts the rest so equal sets store equally.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// titleCase normalizes meal names: "LUNCH" and "lunch" both become "Lunch".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
