package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mdining/internal/config"
	"mdining/internal/models"

	"github.com/google/uuid"
)

const venueColumns = `id, official_id, slug, name, COALESCE(display_name, ''), type,
	COALESCE(latitude, 0), COALESCE(longitude, 0), COALESCE(address, ''), COALESCE(image_url, ''),
	created_at, updated_at`

// SyncVenuesFromConfig applies venues.yaml to the database. It upserts venues
// by official id, keeping their record ids, and marks missing venues inactive.
// A slug moved to another official id is first released by its old holder.
func (db *DB) SyncVenuesFromConfig(ctx context.Context, cfg *config.VenuesConfig) error {
	if cfg == nil {
		return fmt.Errorf("venues config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	seen := make(map[int64]struct{}, len(cfg.Venues))

	// Parked slugs take the record id, which no catalog slug matches.
	for i := range cfg.Venues {
		v := &cfg.Venues[i]
		if _, err := tx.ExecContext(ctx, `
			UPDATE venues SET slug = id, is_active = 0, updated_at = ?
			WHERE slug = ? AND official_id != ?`, now, v.Slug, v.ID); err != nil {
			return fmt.Errorf("release slug %s: %w", v.Slug, err)
		}
	}

	for i := range cfg.Venues {
		v := cfg.Venues[i].Model()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venues (id, official_id, slug, name, display_name, type, latitude, longitude,
				address, image_url, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(official_id) DO UPDATE SET
				slug = excluded.slug,
				name = excluded.name,
				display_name = excluded.display_name,
				type = excluded.type,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				address = excluded.address,
				image_url = excluded.image_url,
				is_active = 1,
				updated_at = excluded.updated_at`,
			uuid.NewString(), v.OfficialID, v.Slug, v.Name, v.DisplayName, v.Type, v.Latitude, v.Longitude,
			v.Address, v.ImageURL, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync venue %d: %w", v.OfficialID, err)
		}
		seen[v.OfficialID] = struct{}{}
	}

	rows, err := tx.QueryContext(ctx, `SELECT official_id FROM venues WHERE is_active = 1`)
	if err != nil {
		return err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE venues SET is_active = 0, updated_at = ? WHERE official_id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate venue %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	db.logger.Info().Int("venues", len(seen)).Int("deactivated", len(stale)).Msg("venues synced")
	return nil
}

// ListVenues returns active venues ordered by name. An empty venueType lists every type.
func (db *DB) ListVenues(ctx context.Context, venueType string) ([]models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE is_active = 1`
	var args []any
	if venueType != "" {
		query += ` AND type = ?`
		args = append(args, venueType)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
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

// GetVenueBySlug returns the active venue with slug or ErrVenueNotFound.
func (db *DB) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	row := db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE slug = ? AND is_active = 1`, slug)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVenueNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get venue %s: %w", slug, err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVenue(s scanner) (*models.Venue, error) {
	var v models.Venue
	err := s.Scan(
		&v.ID, &v.OfficialID, &v.Slug, &v.Name, &v.DisplayName, &v.Type,
		&v.Latitude, &v.Longitude, &v.Address, &v.ImageURL, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
