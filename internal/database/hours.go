package database

import (
	"context"
	"fmt"

	"mdining/internal/models"
)

// ShiftsForDate returns the venue's shifts on date ordered by start time.
func (db *DB) ShiftsForDate(ctx context.Context, venueID, date string) ([]models.Shift, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, venue_id, date, start_time, end_time, COALESCE(event_name, '')
		FROM operating_hours
		WHERE venue_id = ? AND date = ?
		ORDER BY start_time`,
		venueID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]models.Shift, 0)
	for rows.Next() {
		var s models.Shift
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Date, &s.StartTime, &s.EndTime, &s.EventName); err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// AvailableDates returns the distinct dates in [from, to] on which the venue
// has operating hours, ascending.
func (db *DB) AvailableDates(ctx context.Context, venueID, from, to string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT date FROM operating_hours
		WHERE venue_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
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
