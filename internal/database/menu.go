package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mdining/internal/models"
)

// MenuForDate returns every item served by the venue on date, with its meal.
// Entries are ordered by meal then item name.
func (db *DB) MenuForDate(ctx context.Context, venueID, date string) ([]models.MenuEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT me.meal, i.id, i.venue_id, i.name, COALESCE(i.station, ''),
		       i.dietary_tags, i.macronutrients, i.avg_rating, i.nutrition_score
		FROM menu_events me
		JOIN items i ON i.id = me.item_id
		WHERE me.venue_id = ? AND me.date = ?
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
			e            models.MenuEntry
			tags, macros string
			rating       sql.NullFloat64
			score        sql.NullInt64
		)
		if err := rows.Scan(&e.Meal, &e.Item.ID, &e.Item.VenueID, &e.Item.Name, &e.Item.Station,
			&tags, &macros, &rating, &score); err != nil {
			return nil, err
		}
		if err := decodeItemJSON(&e.Item, tags, macros); err != nil {
			return nil, fmt.Errorf("item %s: %w", e.Item.ID, err)
		}
		if rating.Valid {
			e.Item.AvgRating = &rating.Float64
		}
		if score.Valid {
			s := int(score.Int64)
			e.Item.NutritionScore = &s
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func decodeItemJSON(item *models.Item, tags, macros string) error {
	item.DietaryTags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &item.DietaryTags); err != nil {
			return fmt.Errorf("decode dietary tags: %w", err)
		}
	}
	item.Macronutrients = models.Macros{}
	if macros != "" {
		if err := json.Unmarshal([]byte(macros), &item.Macronutrients); err != nil {
			return fmt.Errorf("decode macronutrients: %w", err)
		}
	}
	return nil
}
