package export

import (
	"fmt"
	"io"
	"strings"

	"mdining/internal/filter"
	"mdining/internal/models"
	"mdining/internal/service"
	"mdining/internal/status"
)

// ErrMealNotFound is returned when the requested meal is not served that day.
var ErrMealNotFound = service.ErrMealNotFound

var menuColumns = []string{
	"Station", "Item", "Dietary Tags", "Calories", "Protein (g)", "Carbs (g)", "Fat (g)", "Fiber (g)", "Rating", "M-Scale",
}

// WriteVenueMenu writes an Hours sheet followed by one sheet per meal.
// With a non-empty meal only that meal is written.
func WriteVenueMenu(wr io.Writer, detail *service.VenueDetail, meal string) error {
	w := NewSheet()
	defer w.Close()

	if err := w.AddSheet("Hours"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Venue", "Date", "Meal", "Opens", "Closes"}); err != nil {
		return err
	}
	for _, h := range detail.Hours {
		row := []any{detail.Venue.Name, detail.Date, h.EventName, status.FormatTime(h.StartTime), status.FormatTime(h.EndTime)}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}

	written := 0
	for _, m := range detail.Menu {
		if meal != "" && !strings.EqualFold(m.Meal, meal) {
			continue
		}
		if err := writeMeal(w, m); err != nil {
			return fmt.Errorf("meal %s: %w", m.Meal, err)
		}
		written++
	}
	if meal != "" && written == 0 {
		return fmt.Errorf("no %s menu for %s on %s: %w", meal, detail.Venue.Slug, detail.Date, ErrMealNotFound)
	}

	return w.Save(wr)
}

func writeMeal(w *Sheet, m service.MealMenu) error {
	if err := w.AddSheet(m.Meal); err != nil {
		return err
	}
	if err := w.WriteHeader(menuColumns); err != nil {
		return err
	}
	for _, group := range m.Stations {
		for i := range group.Items {
			if err := w.WriteRow(itemRow(group.Station, &group.Items[i])); err != nil {
				return err
			}
		}
	}
	return nil
}

func itemRow(station string, item *models.Item) []any {
	macros := item.Macronutrients
	row := []any{
		station,
		item.Name,
		strings.Join(filter.DeriveDynamicTags(item).Sorted(), ", "),
		macros.Get(models.Calories),
		macros.Get(models.Protein),
		macros.Get(models.Carbohydrate),
		macros.Get(models.TotalFat),
		macros.Get(models.DietaryFiber),
		"",
		"",
	}
	if item.AvgRating != nil {
		row[8] = *item.AvgRating
	}
	if item.NutritionScore != nil {
		row[9] = *item.NutritionScore
	}
	return row
}
