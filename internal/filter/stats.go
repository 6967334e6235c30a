package filter

import (
	"math"

	"mdining/internal/models"
)

// Maxima are the slider upper bounds derived from a menu.
type Maxima struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
}

// MacroMaxima rounds the largest calories up to a multiple of 50 and the
// largest protein and carbs up to a multiple of 10.
func MacroMaxima(items []models.Item) Maxima {
	var mx Maxima
	for i := range items {
		m := items[i].Macronutrients
		mx.Calories = math.Max(mx.Calories, m.Get(models.Calories))
		mx.Protein = math.Max(mx.Protein, m.Get(models.Protein))
		mx.Carbs = math.Max(mx.Carbs, m.Get(models.Carbohydrate))
	}
	return Maxima{
		Calories: roundUp(mx.Calories, 50),
		Protein:  roundUp(mx.Protein, 10),
		Carbs:    roundUp(mx.Carbs, 10),
	}
}

func roundUp(v, step float64) float64 {
	return math.Ceil(v/step) * step
}

// Calibrate fits untouched upper bounds of s to the menu in items. A bound
// the user already moved away from its default is kept.
func Calibrate(s State, items []models.Item) State {
	if len(items) == 0 {
		return s
	}
	def := DefaultState().Macros
	mx := MacroMaxima(items)
	if s.Macros.Calories[1] == def.Calories[1] {
		s.Macros.Calories[1] = mx.Calories
	}
	if s.Macros.Protein[1] == def.Protein[1] {
		s.Macros.Protein[1] = mx.Protein
	}
	if s.Macros.Carbs[1] == def.Carbs[1] {
		s.Macros.Carbs[1] = mx.Carbs
	}
	return s
}

// ActiveCount counts the criteria in s that narrow the menu: each dietary
// tag, search, m-scale, rating, and each macro range tighter than mx.
func ActiveCount(s State, mx Maxima) int {
	count := len(s.Dietary)
	if s.Search != "" {
		count++
	}
	if s.MinMScale > 1 {
		count++
	}
	if s.MinRating > 0 {
		count++
	}
	if s.Macros.Calories[0] > 0 || s.Macros.Calories[1] < mx.Calories {
		count++
	}
	if s.Macros.Protein[0] > 0 || s.Macros.Protein[1] < mx.Protein {
		count++
	}
	if s.Macros.Carbs[0] > 0 || s.Macros.Carbs[1] < mx.Carbs {
		count++
	}
	return count
}

// Reset restores defaults and keeps only the search text. Macro upper
// bounds open up to mx when the menu produced maxima.
func Reset(s State, mx Maxima) State {
	out := DefaultState()
	out.Search = s.Search
	if mx.Calories > 0 {
		out.Macros.Calories[1] = mx.Calories
	}
	if mx.Protein > 0 {
		out.Macros.Protein[1] = mx.Protein
	}
	if mx.Carbs > 0 {
		out.Macros.Carbs[1] = mx.Carbs
	}
	return out
}
