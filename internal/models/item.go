package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Nutrient is a known key of the upstream nutrition facts map.
type Nutrient string

const (
	Calories     Nutrient = "Calories"
	Protein      Nutrient = "Protein"
	Carbohydrate Nutrient = "Total Carbohydrate"
	TotalFat     Nutrient = "Total Fat"
	DietaryFiber Nutrient = "Dietary Fiber"
	Sodium       Nutrient = "Sodium"
	SaturatedFat Nutrient = "Saturated Fat"
	Sugars       Nutrient = "Sugars"
)

// Nutrients lists every nutrient the application understands.
var Nutrients = []Nutrient{Calories, Protein, Carbohydrate, TotalFat, DietaryFiber, Sodium, SaturatedFat, Sugars}

// Macros holds nutrition facts keyed by nutrient. Missing keys read as zero.
type Macros map[Nutrient]float64

// Get returns the amount of n, or 0 when absent or negative.
func (m Macros) Get(n Nutrient) float64 {
	v, ok := m[n]
	if !ok || v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// UnmarshalJSON keeps known nutrients only and coerces values best-effort:
// numbers pass through, numeric strings ("12", "12g") are parsed, anything
// else reads as 0.
func (m *Macros) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Macros, len(raw))
	for _, n := range Nutrients {
		v, ok := raw[string(n)]
		if !ok {
			continue
		}
		out[n] = toFloat(v)
	}
	*m = out
	return nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimRightFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// Item is a menu item served by a venue.
type Item struct {
	ID             string   `json:"id" yaml:"id"`
	VenueID        string   `json:"venue_id,omitempty" yaml:"venue_id,omitempty"`
	Name           string   `json:"name" yaml:"name"`
	Station        string   `json:"station,omitempty" yaml:"station,omitempty"`
	DietaryTags    []string `json:"dietary_tags" yaml:"dietary_tags"`
	Macronutrients Macros   `json:"macronutrients" yaml:"macronutrients"`
	AvgRating      *float64 `json:"avg_rating" yaml:"avg_rating,omitempty"`
	NutritionScore *int     `json:"nutrition_score" yaml:"nutrition_score,omitempty"`
}

// Rating returns the average rating, 0 when unrated.
func (i *Item) Rating() float64 {
	if i.AvgRating == nil {
		return 0
	}
	return *i.AvgRating
}

// Score returns the M-Scale nutrition score, 0 when unknown.
func (i *Item) Score() int {
	if i.NutritionScore == nil {
		return 0
	}
	return *i.NutritionScore
}

// MenuEvent places an item on a venue's menu for a meal on a date.
type MenuEvent struct {
	VenueID string `json:"venue_id" yaml:"venue_id"`
	ItemID  string `json:"item_id" yaml:"item_id"`
	Meal    string `json:"meal" yaml:"meal"`
	Date    string `json:"date" yaml:"date"`
}

// MenuEntry is an item as served at one meal.
type MenuEntry struct {
	Meal string `json:"meal"`
	Item Item   `json:"item"`
}
