// Package filter derives dietary tags for menu items and narrows item lists
// by search text, tags, rating, nutrition score and macro ranges.
package filter

import (
	"strings"

	"mdining/internal/models"
)

// Range is an inclusive [min, max] bound. It encodes as a JSON pair.
type Range [2]float64

// Contains reports whether min <= v <= max.
func (r Range) Contains(v float64) bool {
	return v >= r[0] && v <= r[1]
}

// MacroRanges bounds each macronutrient, inclusive on both ends.
type MacroRanges struct {
	Calories Range `json:"calories"`
	Protein  Range `json:"protein"`
	Carbs    Range `json:"carbs"`
	Fat      Range `json:"fat"`
}

// State is a set of filter criteria. The zero value filters everything out
// through its macro ranges; start from DefaultState.
type State struct {
	Search    string      `json:"search"`
	Dietary   []string    `json:"dietary"`
	MinRating float64     `json:"min_rating"`
	MinMScale int         `json:"min_mscale"`
	Macros    MacroRanges `json:"macros"`
}

// DefaultState matches every item with ordinary nutrition facts.
func DefaultState() State {
	return State{
		Dietary:   []string{},
		MinRating: 0,
		MinMScale: 1,
		Macros: MacroRanges{
			Calories: Range{0, 2000},
			Protein:  Range{0, 100},
			Carbs:    Range{0, 150},
			Fat:      Range{0, 100},
		},
	}
}

// Matches reports whether item passes every criterion in s.
func Matches(item *models.Item, s *State) bool {
	if s.Search != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(s.Search)) {
		return false
	}

	if len(s.Dietary) > 0 {
		tags := DeriveDynamicTags(item)
		for _, want := range s.Dietary {
			want = NormalizeTag(want)
			if want == "" {
				continue
			}
			if _, ok := tags[want]; !ok {
				return false
			}
		}
	}

	if s.MinRating > 0 && item.Rating() < s.MinRating {
		return false
	}
	if s.MinMScale > 1 && item.Score() < s.MinMScale {
		return false
	}

	m := item.Macronutrients
	return s.Macros.Calories.Contains(m.Get(models.Calories)) &&
		s.Macros.Protein.Contains(m.Get(models.Protein)) &&
		s.Macros.Carbs.Contains(m.Get(models.Carbohydrate)) &&
		s.Macros.Fat.Contains(m.Get(models.TotalFat))
}

// Items returns the items matching s, in their original order.
func Items(items []models.Item, s State) []models.Item {
	out := make([]models.Item, 0, len(items))
	for i := range items {
		if Matches(&items[i], &s) {
			out = append(out, items[i])
		}
	}
	return out
}
