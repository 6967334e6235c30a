package filter

import (
	"testing"

	"mdining/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Vegan", "vegan"},
		{"Gluten Free", "glutenfree"},
		{"gluten-free", "glutenfree"},
		{"CarbonLow", "carbonlow"},
		{"mhealthy5", "mhealthy"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTag(tt.input))
		})
	}
}

func TestDeriveDynamicTags(t *testing.T) {
	tests := []struct {
		name     string
		item     models.Item
		expected []string
	}{
		{
			name: "high protein and high fiber",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 200, models.Protein: 20, models.DietaryFiber: 6,
			}},
			expected: []string{TagHighFiber, TagHighProtein},
		},
		{
			name: "zero calories computes nothing",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 0, models.Protein: 50, models.DietaryFiber: 50,
			}},
			expected: []string{},
		},
		{
			name:     "no nutrition facts",
			item:     models.Item{DietaryTags: []string{"Vegan", "Halal", "vegan"}},
			expected: []string{"halal", "vegan"},
		},
		{
			name: "protein ratio exactly at threshold",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 200, models.Protein: 17,
			}},
			expected: []string{TagHighProtein},
		},
		{
			name: "protein ratio below threshold",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 200, models.Protein: 16.9,
			}},
			expected: []string{},
		},
		{
			name: "high protein ratio but too few calories",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 20, models.Protein: 5,
			}},
			expected: []string{},
		},
		{
			name: "fiber ratio exactly at threshold",
			item: models.Item{Macronutrients: models.Macros{
				models.Calories: 200, models.DietaryFiber: 4,
			}},
			expected: []string{TagHighFiber},
		},
		{
			name: "static and computed tags merge",
			item: models.Item{
				DietaryTags:    []string{"Vegetarian", "High Protein"},
				Macronutrients: models.Macros{models.Calories: 100, models.Protein: 30},
			},
			expected: []string{TagHighProtein, "vegetarian"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveDynamicTags(&tt.item)
			assert.Equal(t, tt.expected, got.Sorted())
		})
	}
}

func TestTags_Has(t *testing.T) {
	tags := DeriveDynamicTags(&models.Item{DietaryTags: []string{"Gluten Free"}})
	assert.True(t, tags.Has("glutenfree"))
	assert.True(t, tags.Has("Gluten-Free"))
	assert.False(t, tags.Has("vegan"))
}
