package filter

import (
	"sort"
	"strings"

	"mdining/internal/models"
)

// Computed tag identifiers.
const (
	TagHighProtein = "highprotein"
	TagHighFiber   = "highfiber"
)

// Thresholds for computed tags, relative to calories.
const (
	highProteinRatio       = 0.085
	highProteinMinCalories = 25
	highFiberRatio         = 0.02
)

// Tags is a set of normalized dietary tags.
type Tags map[string]struct{}

// Has reports whether tag (in any spelling) is in the set.
func (t Tags) Has(tag string) bool {
	_, ok := t[NormalizeTag(tag)]
	return ok
}

// Sorted returns the tags in lexical order.
func (t Tags) Sorted() []string {
	out := make([]string, 0, len(t))
	for tag := range t {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// NormalizeTag lowercases tag and drops everything but a-z: "Gluten-Free" -> "glutenfree".
func NormalizeTag(tag string) string {
	var b strings.Builder
	b.Grow(len(tag))
	for _, r := range strings.ToLower(tag) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DeriveDynamicTags returns the item's static tags, normalized, plus the
// tags computed from its nutrition facts.
func DeriveDynamicTags(item *models.Item) Tags {
	tags := make(Tags, len(item.DietaryTags)+2)
	for _, raw := range item.DietaryTags {
		if tag := NormalizeTag(raw); tag != "" {
			tags[tag] = struct{}{}
		}
	}

	macros := item.Macronutrients
	calories := macros.Get(models.Calories)
	if calories <= 0 {
		return tags
	}
	if macros.Get(models.Protein)/calories >= highProteinRatio && calories >= highProteinMinCalories {
		tags[TagHighProtein] = struct{}{}
	}
	if macros.Get(models.DietaryFiber)/calories >= highFiberRatio {
		tags[TagHighFiber] = struct{}{}
	}
	return tags
}
