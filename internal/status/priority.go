package status

import "strings"

// LowestPriority ranks kiosks, cafés, markets and unnamed shifts.
const LowestPriority = 10

// Ordered keyword table; first match wins. Lower rank is more important.
var priorities = []struct {
	keyword string
	rank    int
}{
	{"dinner", 1},
	{"lunch", 2},
	{"breakfast", 3},
	{"brunch", 3},
	{"standard", 4},
}

// Priority ranks a shift by its event name.
func Priority(eventName string) int {
	name := strings.ToLower(eventName)
	for _, p := range priorities {
		if strings.Contains(name, p.keyword) {
			return p.rank
		}
	}
	return LowestPriority
}

// displayName is the label used in status details.
func displayName(eventName string) string {
	if eventName == "" {
		return "Dining"
	}
	if strings.Contains(eventName, "24/7") || strings.Contains(eventName, "Kiosk") {
		return "Market"
	}
	return eventName
}
