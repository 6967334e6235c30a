package filter

import (
	"sort"

	"mdining/internal/models"
)

// DefaultStation names items served without a station.
const DefaultStation = "General"

// StationGroup is the items served at one station.
type StationGroup struct {
	Station string        `json:"station"`
	Items   []models.Item `json:"items"`
}

// GroupByStation groups items by station, stations sorted by name, items
// kept in input order within their station.
func GroupByStation(items []models.Item) []StationGroup {
	index := make(map[string]int)
	var groups []StationGroup
	for i := range items {
		station := items[i].Station
		if station == "" {
			station = DefaultStation
		}
		idx, ok := index[station]
		if !ok {
			idx = len(groups)
			index[station] = idx
			groups = append(groups, StationGroup{Station: station})
		}
		groups[idx].Items = append(groups[idx].Items, items[i])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Station < groups[j].Station
	})
	return groups
}
