// Package capacity reads the live occupancy feed of the dining halls and
// turns readings into crowd levels.
package capacity

import (
	"math"
	"time"

	"mdining/internal/models"
)

// Level is a crowd indicator for one venue.
type Level struct {
	Label      string `json:"label"`
	Color      string `json:"color"`
	Percentage int    `json:"percentage"`
}

// NoData is reported for venues missing from the feed.
var NoData = Level{Label: "No Data", Color: "slate"}

// Classify maps an occupancy reading to a crowd level. A zero total reads as quiet.
func Classify(current, total int) Level {
	if total <= 0 {
		return Level{Label: "Quiet", Color: "green"}
	}
	pct := int(math.Round(float64(current) / float64(total) * 100))
	switch {
	case pct > 70:
		return Level{Label: "Very Busy", Color: "red", Percentage: pct}
	case pct > 40:
		return Level{Label: "Moderate", Color: "orange", Percentage: pct}
	default:
		return Level{Label: "Quiet", Color: "green", Percentage: pct}
	}
}

// Snapshot is the cleaned feed at a point in time.
type Snapshot struct {
	Readings    []models.CapacityReading `json:"data"`
	LastUpdated time.Time                `json:"last_updated"`
}

// Lookup returns the crowd level of the venue named name.
func (s *Snapshot) Lookup(name string) Level {
	if s == nil {
		return NoData
	}
	for i := range s.Readings {
		if s.Readings[i].Name == name {
			return Classify(s.Readings[i].Current, s.Readings[i].Total)
		}
	}
	return NoData
}
