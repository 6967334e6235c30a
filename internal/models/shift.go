package models

// Shift is a scheduled operating window of a venue on one calendar date.
// Times are wall-clock "HH:MM" (24h) in the venue's time zone.
type Shift struct {
	ID        string `json:"id" yaml:"id"`
	VenueID   string `json:"venue_id" yaml:"venue_id"`
	Date      string `json:"date" yaml:"date"`             // "2026-02-09"
	StartTime string `json:"start_time" yaml:"start_time"` // "11:00"
	EndTime   string `json:"end_time" yaml:"end_time"`     // "14:00"
	EventName string `json:"event_name,omitempty" yaml:"event_name,omitempty"`
}
