package models

import "time"

// Venue types as reported by the campus dining API.
const (
	VenueDiningHall = "DINING HALLS"
	VenueCafe       = "CAFES"
	VenueMarket     = "MARKETS"
)

// Venue is a dining location from the catalog.
type Venue struct {
	ID          string    `json:"id"`
	OfficialID  int64     `json:"official_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Type        string    `json:"type"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     string    `json:"address,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CapacityReading is one venue's occupancy from the live capacity feed.
type CapacityReading struct {
	Name       string `json:"name"`
	Current    int    `json:"current_capacity"`
	Total      int    `json:"total_capacity"`
	PatronFlow int    `json:"patron_flow"`
	IsError    bool   `json:"is_error"`
}
