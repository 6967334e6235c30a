package config

import (
	"fmt"
	"os"
	"regexp"

	"mdining/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultVenuesPath is used when no catalog path is given.
const DefaultVenuesPath = "configs/venues.yaml"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// VenueConfig is one venue of the catalog.
type VenueConfig struct {
	ID          int64   `yaml:"id"`
	Slug        string  `yaml:"slug"`
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name,omitempty"`
	Type        string  `yaml:"type"`
	Latitude    float64 `yaml:"latitude"`
	Longitude   float64 `yaml:"longitude"`
	Address     string  `yaml:"address,omitempty"`
	ImageURL    string  `yaml:"image_url,omitempty"`
}

// VenuesConfig is the root of venues.yaml.
type VenuesConfig struct {
	Venues []VenueConfig `yaml:"venues"`
}

// LoadVenuesConfig loads and validates the venue catalog.
func LoadVenuesConfig(path string) (*VenuesConfig, error) {
	if path == "" {
		path = DefaultVenuesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues config: %w", err)
	}

	var cfg VenuesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse venues config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate venues config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the catalog for errors.
func (c *VenuesConfig) Validate() error {
	if len(c.Venues) == 0 {
		return fmt.Errorf("no venues defined")
	}

	ids := make(map[int64]bool)
	slugs := make(map[string]bool)

	for i := range c.Venues {
		v := &c.Venues[i]
		if v.ID <= 0 {
			return fmt.Errorf("venues[%d].id must be positive, got %d", i, v.ID)
		}
		if ids[v.ID] {
			return fmt.Errorf("venues[%d].id: duplicate id %d", i, v.ID)
		}
		ids[v.ID] = true

		if v.Slug == "" {
			return fmt.Errorf("venues[%d].slug is required", i)
		}
		if !slugPattern.MatchString(v.Slug) {
			return fmt.Errorf("venues[%d].slug: invalid slug '%s'", i, v.Slug)
		}
		if slugs[v.Slug] {
			return fmt.Errorf("venues[%d].slug: duplicate slug '%s'", i, v.Slug)
		}
		slugs[v.Slug] = true

		if v.Name == "" {
			return fmt.Errorf("venues[%d].name is required", i)
		}
		switch v.Type {
		case models.VenueDiningHall, models.VenueCafe, models.VenueMarket:
		default:
			return fmt.Errorf("venues[%d].type: unknown type '%s'", i, v.Type)
		}
		if v.Latitude < -90 || v.Latitude > 90 {
			return fmt.Errorf("venues[%d].latitude out of range: %v", i, v.Latitude)
		}
		if v.Longitude < -180 || v.Longitude > 180 {
			return fmt.Errorf("venues[%d].longitude out of range: %v", i, v.Longitude)
		}
	}
	return nil
}

// GetBySlug returns the venue with slug, or nil.
func (c *VenuesConfig) GetBySlug(slug string) *VenueConfig {
	for i := range c.Venues {
		if c.Venues[i].Slug == slug {
			return &c.Venues[i]
		}
	}
	return nil
}

// Model converts the catalog entry to a venue record. The record id is left
// to the store.
func (v *VenueConfig) Model() models.Venue {
	return models.Venue{
		OfficialID:  v.ID,
		Slug:        v.Slug,
		Name:        v.Name,
		DisplayName: v.DisplayName,
		Type:        v.Type,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		Address:     v.Address,
		ImageURL:    v.ImageURL,
	}
}
