package config

import (
	"context"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const defaultVenuesPoll = 30 * time.Second

// CatalogChange is the result of a venues.yaml reload. Slug lists are sorted.
type CatalogChange struct {
	Catalog *VenuesConfig
	Added   []string
	Updated []string
	Removed []string
}

// Empty reports whether the reload changed no venue.
func (c CatalogChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// DiffVenues compares two catalogs by slug. A nil prev reports every venue
// in next as added.
func DiffVenues(prev, next *VenuesConfig) CatalogChange {
	change := CatalogChange{Catalog: next}
	old := make(map[string]VenueConfig)
	if prev != nil {
		for _, v := range prev.Venues {
			old[v.Slug] = v
		}
	}
	for _, v := range next.Venues {
		was, ok := old[v.Slug]
		switch {
		case !ok:
			change.Added = append(change.Added, v.Slug)
		case was != v:
			change.Updated = append(change.Updated, v.Slug)
		}
		delete(old, v.Slug)
	}
	for slug := range old {
		change.Removed = append(change.Removed, slug)
	}
	sort.Strings(change.Added)
	sort.Strings(change.Updated)
	sort.Strings(change.Removed)
	return change
}

// VenueWatcher polls venues.yaml and reports catalog changes. Edits that
// fail validation or change no venue are not reported.
type VenueWatcher struct {
	path     string
	interval time.Duration
	logger   *zerolog.Logger
	onChange func(CatalogChange)

	current *VenuesConfig
	modTime time.Time
}

func NewVenueWatcher(path string, interval time.Duration, logger *zerolog.Logger, onChange func(CatalogChange)) *VenueWatcher {
	if path == "" {
		path = DefaultVenuesPath
	}
	if interval <= 0 {
		interval = defaultVenuesPoll
	}
	return &VenueWatcher{path: path, interval: interval, logger: logger, onChange: onChange}
}

// Load reads the catalog and reports every venue as added.
func (w *VenueWatcher) Load() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	catalog, err := LoadVenuesConfig(w.path)
	if err != nil {
		return err
	}
	w.modTime = info.ModTime()
	w.apply(DiffVenues(nil, catalog))
	return nil
}

// Run polls until ctx is done. Load must have succeeded first.
func (w *VenueWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *VenueWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil || !info.ModTime().After(w.modTime) {
		return
	}
	w.modTime = info.ModTime()

	catalog, err := LoadVenuesConfig(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("venue catalog reload rejected")
		return
	}
	change := DiffVenues(w.current, catalog)
	if change.Empty() {
		w.current = catalog
		w.logger.Debug().Str("path", w.path).Msg("venue catalog touched, no venue changed")
		return
	}
	w.logger.Info().
		Strs("added", change.Added).
		Strs("updated", change.Updated).
		Strs("removed", change.Removed).
		Msg("venue catalog changed")
	w.apply(change)
}

func (w *VenueWatcher) apply(change CatalogChange) {
	w.current = change.Catalog
	if w.onChange != nil {
		w.onChange(change)
	}
}

// WatchVenues loads the catalog, reports it, and keeps polling for changes
// in the background until ctx is done.
func WatchVenues(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onChange func(CatalogChange)) error {
	w := NewVenueWatcher(path, interval, logger, onChange)
	if err := w.Load(); err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}
