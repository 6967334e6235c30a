package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mdining/internal/database"
	"mdining/internal/export"
	"mdining/internal/filter"
	"mdining/internal/geo"
	"mdining/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleVenues returns every dining hall with status and crowd level.
// GET /api/venues?lat=42.27&lon=-83.74
func (s *HTTPServer) handleVenues(w http.ResponseWriter, r *http.Request) {
	origin, err := parseOrigin(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	halls, err := s.dining.Overview(r.Context(), s.now(), origin)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": halls})
}

func parseOrigin(r *http.Request) (*geo.Point, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	p := geo.Point{Lat: lat, Lon: lon}
	if errLat != nil || errLon != nil || !p.Valid() {
		return nil, errors.New("lat and lon must both be valid coordinates")
	}
	return &p, nil
}

// handleVenue returns status, hours, menu and available dates of one venue.
// GET /api/venues/{slug}?date=YYYY-MM-DD
func (s *HTTPServer) handleVenue(w http.ResponseWriter, r *http.Request) {
	detail, err := s.dining.Venue(r.Context(), r.PathValue("slug"), r.URL.Query().Get("date"), s.now())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleDates lists the browsable dates on which the venue has hours.
// GET /api/venues/{slug}/dates
func (s *HTTPServer) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.dining.AvailableDates(r.Context(), r.PathValue("slug"), s.now())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// MenuRequest is the body of POST /api/venues/{slug}/menu. Omitted filter
// fields keep their defaults.
type MenuRequest struct {
	Date    string        `json:"date"` // Format: YYYY-MM-DD, empty for today
	Meal    string        `json:"meal,omitempty"`
	Filters *filter.State `json:"filters,omitempty"`
}

// handleMenu filters one meal of a venue.
// POST /api/venues/{slug}/menu
func (s *HTTPServer) handleMenu(w http.ResponseWriter, r *http.Request) {
	defaults := filter.DefaultState()
	req := MenuRequest{Filters: &defaults}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Filters == nil {
		req.Filters = &defaults
	}

	res, err := s.dining.Menu(r.Context(), r.PathValue("slug"), req.Date, req.Meal, *req.Filters, s.now())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleMenuExport downloads a venue's menu as a spreadsheet.
// GET /api/venues/{slug}/menu.xlsx?date=YYYY-MM-DD&meal=Dinner
func (s *HTTPServer) handleMenuExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	detail, err := s.dining.Venue(r.Context(), r.PathValue("slug"), q.Get("date"), s.now())
	if err != nil {
		s.serviceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteVenueMenu(&buf, detail, q.Get("meal")); err != nil {
		if errors.Is(err, export.ErrMealNotFound) {
			s.serviceError(w, err)
			return
		}
		s.logger.Error().Err(err).Str("venue", detail.Venue.Slug).Msg("menu export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", detail.Venue.Slug+"-"+detail.Date+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCapacity returns the live capacity feed.
// GET /api/capacity
func (s *HTTPServer) handleCapacity(w http.ResponseWriter, r *http.Request) {
	if s.capacity == nil {
		writeError(w, http.StatusServiceUnavailable, "capacity feed disabled")
		return
	}
	snap, err := s.capacity.Fetch(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("capacity fetch failed")
		writeError(w, http.StatusBadGateway, "invalid data from capacity feed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *HTTPServer) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrVenueNotFound):
		writeError(w, http.StatusNotFound, "venue not found")
	case errors.Is(err, service.ErrMealNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
