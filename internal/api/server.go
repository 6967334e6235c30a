// Package api serves the dining views over HTTP as JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mdining/internal/capacity"
	"mdining/internal/filter"
	"mdining/internal/geo"
	"mdining/internal/metrics"
	"mdining/internal/service"

	"github.com/rs/zerolog"
)

// Dining is the service behind the API.
type Dining interface {
	Overview(ctx context.Context, now time.Time, origin *geo.Point) ([]service.HallOverview, error)
	Venue(ctx context.Context, slug, date string, now time.Time) (*service.VenueDetail, error)
	Menu(ctx context.Context, slug, date, meal string, st filter.State, now time.Time) (*service.MenuResult, error)
	AvailableDates(ctx context.Context, slug string, now time.Time) ([]string, error)
}

// ReadinessCheck is a dependency probed by /readyz.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HTTPServer serves the dining JSON API.
type HTTPServer struct {
	dining   Dining
	capacity capacity.Fetcher
	checks   []ReadinessCheck
	logger   *zerolog.Logger
	now      func() time.Time
	server   *http.Server
}

// NewHTTPServer builds the server; feed may be nil when the capacity feed is disabled.
func NewHTTPServer(port int, readTimeout time.Duration, dining Dining, feed capacity.Fetcher, logger *zerolog.Logger, checks ...ReadinessCheck) *HTTPServer {
	s := &HTTPServer{
		dining:   dining,
		capacity: feed,
		checks:   checks,
		logger:   logger,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/venues", s.instrument("venues", s.handleVenues))
	mux.HandleFunc("GET /api/venues/{slug}", s.instrument("venue", s.handleVenue))
	mux.HandleFunc("GET /api/venues/{slug}/dates", s.instrument("dates", s.handleDates))
	mux.HandleFunc("POST /api/venues/{slug}/menu", s.instrument("menu", s.handleMenu))
	mux.HandleFunc("GET /api/venues/{slug}/menu.xlsx", s.instrument("menu_export", s.handleMenuExport))
	mux.HandleFunc("GET /api/capacity", s.instrument("capacity", s.handleCapacity))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
	}
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		metrics.IncHTTPRequest(endpoint, rec.code)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	for _, c := range s.checks {
		if err := c.Ping(ctxPing); err != nil {
			s.logger.Warn().Err(err).Str("check", c.Name).Msg("readiness check failed")
			http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
