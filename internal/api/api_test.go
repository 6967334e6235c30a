package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mdining/internal/capacity"
	"mdining/internal/database"
	"mdining/internal/filter"
	"mdining/internal/geo"
	"mdining/internal/models"
	"mdining/internal/service"
	"mdining/internal/status"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type mockDining struct {
	mock.Mock
}

func (m *mockDining) Overview(ctx context.Context, now time.Time, origin *geo.Point) ([]service.HallOverview, error) {
	args := m.Called(ctx, now, origin)
	return args.Get(0).([]service.HallOverview), args.Error(1)
}

func (m *mockDining) Venue(ctx context.Context, slug, date string, now time.Time) (*service.VenueDetail, error) {
	args := m.Called(ctx, slug, date, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VenueDetail), args.Error(1)
}

func (m *mockDining) Menu(ctx context.Context, slug, date, meal string, st filter.State, now time.Time) (*service.MenuResult, error) {
	args := m.Called(ctx, slug, date, meal, st, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MenuResult), args.Error(1)
}

func (m *mockDining) AvailableDates(ctx context.Context, slug string, now time.Time) ([]string, error) {
	args := m.Called(ctx, slug, now)
	return args.Get(0).([]string), args.Error(1)
}

type stubFeed struct {
	snap *capacity.Snapshot
	err  error
}

func (f stubFeed) Fetch(context.Context) (*capacity.Snapshot, error) { return f.snap, f.err }

var now = time.Date(2026, 2, 9, 22, 15, 0, 0, time.UTC)

func newTestServer(t *testing.T, dining Dining, feed capacity.Fetcher, checks ...ReadinessCheck) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	s := NewHTTPServer(0, time.Second, dining, feed, &logger, checks...)
	s.now = func() time.Time { return now }
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func southQuadDetail() *service.VenueDetail {
	return &service.VenueDetail{
		Venue: models.Venue{ID: "v-sq", Slug: "south-quad", Name: "South Quad"},
		Date:  "2026-02-09",
		Status: status.Status{
			State: status.StateOpen, IsOpen: true, Label: "Open", Color: "green", Details: "Dinner until 8:00 PM",
		},
		Hours: []models.Shift{{StartTime: "17:00", EndTime: "20:00", EventName: "Dinner"}},
		Menu: []service.MealMenu{{Meal: "Dinner", Stations: []filter.StationGroup{
			{Station: "Wok", Items: []models.Item{{Name: "Tofu Stir Fry", DietaryTags: []string{"Vegan"}}}},
		}}},
		AvailableDates: []string{"2026-02-09"},
	}
}

func TestVenuesAPI(t *testing.T) {
	dining := new(mockDining)
	halls := []service.HallOverview{{
		Venue:    models.Venue{Slug: "south-quad", Name: "South Quad"},
		Capacity: capacity.NoData,
	}}
	dining.On("Overview", mock.Anything, now, (*geo.Point)(nil)).Return(halls, nil).Once()
	dining.On("Overview", mock.Anything, now, &geo.Point{Lat: 42.27, Lon: -83.74}).Return(halls, nil).Once()

	ts := newTestServer(t, dining, nil)

	resp, err := http.Get(ts.URL + "/api/venues")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Venues []service.HallOverview `json:"venues"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Venues, 1)
	assert.Equal(t, "south-quad", body.Venues[0].Venue.Slug)

	resp2, err := http.Get(ts.URL + "/api/venues?lat=42.27&lon=-83.74")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	dining.AssertExpectations(t)
}

func TestVenuesAPI_BadOrigin(t *testing.T) {
	ts := newTestServer(t, new(mockDining), nil)

	tests := []string{"lat=42.27", "lat=abc&lon=-83.74", "lat=91&lon=0"}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/venues?" + q)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decodeError(t, resp), "lat and lon")
		})
	}
}

func TestVenueAPI_ErrorMapping(t *testing.T) {
	dining := new(mockDining)
	dining.On("Venue", mock.Anything, "south-quad", "", now).Return(southQuadDetail(), nil)
	dining.On("Venue", mock.Anything, "nowhere", "", now).
		Return(nil, fmt.Errorf("get venue: %w", database.ErrVenueNotFound))
	dining.On("Venue", mock.Anything, "south-quad", "02/09/2026", now).
		Return(nil, fmt.Errorf("%w: %q", service.ErrInvalidDate, "02/09/2026"))
	dining.On("Venue", mock.Anything, "broken", "", now).Return(nil, errors.New("disk on fire"))

	ts := newTestServer(t, dining, nil)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantMessage string
	}{
		{"ok", "/api/venues/south-quad", http.StatusOK, ""},
		{"unknown venue", "/api/venues/nowhere", http.StatusNotFound, "venue not found"},
		{"bad date", "/api/venues/south-quad?date=02/09/2026", http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD"},
		{"store failure", "/api/venues/broken", http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, decodeError(t, resp))
				return
			}
			var detail service.VenueDetail
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
			assert.Equal(t, "Dinner until 8:00 PM", detail.Status.Details)
			assert.Equal(t, []string{"2026-02-09"}, detail.AvailableDates)
		})
	}
}

func TestDatesAPI(t *testing.T) {
	dining := new(mockDining)
	dining.On("AvailableDates", mock.Anything, "south-quad", now).Return([]string{"2026-02-09", "2026-02-10"}, nil)
	dining.On("AvailableDates", mock.Anything, "nowhere", now).Return([]string(nil), database.ErrVenueNotFound)

	ts := newTestServer(t, dining, nil)

	resp, err := http.Get(ts.URL + "/api/venues/south-quad/dates")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Dates []string `json:"dates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"2026-02-09", "2026-02-10"}, body.Dates)

	missing, err := http.Get(ts.URL + "/api/venues/nowhere/dates")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestMenuAPI_PartialFiltersKeepDefaults(t *testing.T) {
	dining := new(mockDining)
	wantState := mock.MatchedBy(func(st filter.State) bool {
		def := filter.DefaultState()
		return st.Search == "tofu" &&
			assert.ObjectsAreEqual([]string{"Vegan"}, st.Dietary) &&
			st.MinMScale == def.MinMScale &&
			st.Macros == def.Macros
	})
	dining.On("Menu", mock.Anything, "south-quad", "2026-02-09", "dinner", wantState, now).
		Return(&service.MenuResult{Venue: "south-quad", Date: "2026-02-09", Meal: "Dinner", Total: 1, ActiveFilters: 2}, nil)

	ts := newTestServer(t, dining, nil)

	body := `{"date":"2026-02-09","meal":"dinner","filters":{"search":"tofu","dietary":["Vegan"]}}`
	resp, err := http.Post(ts.URL+"/api/venues/south-quad/menu", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res service.MenuResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "Dinner", res.Meal)
	assert.Equal(t, 2, res.ActiveFilters)
	dining.AssertExpectations(t)
}

func TestMenuAPI_UnknownMeal(t *testing.T) {
	dining := new(mockDining)
	dining.On("Menu", mock.Anything, "south-quad", "", "Supper", filter.DefaultState(), now).
		Return(nil, fmt.Errorf("no Supper menu for south-quad on 2026-02-09: %w", service.ErrMealNotFound))

	ts := newTestServer(t, dining, nil)

	resp, err := http.Post(ts.URL+"/api/venues/south-quad/menu", "application/json", strings.NewReader(`{"meal":"Supper"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decodeError(t, resp), "no Supper menu")
	dining.AssertExpectations(t)
}

func TestMenuAPI_NoFilters(t *testing.T) {
	dining := new(mockDining)
	dining.On("Menu", mock.Anything, "south-quad", "", "", filter.DefaultState(), now).
		Return(&service.MenuResult{Venue: "south-quad"}, nil)

	ts := newTestServer(t, dining, nil)

	resp, err := http.Post(ts.URL+"/api/venues/south-quad/menu", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	dining.AssertExpectations(t)
}

func TestMenuAPI_BadRequests(t *testing.T) {
	ts := newTestServer(t, new(mockDining), nil)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"malformed json", http.MethodPost, `{"date":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"date":"2026-02-09","vegan":true}`, http.StatusBadRequest},
		{"unknown filter field", http.MethodPost, `{"filters":{"halal":true}}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+"/api/venues/south-quad/menu", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestMenuExportAPI(t *testing.T) {
	dining := new(mockDining)
	dining.On("Venue", mock.Anything, "south-quad", "2026-02-09", now).Return(southQuadDetail(), nil)

	ts := newTestServer(t, dining, nil)

	resp, err := http.Get(ts.URL + "/api/venues/south-quad/menu.xlsx?date=2026-02-09")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="south-quad-2026-02-09.xlsx"`)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Hours", "Dinner"}, f.GetSheetList())

	missing, err := http.Get(ts.URL + "/api/venues/south-quad/menu.xlsx?date=2026-02-09&meal=Breakfast")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCapacityAPI(t *testing.T) {
	snap := &capacity.Snapshot{
		Readings:    []models.CapacityReading{{Name: "South Quad", Current: 120, Total: 400}},
		LastUpdated: now,
	}

	tests := []struct {
		name       string
		feed       capacity.Fetcher
		wantStatus int
	}{
		{"ok", stubFeed{snap: snap}, http.StatusOK},
		{"upstream down", stubFeed{err: capacity.ErrUpstream}, http.StatusBadGateway},
		{"disabled", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, new(mockDining), tt.feed)
			resp, err := http.Get(ts.URL + "/api/capacity")
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got capacity.Snapshot
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			require.Len(t, got.Readings, 1)
			assert.Equal(t, "South Quad", got.Readings[0].Name)
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	var dbErr error
	ts := newTestServer(t, new(mockDining), nil, ReadinessCheck{
		Name: "database",
		Ping: func(context.Context) error { return dbErr },
	})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	dbErr = errors.New("locked")
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	text, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(text), "database not ready")
}
