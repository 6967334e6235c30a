package capacity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mdining/internal/metrics"
	"mdining/internal/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ErrUpstream is returned when the feed is unreachable or answers with
// something other than a capacity list.
var ErrUpstream = errors.New("capacity upstream error")

const cacheKey = "capacity:snapshot"

// Client calls the campus dining capacity feed.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a client for baseURL. rps limits upstream calls per
// second; rps <= 0 disables the limit.
func NewClient(baseURL, apiKey string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
		now:        time.Now,
	}
}

// UseRedisCache configures optional Redis caching of snapshots.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Fetch returns the current snapshot, from cache when fresh.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if c.readCache(ctx, cacheKey, &snap) {
		metrics.IncCapacityFetch(metrics.CapacityHit)
		return &snap, nil
	}

	readings, err := c.fetchReadings(ctx)
	if err != nil {
		metrics.IncCapacityFetch(metrics.CapacityError)
		return nil, err
	}
	metrics.IncCapacityFetch(metrics.CapacityFetch)

	snap = Snapshot{Readings: readings, LastUpdated: c.now().UTC()}
	c.writeCache(ctx, cacheKey, snap)
	return &snap, nil
}

func (c *Client) fetchReadings(ctx context.Context) ([]models.CapacityReading, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: base url not configured", ErrUpstream)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/dining/capacity?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Capacity []map[string]any `json:"capacity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	if payload.Capacity == nil {
		return nil, fmt.Errorf("%w: missing capacity list", ErrUpstream)
	}
	return cleanReadings(payload.Capacity)
}

// cleanReadings coerces raw feed entries. Numeric fields that are not
// integers read as 0; a negative count reads as 0.
func cleanReadings(raw []map[string]any) ([]models.CapacityReading, error) {
	out := make([]models.CapacityReading, 0, len(raw))
	for i, hall := range raw {
		name, ok := hall["name"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: capacity[%d].name is not a string", ErrUpstream, i)
		}
		r := models.CapacityReading{
			Name:       name,
			Current:    coerceInt(hall["capacity_count"]),
			Total:      coerceInt(hall["total"]),
			PatronFlow: coerceInt(hall["patronflow"]),
		}
		if r.Current < 0 {
			r.Current = 0
		}
		if msg, ok := hall["error"].(string); ok && msg != "no errors" {
			r.IsError = true
		}
		out = append(out, r)
	}
	return out, nil
}

func coerceInt(v any) int {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
