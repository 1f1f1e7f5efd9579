// Package directions resolves a commute into a RouteSummary using the Google
// Directions web service.
//
// The provider's first-ranked route and that route's first leg are trusted as
// the recommendation. Anything short of status "OK" with at least one route and
// one leg is reported as domain.ErrRouteUnavailable; a partial summary is never
// returned.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/circuitbreaker"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com"
	directionsPath = "/maps/api/directions/json"

	// BreakerKey is the circuit breaker key used for the directions provider.
	BreakerKey = "directions"
)

type Config struct {
	APIKey string
	// StaticMapKey signs the map image URL that ends up in emails. It should be
	// restricted to the Static Maps API. Empty falls back to APIKey.
	StaticMapKey   string
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Client implements the route resolver. It is safe for concurrent use.
type Client struct {
	session        *http.Client
	apiKey         string
	staticMapKey   string
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	breaker        *circuitbreaker.CircuitBreaker // optional
	log            zerolog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("directions: api key is empty")
	}
	if strings.TrimSpace(cfg.StaticMapKey) == "" {
		cfg.StaticMapKey = cfg.APIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}

	return &Client{
		session:        &http.Client{Timeout: cfg.Timeout},
		apiKey:         cfg.APIKey,
		staticMapKey:   cfg.StaticMapKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		log:            logging.New("directions"),
	}, nil
}

// WithBreaker guards provider calls with cb under BreakerKey.
func (c *Client) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Client {
	c.breaker = cb
	return c
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type leg struct {
	Distance textValue `json:"distance"`
	Duration textValue `json:"duration"`
}

type route struct {
	Summary string `json:"summary"`
	Legs    []leg  `json:"legs"`
}

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []route `json:"routes"`
}

// providerStatusError is a well-formed response whose status is not "OK".
// It describes the route request, not provider health.
type providerStatusError struct {
	Status  string
	Message string
}

func (e *providerStatusError) Error() string {
	if e.Message == "" {
		return "provider status " + e.Status
	}
	return fmt.Sprintf("provider status %s: %s", e.Status, e.Message)
}

// ResolveRoute looks up the traffic-aware best route from origin to destination.
func (c *Client) ResolveRoute(ctx context.Context, origin, destination string) (domain.RouteSummary, error) {
	origin = normalize(origin)
	destination = normalize(destination)
	if origin == "" || destination == "" {
		return domain.RouteSummary{}, fmt.Errorf("%w: origin and destination must be non-empty", domain.ErrRouteUnavailable)
	}

	var resp directionsResponse
	err := c.breaker.Do(BreakerKey, func() error {
		var ferr error
		resp, ferr = c.fetch(ctx, origin, destination)
		return ferr
	}, countsAgainstProvider)
	if err != nil {
		return domain.RouteSummary{}, fmt.Errorf("%w: %w", domain.ErrRouteUnavailable, err)
	}

	if len(resp.Routes) == 0 {
		return domain.RouteSummary{}, fmt.Errorf("%w: no routes returned", domain.ErrRouteUnavailable)
	}
	best := resp.Routes[0]
	if len(best.Legs) == 0 {
		return domain.RouteSummary{}, fmt.Errorf("%w: route has no legs", domain.ErrRouteUnavailable)
	}
	first := best.Legs[0]

	return domain.RouteSummary{
		Summary:     best.Summary,
		Duration:    domain.Measure{Value: first.Duration.Value, Text: first.Duration.Text},
		Distance:    domain.Measure{Value: first.Distance.Value, Text: first.Distance.Text},
		MapImageURL: StaticMapURL(origin, destination, c.staticMapKey),
	}, nil
}

func (c *Client) fetch(ctx context.Context, origin, destination string) (directionsResponse, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", "driving")
	q.Set("departure_time", "now")
	q.Set("traffic_model", "best_guess")
	q.Set("key", c.apiKey)
	endpoint := c.baseURL + directionsPath + "?" + q.Encode()

	httpResp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return directionsResponse{}, err
	}
	defer httpResp.Body.Close()

	var out directionsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
		return directionsResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != "OK" {
		return directionsResponse{}, &providerStatusError{Status: out.Status, Message: out.ErrorMessage}
	}
	return out, nil
}

// countsAgainstProvider excludes per-route statuses such as ZERO_RESULTS and
// NOT_FOUND from the circuit breaker; a bad address is not an outage.
func countsAgainstProvider(err error) bool {
	var pse *providerStatusError
	if errors.As(err, &pse) {
		switch pse.Status {
		case "OVER_QUERY_LIMIT", "REQUEST_DENIED", "UNKNOWN_ERROR":
			return true
		default:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

// normalize collapses whitespace so equivalent addresses produce identical requests and links.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
