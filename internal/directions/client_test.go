package directions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/circuitbreaker"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

const okBody = `{
  "status": "OK",
  "routes": [
    {"summary": "I-5 N", "legs": [{"distance": {"text": "12.3 mi", "value": 19795}, "duration": {"text": "24 mins", "value": 1440}}]},
    {"summary": "WA-99 N", "legs": [{"distance": {"text": "13.0 mi", "value": 20921}, "duration": {"text": "31 mins", "value": 1860}}]}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "})
	assert.Error(t, err)
}

func TestResolveRoute_OK(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, directionsPath, r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"origin":         q.Get("origin"),
			"destination":    q.Get("destination"),
			"departure_time": q.Get("departure_time"),
			"key":            q.Get("key"),
		}
		fmt.Fprint(w, okBody)
	})

	route, err := c.ResolveRoute(context.Background(), "1 Home  St", "2 Work Ave")
	require.NoError(t, err)

	assert.Equal(t, "1 Home St", gotQuery["origin"])
	assert.Equal(t, "2 Work Ave", gotQuery["destination"])
	assert.Equal(t, "now", gotQuery["departure_time"])
	assert.Equal(t, "test-key", gotQuery["key"])

	assert.Equal(t, "I-5 N", route.Summary)
	assert.Equal(t, domain.Measure{Value: 1440, Text: "24 mins"}, route.Duration)
	assert.Equal(t, domain.Measure{Value: 19795, Text: "12.3 mi"}, route.Distance)
	assert.Equal(t, StaticMapURL("1 Home St", "2 Work Ave", "test-key"), route.MapImageURL)
}

func TestResolveRoute_StaticMapKeyKeepsDirectionsKeyOutOfEmail(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		fmt.Fprint(w, okBody)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "server-key", StaticMapKey: "maps-only-key", BaseURL: srv.URL})
	require.NoError(t, err)

	route, err := c.ResolveRoute(context.Background(), "1 Home St", "2 Work Ave")
	require.NoError(t, err)

	assert.Equal(t, "server-key", gotKey)
	u, err := url.Parse(route.MapImageURL)
	require.NoError(t, err)
	assert.Equal(t, "maps-only-key", u.Query().Get("key"))
	assert.NotContains(t, route.MapImageURL, "server-key")
}

func TestResolveRoute_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero results", `{"status": "ZERO_RESULTS", "routes": []}`},
		{"not found", `{"status": "NOT_FOUND", "routes": []}`},
		{"ok but empty", `{"status": "OK", "routes": []}`},
		{"route without legs", `{"status": "OK", "routes": [{"summary": "x", "legs": []}]}`},
		{"malformed", `{"status": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			route, err := c.ResolveRoute(context.Background(), "a", "b")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
			assert.Equal(t, domain.RouteSummary{}, route)
		})
	}
}

func TestResolveRoute_EmptyAddress(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.ResolveRoute(context.Background(), " ", "b")
	assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
	assert.Zero(t, calls.Load())
}

func TestResolveRoute_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, okBody)
	})

	route, err := c.ResolveRoute(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "I-5 N", route.Summary)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolveRoute_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.ResolveRoute(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolveRoute_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.ResolveRoute(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveRoute_ProviderStatusNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "bad key"}`)
	})

	_, err := c.ResolveRoute(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveRoute_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c.maxAttempts = 1
	cb := circuitbreaker.New(2, time.Hour)
	c.WithBreaker(cb)

	for i := 0; i < 2; i++ {
		_, err := c.ResolveRoute(context.Background(), "a", "b")
		require.Error(t, err)
	}

	_, err := c.ResolveRoute(context.Background(), "a", "b")
	assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveRoute_ZeroResultsDoNotTripBreaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "routes": []}`)
	})
	cb := circuitbreaker.New(1, time.Hour)
	c.WithBreaker(cb)

	for i := 0; i < 3; i++ {
		_, err := c.ResolveRoute(context.Background(), "a", "b")
		require.Error(t, err)
		assert.False(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	}
	assert.Equal(t, "closed", cb.State(BreakerKey))
}

func TestResolveRoute_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okBody)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ResolveRoute(ctx, "a", "b")
	assert.True(t, errors.Is(err, domain.ErrRouteUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}
