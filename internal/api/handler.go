// Package api serves the operational HTTP surface: liveness, store
// reachability and a manual trigger for one invocation.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
	"github.com/JNewman-cell/GoogleCloudFunction/internal/logging"
)

type Invoker interface {
	Invoke(ctx context.Context, event domain.TriggerEvent) domain.BatchResult
	Location() *time.Location
}

// HealthChecker reports profile store reachability for verbose /health responses.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	invoker Invoker
	store   HealthChecker
	token   string // empty leaves the manual trigger open
	log     zerolog.Logger
	clock   func() time.Time
}

func NewHandler(invoker Invoker) *Handler {
	return &Handler{
		invoker: invoker,
		log:     logging.New("api"),
		clock:   time.Now,
	}
}

// WithHealthChecker sets the profile store checker for verbose /health responses.
func (h *Handler) WithHealthChecker(store HealthChecker) *Handler {
	h.store = store
	return h
}

// WithTriggerToken requires "Authorization: Bearer <token>" on POST /invocations.
func (h *Handler) WithTriggerToken(token string) *Handler {
	h.token = token
	return h
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case r.URL.Path == "/invocations" && r.Method == http.MethodPost:
		if !h.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.invoke(w, r)

	case r.URL.Path == "/invocations":
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	if !verbose || h.store == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{Status: "ok", Components: make(map[string]string)}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.store.PingContext(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["profile_store"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["profile_store"] = "healthy"
	}

	status := http.StatusOK
	if resp.Status == "degraded" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) invoke(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	at, err := evaluateAt(r, now, h.invoker.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := domain.TriggerEvent{
		InvocationID: uuid.New(),
		Source:       domain.TriggerSourceManual,
		EvaluateAt:   at,
		FiredAt:      now,
	}
	h.log.Info().Str("invocation_id", event.InvocationID.String()).
		Time("evaluate_at", at).Msg("manual invocation requested")

	batch := h.invoker.Invoke(r.Context(), event)

	status := http.StatusOK
	if batch.Err != nil {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, summarize(batch))
}

func summarize(batch domain.BatchResult) InvocationResponse {
	resp := InvocationResponse{
		InvocationID: batch.InvocationID.String(),
		EvaluatedAt:  formatTime(batch.EvaluatedAt),
		StartedAt:    formatTime(batch.StartedAt),
		FinishedAt:   formatTime(batch.FinishedAt),
		Profiles:     len(batch.Results),
		Outcomes:     make(map[string]int),
	}
	if batch.Err != nil {
		resp.Error = batch.Err.Error()
	}
	for outcome, n := range batch.Counts() {
		resp.Outcomes[string(outcome)] = n
	}
	for _, f := range batch.Failures() {
		d := FailureDetail{Profile: f.ProfileKey, Email: f.Email, Outcome: string(f.Outcome)}
		if f.Err != nil {
			d.Error = f.Err.Error()
		}
		resp.Failures = append(resp.Failures, d)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logging.New("api")
		l.Warn().Err(err).Msg("json encode error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
