package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

type fakeStore struct {
	profiles []domain.Profile
	err      error
}

func (s *fakeStore) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles, s.err
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error // keyed by origin
}

func (r *fakeResolver) ResolveRoute(ctx context.Context, origin, destination string) (domain.RouteSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, origin+"->"+destination)
	if err, ok := r.failFor[origin]; ok {
		return domain.RouteSummary{}, err
	}
	return domain.RouteSummary{
		Summary:     "I-5 N",
		Duration:    domain.Measure{Value: 1500, Text: "25 mins"},
		Distance:    domain.Measure{Value: 16000, Text: "10 mi"},
		MapImageURL: "https://maps.example.com/static?center=" + origin,
	}, nil
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []domain.Notification
	failFor map[string]error // keyed by recipient
}

func (s *fakeSender) Send(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[n.To]; ok {
		return err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.To)
	}
	return out
}

type memLedger struct {
	mu       sync.Mutex
	claims   map[string]bool
	released []string
	err      error
}

func newMemLedger() *memLedger {
	return &memLedger{claims: make(map[string]bool)}
}

func (l *memLedger) key(email string, at time.Time) string {
	return email + "|" + at.Format("2006-01-02T15:04")
}

func (l *memLedger) Claim(ctx context.Context, email string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	k := l.key(email, at)
	if l.claims[k] {
		return false, nil
	}
	l.claims[k] = true
	return true, nil
}

func (l *memLedger) Release(ctx context.Context, email string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(email, at)
	delete(l.claims, k)
	l.released = append(l.released, k)
	return nil
}

type recordingAnalytics struct {
	mu      sync.Mutex
	batches []domain.BatchResult
	err     error
}

func (a *recordingAnalytics) Write(ctx context.Context, batch domain.BatchResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, batch)
	return a.err
}

type recordingMetrics struct {
	mu                sync.Mutex
	started           []string
	completedErrs     []error
	outcomes          map[string]int
	inFlight, maxSeen int
	breakerRejections map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string]int), breakerRejections: make(map[string]int)}
}

func (m *recordingMetrics) InvocationStarted(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, source)
}

func (m *recordingMetrics) InvocationCompleted(d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completedErrs = append(m.completedErrs, err)
}

func (m *recordingMetrics) PipelineCompleted(outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) PipelinesInFlightIncr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
}

func (m *recordingMetrics) PipelinesInFlightDecr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

func (m *recordingMetrics) BreakerRejected(dependency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerRejections[dependency]++
}

var errBoom = errors.New("boom")
