package training

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/features"
	"drawcast/internal/sequence"
	"drawcast/internal/storage"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dayN(n int) time.Time {
	return epoch.AddDate(0, 0, n)
}

func codeFor(n int) string {
	return fmt.Sprintf("%05d", (n*12347+901)%100000)
}

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	retrains    int
	lastPairs   int
	trained     int
	skipped     int
	pending     int
	hitRates    []float64
	predictions int
	errors      int
}

func (m *MockMetrics) RetrainObserve(pairs int, loss, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrains++
	m.lastPairs = pairs
}

func (m *MockMetrics) LearnObserve(trained, skipped, pending int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trained += trained
	m.skipped += skipped
	m.pending = pending
}

func (m *MockMetrics) HitRateObserve(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hitRates = append(m.hitRates, rate)
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) ErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

type recordedEvent struct {
	kind    string
	payload any
}

// MockNotifier records published events
type MockNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *MockNotifier) Publish(eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{eventType, payload})
}

func (n *MockNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

type fixture struct {
	store    *storage.Store
	ctrl     *Controller
	metrics  *MockMetrics
	notifier *MockNotifier
	locks    *Registry
}

func testConfig() Config {
	return Config{
		ModelName:    "positional-digit",
		TopK:         5,
		Epochs:       2,
		Hidden:       8,
		LearningRate: 0.1,
		Seed:         1234,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, metrics: &MockMetrics{}, notifier: &MockNotifier{}, locks: NewRegistry()}
	f.ctrl = f.controller(t, 3)
	return f
}

// controller builds another controller over the fixture's store and lock registry.
func (f *fixture) controller(t *testing.T, window int) *Controller {
	t.Helper()
	ctrl, err := New(Deps{
		Draws:       f.store,
		Predictions: f.store,
		States:      f.store,
		Builder:     sequence.NewBuilder(features.NewExtractor(), window, 10),
		Metrics:     f.metrics,
		Notifier:    f.notifier,
		Locks:       f.locks,
	}, testConfig())
	require.NoError(t, err)
	ctrl.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return ctrl
}

// seedDays stores top-tier and one lower-tier code for days [from, to).
func (f *fixture) seedDays(t *testing.T, from, to int) {
	t.Helper()
	for n := from; n < to; n++ {
		f.insert(t, n, draw.TopTier, codeFor(n))
		f.insert(t, n, "G7.1", codeFor(n)[:2])
	}
}

func (f *fixture) insert(t *testing.T, n int, tier draw.Tier, code string) {
	t.Helper()
	_, err := f.store.InsertDraw(context.Background(), draw.Event{Date: dayN(n), Tier: tier, Code: code})
	require.NoError(t, err)
}

func (f *fixture) modelBlob(t *testing.T) []byte {
	t.Helper()
	blob, found, err := f.store.LoadModel(context.Background(), testConfig().ModelName)
	require.NoError(t, err)
	require.True(t, found)
	return blob
}
