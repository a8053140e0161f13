// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
)

// MockSource is an in-memory test double for [services.Source].
type MockSource struct {
	mu          sync.Mutex
	collections []models.Collection
	items       map[string][]models.Item
	durations   map[string]time.Duration
	err         error
	holds       map[string]*hold
	listHold    *hold
	calls       map[string]int
}

type hold struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func NewMockSource(collections []models.Collection, items map[string][]models.Item) *MockSource {
	return &MockSource{
		collections: collections,
		items:       items,
		durations:   make(map[string]time.Duration),
		holds:       make(map[string]*hold),
		calls:       make(map[string]int),
	}
}

// SetErr makes every subsequent call fail with err. Nil restores normal behavior.
func (m *MockSource) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDuration registers the duration reported for id.
func (m *MockSource) SetDuration(id string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[id] = d
}

// Hold makes the next Items call for collectionID block until release is called.
// started is closed once that call is in flight.
func (m *MockSource) Hold(collectionID string) (started <-chan struct{}, release func()) {
	h := &hold{started: make(chan struct{}), release: make(chan struct{})}
	m.mu.Lock()
	m.holds[collectionID] = h
	m.mu.Unlock()
	return h.started, func() { h.once.Do(func() { close(h.release) }) }
}

// HoldCollections makes the next Collections call block until release is called.
func (m *MockSource) HoldCollections() (started <-chan struct{}, release func()) {
	h := &hold{started: make(chan struct{}), release: make(chan struct{})}
	m.mu.Lock()
	m.listHold = h
	m.mu.Unlock()
	return h.started, func() { h.once.Do(func() { close(h.release) }) }
}

func (h *hold) wait(ctx context.Context) error {
	if h == nil {
		return nil
	}
	close(h.started)
	select {
	case <-h.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls returns how many times method has been called.
func (m *MockSource) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockSource) Collections(ctx context.Context) ([]models.Collection, error) {
	m.mu.Lock()
	m.calls["Collections"]++
	h := m.listHold
	m.listHold = nil
	m.mu.Unlock()

	if err := h.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.collections), nil
}

func (m *MockSource) Items(ctx context.Context, collectionID string) ([]models.Item, error) {
	m.mu.Lock()
	m.calls["Items"]++
	h := m.holds[collectionID]
	delete(m.holds, collectionID)
	m.mu.Unlock()

	if err := h.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.items[collectionID]), nil
}

func (m *MockSource) Durations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Durations"]++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]time.Duration, len(ids))
	for _, id := range ids {
		if d, ok := m.durations[id]; ok {
			out[id] = d
		}
	}
	return out, nil
}

// MemoryDurable is an in-memory test double for [store.Durable].
type MemoryDurable struct {
	mu        sync.Mutex
	counts    map[string]int
	favorites map[string]bool
	prefs     models.Preferences
	err       error
}

func NewMemoryDurable() *MemoryDurable {
	return &MemoryDurable{
		counts:    make(map[string]int),
		favorites: make(map[string]bool),
		prefs:     models.DefaultPreferences(),
	}
}

// SetErr makes every subsequent write fail with err.
func (m *MemoryDurable) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryDurable) ViewCounts() (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.counts), nil
}

func (m *MemoryDurable) SetViewCount(videoID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.counts[videoID] = count
	return nil
}

func (m *MemoryDurable) ResetViewCounts() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	clear(m.counts)
	return nil
}

func (m *MemoryDurable) Favorites() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.favorites)), nil
}

func (m *MemoryDurable) SetFavorite(videoID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if favorite {
		m.favorites[videoID] = true
	} else {
		delete(m.favorites, videoID)
	}
	return nil
}

func (m *MemoryDurable) Preferences() (models.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *MemoryDurable) SavePreferences(p models.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.prefs = p
	return nil
}

// MockPlayer is a test double for [player.Player].
type MockPlayer struct {
	mu          sync.Mutex
	loaded      []string
	volume      int
	sample      models.Sample
	progressErr error
	stops       int
	closed      bool
}

func (m *MockPlayer) Load(ctx context.Context, videoID string, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, videoID)
	m.volume = volume
	m.sample = models.Sample{State: models.StateUnstarted}
	return nil
}

func (m *MockPlayer) Progress(ctx context.Context) (models.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample, m.progressErr
}

func (m *MockPlayer) SetVolume(ctx context.Context, volume int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *MockPlayer) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetSample sets what the next Progress calls report.
func (m *MockPlayer) SetSample(s models.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sample = s
}

// SetProgressErr makes Progress fail with err.
func (m *MockPlayer) SetProgressErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressErr = err
}

// Loaded returns every video id passed to Load, in order.
func (m *MockPlayer) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.loaded)
}

// Volume returns the last volume set.
func (m *MockPlayer) Volume() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Stops returns how many times Stop was called.
func (m *MockPlayer) Stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Closed reports whether Close was called.
func (m *MockPlayer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Items builds one item per title with id "vid-<title>". AddedAt rises an hour per item and PublishedAt falls a day per item.
func Items(collectionID string, titles ...string) []models.Item {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]models.Item, len(titles))
	for i, title := range titles {
		items[i] = models.Item{
			ID:           "vid-" + title,
			Title:        title,
			CollectionID: collectionID,
			AddedAt:      base.Add(time.Duration(i) * time.Hour),
			PublishedAt:  base.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return items
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
