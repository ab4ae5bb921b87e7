package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/clock"
	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
)

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// fakeAPI serves canned responses per path and counts calls.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	calls  map[string]int
	auth   map[string]string
}

func (f *fakeAPI) handle(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) lastAuth(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[path]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.auth[r.URL.Path] = r.Header.Get("Authorization")
	route := f.routes[r.URL.Path]
	f.mu.Unlock()

	if route == nil {
		http.NotFound(w, r)
		return
	}
	route(w, r)
}

// flakyStorage fails Apply on demand.
type flakyStorage struct {
	*credential.MemoryStorage
	failApply bool
}

func (s *flakyStorage) Apply(ctx context.Context, set map[string]string, remove []string) error {
	if s.failApply {
		return errors.New("disk full")
	}
	return s.MemoryStorage.Apply(ctx, set, remove)
}

type harness struct {
	api      *fakeAPI
	client   *api.Client
	storage  *flakyStorage
	store    *credential.Store
	clock    *clock.FakeClock
	notes    *notify.Recorder
	logs     *bytes.Buffer
	metrics  *metrics.Metrics
	manager  *Manager
	states   []State
	statesMu sync.Mutex
}

type harnessOption func(*Options, *api.Options)

func withDemo(enabled bool) harnessOption {
	return func(o *Options, _ *api.Options) { o.DemoLogin = enabled }
}

func withBaseURL(url string) harnessOption {
	return func(_ *Options, a *api.Options) {
		a.BaseURL = url
		a.HTTPClient = nil
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	fake := &fakeAPI{
		routes: make(map[string]func(http.ResponseWriter, *http.Request)),
		calls:  make(map[string]int),
		auth:   make(map[string]string),
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	h := &harness{
		api:     fake,
		storage: &flakyStorage{MemoryStorage: credential.NewMemoryStorage()},
		clock:   clock.Fake(epoch),
		notes:   &notify.Recorder{},
		logs:    &bytes.Buffer{},
	}
	logger := log.New(log.Config{Level: log.LevelDebug, Format: log.FormatJSON, Writer: h.logs})
	_, h.metrics = metrics.NewRegistry()

	apiOpts := api.Options{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		HTTPClient: srv.Client(),
		Logger:     logger,
	}
	mgrOpts := Options{
		Clock:    h.clock,
		Notifier: h.notes,
		Metrics:  h.metrics,
		Logger:   logger,
	}
	for _, opt := range opts {
		opt(&mgrOpts, &apiOpts)
	}

	h.client = api.NewClient(apiOpts)
	h.store = credential.NewStore(h.storage, logger)
	h.manager = NewManager(h.client, h.store, mgrOpts)
	h.manager.Subscribe(func(s State) {
		h.statesMu.Lock()
		defer h.statesMu.Unlock()
		h.states = append(h.states, s)
	})
	return h
}

func (h *harness) phases() []Phase {
	h.statesMu.Lock()
	defer h.statesMu.Unlock()
	out := make([]Phase, 0, len(h.states))
	for _, s := range h.states {
		out = append(out, s.Phase)
	}
	return out
}

func (h *harness) seed(t *testing.T, token string, user *authz.User, validated time.Time) {
	t.Helper()
	require.NoError(t, h.store.Save(context.Background(), credential.Record{Token: token, User: user, LastValidatedAt: validated}))
}

func (h *harness) record(t *testing.T) (credential.Record, bool) {
	t.Helper()
	rec, ok, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return rec, ok
}

func cachedUser() *authz.User {
	return &authz.User{ID: "7", Name: "Cached", Email: "cached@example.com", Roles: authz.Roles{authz.LegacyRole(authz.RoleInspector)}}
}

const userJSON = `{"success":true,"data":{"user":{"id":7,"name":"Fresh","email":"cached@example.com","roles":["admin"]}}}`
