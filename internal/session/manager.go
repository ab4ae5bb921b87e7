// Package session owns the console's authentication state: bootstrapping
// it from the credential store, re-validating it against the server and
// changing it on login and logout.
//
// A Manager is the single owner of that state. Mutations are serialized;
// reads are safe from any goroutine.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/clock"
	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
)

// DefaultFreshnessWindow is how long a validated session is trusted
// without asking the server again.
const DefaultFreshnessWindow = 5 * time.Minute

// Bootstrap outcomes reported to metrics.
const (
	OutcomeAnonymous   = "anonymous"
	OutcomeCache       = "cache"
	OutcomeVerified    = "verified"
	OutcomeDegraded    = "degraded"
	OutcomeExpired     = "expired"
	OutcomeInvalidated = "invalidated"
)

// API is the part of the admin API the session needs.
type API interface {
	SetToken(token string)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	GoogleLogin(ctx context.Context, credential string) (*api.LoginResponse, error)
	CurrentUser(ctx context.Context) (*authz.User, error)
	Logout(ctx context.Context) error
	TwoFactorStatus(ctx context.Context) (*api.TwoFactorStatus, error)
	SendTwoFactorCode(ctx context.Context, verificationID string) error
	VerifyTwoFactorCode(ctx context.Context, verificationID, code string) error
	CompleteTwoFactorLogin(ctx context.Context, verificationID, code string) (*api.LoginResponse, error)
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Clock           clock.Clock
	FreshnessWindow time.Duration
	DemoLogin       bool
	Notifier        notify.Notifier
	Metrics         *metrics.Metrics
	Logger          *log.Logger
}

// Manager owns the session state.
type Manager struct {
	api      API
	store    *credential.Store
	clock    clock.Clock
	window   time.Duration
	demo     bool
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *log.Logger

	// opMu serializes mutations; mu guards state and observers.
	opMu      sync.Mutex
	mu        sync.RWMutex
	state     State
	observers map[int]func(State)
	nextObs   int
}

// NewManager creates a Manager in the Bootstrapping phase.
func NewManager(client API, store *credential.Store, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	return &Manager{
		api:       client,
		store:     store,
		clock:     opts.Clock,
		window:    opts.FreshnessWindow,
		demo:      opts.DemoLogin,
		notifier:  notify.OrNop(opts.Notifier),
		metrics:   opts.Metrics,
		logger:    log.OrDefault(opts.Logger).WithComponent("session"),
		state:     State{Phase: PhaseBootstrapping, IsLoading: true},
		observers: make(map[int]func(State)),
	}
}

// Subscribe registers fn to receive every state transition. fn runs
// synchronously and must not call Manager mutators. The returned function
// unregisters it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

func (m *Manager) transition(next State) State {
	next.IsLoading = !next.Phase.Terminal()

	m.mu.Lock()
	m.state = next
	observers := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
	return next
}

// State returns the current state snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns the authenticated user or nil.
func (m *Manager) CurrentUser() *authz.User { return m.State().CurrentUser }

// Token returns the bearer token held in memory.
func (m *Manager) Token() string { return m.State().Token }

// IsAuthenticated reports whether a user is present.
func (m *Manager) IsAuthenticated() bool { return m.State().IsAuthenticated() }

// IsLoading reports whether a bootstrap or verification is in progress.
func (m *Manager) IsLoading() bool { return m.State().IsLoading }

// IsAdmin is derived from the current roles on every call.
func (m *Manager) IsAdmin() bool { return authz.IsAdmin(m.CurrentUser()) }

// HasPermission checks code against the current user.
func (m *Manager) HasPermission(code string) bool {
	return authz.HasPermission(m.CurrentUser(), code)
}

// HasRole checks the current user's role names.
func (m *Manager) HasRole(name string) bool {
	return authz.HasRole(m.CurrentUser(), name)
}

// HasAnyRole checks the current user against several role names.
func (m *Manager) HasAnyRole(names ...string) bool {
	return authz.HasAnyRole(m.CurrentUser(), names...)
}

// Permissions lists the current user's effective permission codes.
func (m *Manager) Permissions() []string {
	return authz.PermissionList(m.CurrentUser())
}

// FreshnessWindow returns the configured window.
func (m *Manager) FreshnessWindow() time.Duration { return m.window }

// clearLocal drops the credential record and the in-memory token. A store
// failure is logged; the in-memory session is cleared regardless.
func (m *Manager) clearLocal(ctx context.Context) error {
	m.api.SetToken("")
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.WithError(err).ErrorContext(ctx, "failed to clear credential store")
	}
	return err
}
