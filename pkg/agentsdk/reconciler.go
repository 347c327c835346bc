package agentsdk

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultIdleInterval   = 5 * time.Minute
	defaultActiveInterval = 30 * time.Second

	// activeWindow is how close to expiry the session must be before the
	// reconciler polls at the active cadence.
	activeWindow = 10 * time.Minute

	reconcileTimeout = 10 * time.Second
)

// ReconcilerConfig configures a Reconciler. Store and Client are required.
type ReconcilerConfig struct {
	Store  StateStore
	Client *Client
	Logger *slog.Logger

	// IdleInterval is the polling cadence for a healthy session;
	// ActiveInterval kicks in near expiry and during a login attempt.
	IdleInterval   time.Duration
	ActiveInterval time.Duration
}

// Reconciler keeps the local view of the session consistent with the bridge.
// Construction rehydrates persisted state, so a restarted background process
// picks up exactly where the previous incarnation stopped.
type Reconciler struct {
	cfg         ReconcilerConfig
	broadcaster Broadcaster

	mu              sync.Mutex
	state           AuthState
	loginInProgress bool

	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// NewReconciler loads persisted state (minting a fresh user identity when
// none exists) and returns a reconciler ready to Start.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = defaultIdleInterval
	}
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = defaultActiveInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Reconciler{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	state, ok, err := cfg.Store.Load()
	if err != nil {
		return nil, err
	}
	if !ok || state.UserID == "" {
		state = AuthState{UserID: uuid.NewString()}
		if err := cfg.Store.Save(state); err != nil {
			return nil, err
		}
	}
	r.state = state

	return r, nil
}

// Subscribe registers a sink for state change notifications.
func (r *Reconciler) Subscribe(sink Sink) {
	r.broadcaster.Subscribe(sink)
}

// State returns the current local view.
func (r *Reconciler) State() AuthState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// BeginLogin returns the bridge URL to open in a tab. The second return
// reports whether an attempt was already outstanding, so a double-clicked
// sign-in button can skip opening a second tab; the URL is the same either
// way.
func (r *Reconciler) BeginLogin() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inProgress := r.loginInProgress
	r.loginInProgress = true
	return r.cfg.Client.LoginURL(r.state.UserID), inProgress
}

// HandleCallbackURL inspects a navigation the extension observed on the login
// tab and decides whether the flow finished. Success is either the explicit
// completion marker or an authorization code arriving without an error
// parameter. On success the local state optimistically flips to authenticated
// and is persisted before the confirming status poll, so a background process
// killed mid-handshake still remembers the outcome.
func (r *Reconciler) HandleCallbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()

	if q.Get("status") == "error" || q.Get("error") != "" {
		r.mu.Lock()
		r.loginInProgress = false
		r.mu.Unlock()
		r.cfg.Logger.Warn("login attempt failed",
			"reason", q.Get("reason"), "provider_error", q.Get("error"))
		return false
	}

	success := q.Get("status") == "success" || q.Get("code") != ""
	if !success {
		return false
	}

	r.mu.Lock()
	r.loginInProgress = false
	r.state.Authenticated = true
	r.state.CheckedAt = time.Now()
	state := r.state
	r.mu.Unlock()

	r.persistAndBroadcast(state)

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	r.Reconcile(ctx)

	return true
}

// Logout clears the session. Local state is cleared and persisted first; the
// bridge call is best effort, so signing out works even when the bridge is
// unreachable.
func (r *Reconciler) Logout(ctx context.Context) {
	r.mu.Lock()
	userID := r.state.UserID
	r.state = AuthState{UserID: userID, CheckedAt: time.Now()}
	r.loginInProgress = false
	state := r.state
	r.mu.Unlock()

	r.persistAndBroadcast(state)

	if err := r.cfg.Client.Logout(ctx, userID); err != nil {
		r.cfg.Logger.Warn("bridge logout failed, local state already cleared", "error", err)
	}
}

// Reconcile polls the bridge once and folds the answer into local state. A
// definitive 401 flips the state to unauthenticated; a transport error leaves
// the last known state alone rather than signing the user out on a flaky
// network.
func (r *Reconciler) Reconcile(ctx context.Context) {
	r.mu.Lock()
	userID := r.state.UserID
	r.mu.Unlock()

	status, err := r.cfg.Client.Status(ctx, userID)

	r.mu.Lock()
	switch {
	case err == nil:
		r.state.Authenticated = status.Valid
		r.state.CloudID = status.CloudID
		r.state.ExpiresAt = status.ExpiresAt
		r.state.RememberMeEnabled = status.RememberMeEnabled
		r.state.CheckedAt = time.Now()
	case errors.Is(err, ErrNotAuthenticated):
		r.state.Authenticated = false
		r.state.CloudID = ""
		r.state.ExpiresAt = time.Time{}
		r.state.RememberMeEnabled = false
		r.state.CheckedAt = time.Now()
	default:
		r.mu.Unlock()
		r.cfg.Logger.Warn("status poll failed, keeping last known state", "error", err)
		return
	}
	state := r.state
	r.mu.Unlock()

	r.persistAndBroadcast(state)
}

// Start launches the polling loop. A second Start is a no-op so the
// background process never runs more than one active timer.
func (r *Reconciler) Start() {
	if !r.started.CompareAndSwap(false, true) {
		r.cfg.Logger.Warn("reconciler already started, ignoring second start")
		return
	}
	go r.run()
}

// Stop shuts the loop down and waits for it to exit. Safe to call when the
// reconciler never started, and safe to call twice.
func (r *Reconciler) Stop() {
	if !r.started.Load() {
		return
	}
	r.once.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *Reconciler) run() {
	defer close(r.doneCh)

	timer := time.NewTimer(r.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
			r.Reconcile(ctx)
			cancel()
			timer.Reset(r.nextDelay())
		case <-r.stopCh:
			return
		}
	}
}

// nextDelay picks the polling cadence: active near expiry or mid-login, idle
// otherwise. One timer serves both tiers.
func (r *Reconciler) nextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loginInProgress {
		return r.cfg.ActiveInterval
	}
	if r.state.Authenticated && !r.state.ExpiresAt.IsZero() &&
		time.Until(r.state.ExpiresAt) < activeWindow {
		return r.cfg.ActiveInterval
	}
	return r.cfg.IdleInterval
}

func (r *Reconciler) persistAndBroadcast(state AuthState) {
	if err := r.cfg.Store.Save(state); err != nil {
		r.cfg.Logger.Error("state persist failed", "error", err)
	}
	r.broadcaster.publish(state)
}
