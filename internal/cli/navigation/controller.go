package navigation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/core/service"
)

// Sessions is the session lifecycle. service.AuthService implements it.
type Sessions interface {
	Session(ctx context.Context) (*domain.Session, error)
	Me(ctx context.Context) (*domain.User, error)
	Login(ctx context.Context, creds domain.Credentials) (*domain.User, error)
	Signup(ctx context.Context, creds domain.Credentials, confirm string) (*domain.User, error)
	Logout(ctx context.Context) error
}

// Loader fetches screen data. service.ReviewService implements it.
type Loader interface {
	LoadDashboard(ctx context.Context) *service.Dashboard
	Problems(ctx context.Context) (*domain.ProblemsResponse, error)
	DetailedStats(ctx context.Context) (*domain.DetailedStats, error)
	Patterns(ctx context.Context) (*domain.PatternsResponse, error)
}

// Purger clears the stored session.
type Purger interface {
	Purge(ctx context.Context) error
}

// ExpirySource reports sessions the backend rejected.
// connection.Engine implements it.
type ExpirySource interface {
	OnSessionExpired(fn func()) (unsubscribe func())
}

// Config wires a Controller.
type Config struct {
	Sessions Sessions
	Loader   Loader
	Store    Purger
	Expiry   ExpirySource
	Logger   *slog.Logger
}

// View is the load state of one screen.
type View struct {
	Loading bool
	Err     error
	Data    any
	gen     uint64
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State  State
	Screen Screen // current screen, or the remembered one in StateSettings
	User   *domain.User
	View   View // view of Screen
}

// Controller is the session and navigation state machine.
type Controller struct {
	sessions Sessions
	loader   Loader
	store    Purger
	logger   *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup

	mu       sync.Mutex
	state    State
	screen   Screen
	user     *domain.User
	epoch    uint64
	views    map[Screen]*View
	onChange func(Snapshot)
}

// New creates a Controller in StateLoading and subscribes it to session
// expiry.
func New(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		sessions: cfg.Sessions,
		loader:   cfg.Loader,
		store:    cfg.Store,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateLoading,
		views:    make(map[Screen]*View),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if cfg.Expiry != nil {
		c.unsubscribe = cfg.Expiry.OnSessionExpired(c.handleExpired)
	}
	return c
}

// OnChange registers fn to run after every transition and applied load.
// fn runs without the controller lock held.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Init validates the stored session. With no stored token it moves to
// Unauthenticated without a request; otherwise it makes exactly one call to
// /auth/me and either enters the primary screen or purges and moves to
// Unauthenticated, returning the failure.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoading {
		defer c.mu.Unlock()
		return invalid(eventInit, c.state)
	}
	c.mu.Unlock()

	sess, err := c.sessions.Session(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotLoggedIn) {
		c.logger.Warn("read stored session", "error", err)
	}
	if sess == nil {
		c.transition(func() { c.state = StateUnauthenticated })
		return nil
	}

	user, err := c.sessions.Me(ctx)
	if err != nil {
		c.logger.Info("stored session rejected", "error", err)
		if perr := c.store.Purge(context.WithoutCancel(ctx)); perr != nil {
			c.logger.Error("purge rejected session", "error", perr)
		}
		c.transition(func() { c.resetLocked(StateUnauthenticated) })
		return err
	}

	c.transition(func() {
		c.resetLocked(StateAuthenticated)
		c.user = user
	})
	return nil
}

// Login authenticates and enters the primary screen.
func (c *Controller) Login(ctx context.Context, creds domain.Credentials) error {
	return c.authenticate(func() (*domain.User, error) {
		return c.sessions.Login(ctx, creds)
	})
}

// Signup creates an account and enters the primary screen.
func (c *Controller) Signup(ctx context.Context, creds domain.Credentials, confirm string) error {
	return c.authenticate(func() (*domain.User, error) {
		return c.sessions.Signup(ctx, creds, confirm)
	})
}

func (c *Controller) authenticate(fn func() (*domain.User, error)) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateUnauthenticated {
		return invalid(eventLogin, state)
	}

	user, err := fn()
	if err != nil {
		return err
	}

	var terr error
	c.transition(func() {
		if c.state != StateUnauthenticated {
			terr = invalid(eventLogin, c.state)
			return
		}
		c.resetLocked(StateAuthenticated)
		c.user = user
	})
	return terr
}

// Logout ends the session. The local session is cleared even when the
// backend cannot be reached.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateAuthenticated && state != StateSettings {
		return invalid(eventLogout, state)
	}

	err := c.sessions.Logout(ctx)
	c.transition(func() { c.resetLocked(StateUnauthenticated) })
	return err
}

// SessionExpired handles a session rejected by the backend.
func (c *Controller) SessionExpired() error {
	var err error
	c.transition(func() {
		if c.state != StateAuthenticated && c.state != StateSettings {
			err = invalid(eventExpire, c.state)
			return
		}
		c.resetLocked(StateUnauthenticated)
	})
	return err
}

func (c *Controller) handleExpired() {
	if err := c.SessionExpired(); err != nil {
		c.logger.Debug("session expiry ignored", "error", err)
		return
	}
	c.logger.Info("session expired")
}

// Navigate switches to screen. The dashboard reloads on every visit; the
// other tabs load only when nothing is cached.
func (c *Controller) Navigate(screen Screen) error {
	var err error
	c.transition(func() {
		if c.state != StateAuthenticated {
			err = invalid(eventNavigate, c.state)
			return
		}
		c.screen = screen
		v := c.views[screen]
		switch {
		case !screen.Loads():
		case !screen.Cached():
			c.startLoadLocked(screen)
		case v == nil || (v.Data == nil && !v.Loading):
			c.startLoadLocked(screen)
		}
	})
	return err
}

// OpenSettings shows the settings overlay, remembering the current screen.
func (c *Controller) OpenSettings() error {
	var err error
	c.transition(func() {
		if c.state != StateAuthenticated {
			err = invalid(eventSettings, c.state)
			return
		}
		c.state = StateSettings
	})
	return err
}

// Back closes the settings overlay and returns to the remembered screen.
func (c *Controller) Back() error {
	var err error
	c.transition(func() {
		if c.state != StateSettings {
			err = invalid(eventBack, c.state)
			return
		}
		c.state = StateAuthenticated
	})
	return err
}

// Retry reloads screen regardless of its cache.
func (c *Controller) Retry(screen Screen) error {
	var err error
	c.transition(func() {
		if c.state != StateAuthenticated || !screen.Loads() {
			err = invalid(eventRetry, c.state)
			return
		}
		c.startLoadLocked(screen)
	})
	return err
}

// Settle waits for every load started so far.
func (c *Controller) Settle() {
	c.wg.Wait()
}

// Close unsubscribes from expiry and cancels outstanding loads.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.cancel()
	c.wg.Wait()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the view of screen and whether one exists.
func (c *Controller) View(screen Screen) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[screen]
	if !ok {
		return View{}, false
	}
	return *v, true
}

// Problems returns the cached problems filtered by f.
func (c *Controller) Problems(f domain.ProblemFilter) ([]domain.TrackedProblem, bool) {
	v, ok := c.View(ScreenProblems)
	if !ok {
		return nil, false
	}
	resp, ok := v.Data.(*domain.ProblemsResponse)
	if !ok || resp == nil {
		return nil, false
	}
	return f.Apply(resp.Problems), true
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{State: c.state, Screen: c.screen, User: c.user}
	if v, ok := c.views[c.screen]; ok {
		s.View = *v
	}
	return s
}

// resetLocked starts a new session epoch: cached views, user and screen are
// dropped, and results of loads still in flight will be discarded.
func (c *Controller) resetLocked(next State) {
	c.epoch++
	c.views = make(map[Screen]*View)
	c.user = nil
	c.screen = ScreenPrimaryAction
	c.state = next
}

func (c *Controller) startLoadLocked(screen Screen) {
	v := c.views[screen]
	if v == nil {
		v = &View{}
		c.views[screen] = v
	}
	v.gen++
	v.Loading = true
	v.Err = nil

	epoch, gen := c.epoch, v.gen
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		data, err := c.fetch(screen)
		c.apply(screen, epoch, gen, data, err)
	}()
}

func (c *Controller) fetch(screen Screen) (any, error) {
	ctx := c.ctx
	switch screen {
	case ScreenDashboard:
		d := c.loader.LoadDashboard(ctx)
		if d.Failed() {
			return d, d.FirstError()
		}
		return d, nil
	case ScreenProblems:
		return c.loader.Problems(ctx)
	case ScreenStats:
		return c.loader.DetailedStats(ctx)
	case ScreenPatterns:
		return c.loader.Patterns(ctx)
	}
	return nil, nil
}

// apply writes a load result if its session epoch and load generation are
// still current. It never changes the navigation state.
func (c *Controller) apply(screen Screen, epoch, gen uint64, data any, err error) {
	c.mu.Lock()
	v, ok := c.views[screen]
	if c.epoch != epoch || !ok || v.gen != gen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale load", "screen", screen.String())
		return
	}
	v.Loading = false
	v.Err = err
	if err == nil {
		v.Data = data
	} else if d, ok := data.(*service.Dashboard); ok && d != nil && !d.Failed() {
		v.Data = d
	}
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug("screen load failed", "screen", screen.String(), "error", err)
	}
	if fn != nil {
		fn(snap)
	}
}

// transition runs fn under the lock and notifies the change listener.
func (c *Controller) transition(fn func()) {
	c.mu.Lock()
	fn()
	snap, cb := c.snapshotLocked(), c.onChange
	c.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}
