package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
	"github.com/yndnr/recall-go/pkg/token"
)

// Engine defaults.
const (
	DefaultAttemptTimeout   = 12 * time.Second
	DefaultMaxAttempts      = 3
	DefaultBaseDelay        = time.Second
	DefaultCallBudget       = 45 * time.Second
	DefaultRefreshThreshold = 5 * time.Minute
)

// Request describes one logical backend call.
type Request struct {
	Method       string
	Path         string
	Body         any
	AuthRequired bool
}

// Get builds an authenticated GET request.
func Get(path string) Request {
	return Request{Method: http.MethodGet, Path: path, AuthRequired: true}
}

// Post builds an authenticated POST request.
func Post(path string, body any) Request {
	return Request{Method: http.MethodPost, Path: path, Body: body, AuthRequired: true}
}

// TokenStore is the part of the credential store the engine needs.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	// PurgeIf purges the session only while token is the stored access
	// token, and reports whether it did.
	PurgeIf(ctx context.Context, token string) (bool, error)
}

// Refresher exchanges the stored refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context) (domain.TokenPair, error)
}

// EngineConfig bounds retries and deadlines.
type EngineConfig struct {
	// AttemptTimeout is the deadline of a single HTTP attempt.
	AttemptTimeout time.Duration
	// MaxAttempts bounds the attempts of one call, first try included.
	MaxAttempts int
	// BaseDelay is the first backoff; attempt n waits BaseDelay * 2^(n-1).
	BaseDelay time.Duration
	// CallBudget bounds a whole call: pre-flight refresh, attempts and
	// backoff. Zero disables the budget.
	CallBudget time.Duration
	// RefreshThreshold is how close to expiry a token is refreshed ahead.
	RefreshThreshold time.Duration
	// RateLimit caps outbound attempts per second. Zero disables it.
	RateLimit float64
	// RateBurst is the limiter burst; defaults to MaxAttempts.
	RateBurst int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AttemptTimeout:   DefaultAttemptTimeout,
		MaxAttempts:      DefaultMaxAttempts,
		BaseDelay:        DefaultBaseDelay,
		CallBudget:       DefaultCallBudget,
		RefreshThreshold: DefaultRefreshThreshold,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = d.RefreshThreshold
	}
	if c.RateBurst <= 0 {
		c.RateBurst = c.MaxAttempts
	}
	return c
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine executes authenticated backend calls with proactive refresh,
// bounded retry, and per-attempt deadlines.
type Engine struct {
	http      *HTTPClient
	tokens    TokenStore
	refresher Refresher
	cfg       EngineConfig
	limiter   *rate.Limiter
	metrics   *metric.Registry
	logger    *slog.Logger
	sleep     Sleeper
	now       func() time.Time

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int

	// expireMu serializes expiry handling; lastExpired is the access token
	// whose expiry listeners were last told about.
	expireMu    sync.Mutex
	lastExpired string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRefresher enables pre-flight refresh.
func WithRefresher(r Refresher) EngineOption {
	return func(e *Engine) {
		e.refresher = r
	}
}

// WithMetrics records attempts and outcomes.
func WithMetrics(m *metric.Registry) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) EngineOption {
	return func(e *Engine) {
		e.sleep = s
	}
}

// WithClock replaces the clock used for the expiry check.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine.
func NewEngine(client *HTTPClient, tokens TokenStore, cfg EngineConfig, opts ...EngineOption) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		http:      client,
		tokens:    tokens,
		cfg:       cfg,
		logger:    slog.Default(),
		sleep:     sleepContext,
		now:       time.Now,
		listeners: make(map[int]func()),
	}
	if cfg.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnSessionExpired registers fn to run once per session the backend
// rejected, after that session was purged. It returns a function that
// unregisters fn.
func (e *Engine) OnSessionExpired(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// Client returns the underlying single-shot HTTP client.
func (e *Engine) Client() *HTTPClient {
	return e.http
}

// Execute runs req and decodes a successful body into out (nil discards it).
//
// Errors are domain errors classified by domain.KindOf; a cancelled ctx
// returns the context error.
func (e *Engine) Execute(ctx context.Context, req Request, out any) error {
	start := time.Now()
	endpoint := endpointLabel(req.Path)

	callerCtx := ctx
	if logger.RequestIDFromContext(ctx) == "" {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
	}
	if e.cfg.CallBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallBudget)
		defer cancel()
	}
	log := e.logger.With("method", req.Method, "endpoint", endpoint, "request_id", logger.RequestIDFromContext(ctx))

	err := e.execute(callerCtx, ctx, req, out, log)
	e.metrics.ObserveRequest(endpoint, outcomeLabel(callerCtx, err), time.Since(start))
	return err
}

func (e *Engine) execute(callerCtx, ctx context.Context, req Request, out any, log *slog.Logger) error {
	bearer := ""
	if req.AuthRequired {
		var err error
		bearer, err = e.preflight(ctx, log)
		if err != nil {
			if callerCtx.Err() != nil {
				return callerCtx.Err()
			}
			return err
		}
	}

	endpoint := endpointLabel(req.Path)
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.cfg.BaseDelay << (attempt - 1)
			if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
				log.Debug("call budget leaves no room for another attempt", "delay", delay)
				break
			}
			e.metrics.ObserveRetry(endpoint)
			log.Debug("retrying", "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := e.sleep(ctx, delay); err != nil {
				if callerCtx.Err() != nil {
					return callerCtx.Err()
				}
				break
			}
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				if callerCtx.Err() != nil {
					return callerCtx.Err()
				}
				lastErr = domain.ErrTransient.WithDetails("rate limit wait").WithCause(err)
				break
			}
		}

		attempts++
		err := e.attempt(ctx, req, bearer, out)
		if err == nil {
			e.metrics.ObserveAttempt(endpoint, metric.ResultOK)
			return nil
		}
		if callerCtx.Err() != nil {
			e.metrics.ObserveAttempt(endpoint, metric.ResultCanceled)
			return callerCtx.Err()
		}

		if !req.AuthRequired && domain.KindOf(err) == domain.KindSessionExpired {
			// No session was presented, so a 401 means bad credentials.
			err = asRejected(err)
		}

		switch domain.KindOf(err) {
		case domain.KindSessionExpired:
			e.metrics.ObserveAttempt(endpoint, metric.ResultExpired)
			log.Info("backend rejected session")
			e.expire(ctx, bearer, metric.PurgeUnauthorized, log)
			return err
		case domain.KindClientRejected:
			e.metrics.ObserveAttempt(endpoint, metric.ResultRejected)
			return err
		case domain.KindTransient:
			e.metrics.ObserveAttempt(endpoint, metric.ResultTransient)
			lastErr = err
		default:
			return err
		}

		if ctx.Err() != nil {
			break
		}
	}

	log.Warn("giving up", "attempts", attempts, "error", lastErr)
	return domain.ErrRetriesExhausted.
		WithDetails(fmt.Sprintf("%s %s failed after %d attempts", req.Method, req.Path, attempts)).
		WithCause(lastErr)
}

// preflight returns the bearer to use, refreshing it first when it is
// about to expire.
func (e *Engine) preflight(ctx context.Context, log *slog.Logger) (string, error) {
	bearer, err := e.tokens.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	if bearer == "" || e.refresher == nil {
		return bearer, nil
	}
	if !token.ExpiresWithin(bearer, e.cfg.RefreshThreshold, e.now()) {
		return bearer, nil
	}

	log.Debug("access token near expiry, refreshing", "token_fp", token.Fingerprint(bearer))
	pair, err := e.refresher.Refresh(ctx)
	switch {
	case err == nil:
		return pair.AccessToken, nil
	case errors.Is(err, domain.ErrRefreshDenied):
		if e.markExpired(bearer) {
			e.notifyExpired()
		}
		return "", domain.ErrSessionExpired.WithDetails("refresh denied").WithCause(err)
	case ctx.Err() != nil:
		return "", domain.ErrRetriesExhausted.WithDetails("call budget exhausted during refresh").WithCause(ctx.Err())
	default:
		log.Warn("refresh failed, continuing with current token", "error", err)
		return bearer, nil
	}
}

func (e *Engine) attempt(ctx context.Context, req Request, bearer string, out any) error {
	actx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()

	resp, err := e.http.Do(actx, req.Method, req.Path, req.Body, bearer)
	if err != nil {
		if errors.Is(err, errEncodeBody) {
			return domain.ErrInvalidArgument.WithDetails("request body").WithCause(err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.ErrTransient.WithDetails("request timed out").WithCause(err)
		}
		return domain.ErrTransient.WithDetails("network error").WithCause(err)
	}
	return ParseResponse(resp, out)
}

// expire purges the session the failed request was made with and notifies
// listeners. A session stored in the meantime, e.g. by a new login, is kept
// and nobody is notified. Concurrent rejections of one session purge and
// notify once.
func (e *Engine) expire(ctx context.Context, used, reason string, log *slog.Logger) {
	e.expireMu.Lock()
	purged, err := e.tokens.PurgeIf(context.WithoutCancel(ctx), used)
	if purged {
		e.lastExpired = used
	}
	e.expireMu.Unlock()

	switch {
	case err != nil:
		log.Error("purge credentials", "error", err)
	case !purged:
		log.Debug("rejected session no longer stored, nothing to purge", "token_fp", token.Fingerprint(used))
	default:
		e.metrics.ObservePurge(reason)
		e.notifyExpired()
	}
}

// markExpired records tok as expired and reports whether it was not
// already.
func (e *Engine) markExpired(tok string) bool {
	e.expireMu.Lock()
	defer e.expireMu.Unlock()
	if tok == e.lastExpired {
		return false
	}
	e.lastExpired = tok
	return true
}

func (e *Engine) notifyExpired() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func asRejected(err error) error {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return err
	}
	out := domain.ErrClientRejected.WithStatus(de.Status)
	if de.Details != "" {
		out = out.WithDetails(de.Details)
	}
	return out
}

func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

func outcomeLabel(callerCtx context.Context, err error) string {
	if err == nil {
		return metric.ResultOK
	}
	if callerCtx.Err() != nil {
		return metric.ResultCanceled
	}
	switch domain.KindOf(err) {
	case domain.KindSessionExpired:
		return metric.ResultExpired
	case domain.KindClientRejected:
		return metric.ResultRejected
	case domain.KindRetriesExhausted:
		return metric.ResultExhausted
	default:
		return metric.ResultTransient
	}
}
