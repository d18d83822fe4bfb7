package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
	"github.com/yndnr/recall-go/pkg/token"
)

// refreshPath is the backend route exchanging a refresh token.
const refreshPath = "/auth/refresh"

// DefaultRefreshTimeout bounds the single refresh exchange.
const DefaultRefreshTimeout = 12 * time.Second

// TokenRepository is the credential store as seen by the refresher.
type TokenRepository interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	ReplaceTokens(ctx context.Context, pair domain.TokenPair) error
	PurgeIf(ctx context.Context, token string) (bool, error)
}

// Refresher exchanges the stored refresh token for a new pair.
//
// Concurrent callers share one in-flight exchange. The exchange itself is
// never retried.
type Refresher struct {
	client    *connection.HTTPClient
	store     TokenRepository
	timeout   time.Duration
	threshold time.Duration
	metrics   *metric.Registry
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefreshTimeout sets the deadline of the refresh exchange.
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRefreshThreshold sets how close to expiry the stored token must be
// for an exchange to be worth sending.
func WithRefreshThreshold(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.threshold = d
		}
	}
}

// WithRefreshMetrics records refresh outcomes and purges.
func WithRefreshMetrics(m *metric.Registry) RefresherOption {
	return func(r *Refresher) {
		r.metrics = m
	}
}

// WithRefreshLogger sets the logger.
func WithRefreshLogger(l *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		r.logger = l
	}
}

// NewRefresher creates a Refresher.
func NewRefresher(client *connection.HTTPClient, store TokenRepository, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		client:    client,
		store:     store,
		timeout:   DefaultRefreshTimeout,
		threshold: connection.DefaultRefreshThreshold,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh runs one refresh cycle, or joins the one already running.
//
// A denial purges the session the exchange started from and returns
// ErrRefreshDenied. Network failures
// return ErrTransient and leave the store untouched.
func (r *Refresher) Refresh(ctx context.Context) (domain.TokenPair, error) {
	// The shared exchange must not die with whichever caller started it.
	ch := r.group.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.exchange(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.TokenPair{}, res.Err
		}
		return res.Val.(domain.TokenPair), nil
	case <-ctx.Done():
		return domain.TokenPair{}, ctx.Err()
	}
}

func (r *Refresher) exchange(ctx context.Context) (domain.TokenPair, error) {
	access, err := r.store.AccessToken(ctx)
	if err != nil {
		return domain.TokenPair{}, err
	}
	current, err := r.store.RefreshToken(ctx)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if current == "" {
		return domain.TokenPair{}, r.deny(ctx, access, domain.ErrRefreshDenied.WithDetails("no refresh token stored"))
	}

	// A caller that read the old token just before the previous exchange
	// finished gets the pair that exchange stored.
	if access != "" && !token.ExpiresWithin(access, r.threshold, r.now()) {
		return domain.TokenPair{AccessToken: access, RefreshToken: current}, nil
	}

	resp, err := r.client.Post(ctx, refreshPath, domain.RefreshRequest{RefreshToken: current})
	if err != nil {
		r.metrics.ObserveRefresh(metric.ResultTransient)
		r.logger.Warn("refresh request failed", "error", err)
		return domain.TokenPair{}, domain.ErrTransient.WithDetails("refresh request failed").WithCause(err)
	}

	var pair domain.TokenPair
	if err := connection.ParseResponse(resp, &pair); err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) && de.Status >= 200 && de.Status < 300 {
			r.metrics.ObserveRefresh(metric.ResultTransient)
			return domain.TokenPair{}, err
		}
		return domain.TokenPair{}, r.deny(ctx, access, denial(err))
	}
	if pair.AccessToken == "" {
		return domain.TokenPair{}, r.deny(ctx, access, domain.ErrRefreshDenied.WithDetails("response carried no access token"))
	}
	if pair.RefreshToken == "" {
		// Non-rotating backends keep the old refresh token valid.
		pair.RefreshToken = current
	}

	if err := r.store.ReplaceTokens(ctx, pair); err != nil {
		return domain.TokenPair{}, err
	}
	r.metrics.ObserveRefresh(metric.ResultOK)
	r.logger.Debug("session refreshed", "token_fp", token.Fingerprint(pair.AccessToken))
	return pair, nil
}

// deny purges the session whose access token was used, unless a login
// replaced it while the exchange was in flight.
func (r *Refresher) deny(ctx context.Context, used string, cause *domain.DomainError) error {
	r.metrics.ObserveRefresh(metric.ResultDenied)
	r.logger.Info("refresh denied, purging session", "error", cause)
	purged, err := r.store.PurgeIf(ctx, used)
	switch {
	case err != nil:
		r.logger.Error("purge after refresh denial", "error", err)
	case purged:
		r.metrics.ObservePurge(metric.PurgeRefreshDenied)
	}
	return cause
}

// denial converts a rejected refresh response into ErrRefreshDenied. The
// response error is not wrapped: a 401 here must not read as an expired
// request session.
func denial(err error) *domain.DomainError {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return domain.ErrRefreshDenied.WithDetails(err.Error())
	}
	out := domain.ErrRefreshDenied.WithStatus(de.Status)
	if de.Details != "" {
		out = out.WithDetails(de.Details)
	}
	return out
}
