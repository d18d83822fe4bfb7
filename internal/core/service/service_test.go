package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/core/credential"
	"github.com/yndnr/recall-go/internal/storage/memory"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
	"github.com/yndnr/recall-go/internal/tests/fakebackend"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "secret1"
)

// harness wires the real engine, refresher and store against a fake backend.
type harness struct {
	be        *fakebackend.Backend
	kv        *memory.Store
	store     *credential.Store
	client    *connection.HTTPClient
	engine    *connection.Engine
	refresher *Refresher
	auth      *AuthService
	reviews   *ReviewService
	metrics   *metric.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{be: fakebackend.New(t), kv: memory.New(), metrics: metric.NewRegistry()}
	h.be.AddUser(testEmail, testPassword)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.store = credential.New(h.kv, credential.WithLogger(log))
	h.client = connection.NewHTTPClient(connection.NewManager(h.be.URL(), h.store))
	h.refresher = NewRefresher(h.client, h.store, WithRefreshMetrics(h.metrics), WithRefreshLogger(log))
	h.engine = connection.NewEngine(h.client, h.store, connection.DefaultEngineConfig(),
		connection.WithRefresher(h.refresher),
		connection.WithMetrics(h.metrics),
		connection.WithEngineLogger(log),
		connection.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	)
	h.auth = NewAuthService(h.engine, h.store, h.metrics, log)
	h.reviews = NewReviewService(h.engine)
	return h
}

// loginWithTTL stores a session whose access token expires after ttl.
func (h *harness) loginWithTTL(t *testing.T, ttl time.Duration) {
	t.Helper()
	pair := h.be.Mint(testEmail, ttl)
	if err := h.store.SaveSession(context.Background(), pair, nil); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
}

func (h *harness) accessToken(t *testing.T) string {
	t.Helper()
	tok, err := h.store.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	return tok
}
