// Package fakebackend is an in-process review backend for tests.
//
// It serves the same routes as the real service, issues HS256 access tokens
// and opaque rotating refresh tokens, counts every request per route, and
// lets a test script the next responses of any route.
package fakebackend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yndnr/recall-go/internal/core/domain"
)

// DefaultAccessTTL is the lifetime of minted access tokens.
const DefaultAccessTTL = 30 * time.Minute

// Response is a scripted reply. A nil Gate and zero Delay reply at once.
type Response struct {
	Status int
	Body   any
	Delay  time.Duration
	// Gate, when set, holds the reply until it is closed.
	Gate <-chan struct{}
}

// Request is a recorded incoming request.
type Request struct {
	Route         string
	Authorization string
	Body          []byte
}

type account struct {
	user     domain.User
	password string
}

// Backend is a running fake backend.
type Backend struct {
	Secret    []byte
	AccessTTL time.Duration

	// Fixture payloads returned by the data routes.
	Stats    domain.Stats
	Detailed domain.DetailedStats
	Today    domain.TodayResponse
	Heatmap  domain.Heatmap
	Patterns domain.PatternsResponse
	Problems domain.ProblemsResponse
	Analysis domain.Analysis

	server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	refresh  map[string]string // refresh token -> email
	revoked  map[string]bool   // access tokens invalidated by logout
	scripts  map[string][]Response
	requests []Request
	solves   []domain.SolveRequest
	now      func() time.Time
}

// New starts a backend and registers its shutdown with t.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Secret:    []byte("fakebackend-secret"),
		AccessTTL: DefaultAccessTTL,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		revoked:   make(map[string]bool),
		scripts:   make(map[string][]Response),
		now:       time.Now,
	}
	b.loadFixtures()
	b.server = httptest.NewServer(b.Router())
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the base URL of the backend.
func (b *Backend) URL() string {
	return b.server.URL
}

// Router builds the HTTP handler.
func (b *Backend) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/auth/signup", b.handleSignup)
	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/refresh", b.handleRefresh)
	r.Post("/auth/forgot-password", b.handleForgotPassword)
	r.With(b.authMiddleware).Post("/auth/logout", b.handleLogout)
	r.With(b.authMiddleware).Get("/auth/me", b.handleMe)

	r.Group(func(r chi.Router) {
		r.Use(b.authMiddleware)
		r.Get("/stats", b.fixture(func() any { return b.Stats }))
		r.Get("/stats/detailed", b.fixture(func() any { return b.Detailed }))
		r.Get("/today", b.fixture(func() any { return b.Today }))
		r.Get("/heatmap", b.fixture(func() any { return b.Heatmap }))
		r.Get("/patterns", b.fixture(func() any { return b.Patterns }))
		r.Get("/problems", b.fixture(func() any { return b.Problems }))
		r.Post("/analyze", b.handleAnalyze)
		r.Post("/solve", b.handleSolve)
	})

	return r
}

// AddUser registers an account and returns it.
func (b *Backend) AddUser(email, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password)
}

func (b *Backend) addUserLocked(email, password string) domain.User {
	u := domain.User{ID: uuid.NewString(), Email: email, CreatedAt: b.now().UTC().Format(time.RFC3339)}
	b.accounts[email] = &account{user: u, password: password}
	return u
}

// Script queues responses for route ("METHOD /path"). Queued responses are
// served before the real handler, one per request.
func (b *Backend) Script(route string, responses ...Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[route] = append(b.scripts[route], responses...)
}

// Calls returns how many requests reached route.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Route == route {
			n++
		}
	}
	return n
}

// Requests returns the recorded requests for route, oldest first.
func (b *Backend) Requests(route string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Request
	for _, r := range b.requests {
		if r.Route == route {
			out = append(out, r)
		}
	}
	return out
}

// Solves returns the recorded /solve submissions.
func (b *Backend) Solves() []domain.SolveRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.SolveRequest(nil), b.solves...)
}

// Mint issues an access token for email expiring after ttl, and a refresh
// token registered for rotation.
func (b *Backend) Mint(email string, ttl time.Duration) domain.TokenPair {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mintLocked(email, ttl)
}

// MintAccess issues an access token for email without a refresh token.
func (b *Backend) MintAccess(email string, ttl time.Duration) string {
	return b.sign(email, ttl)
}

func (b *Backend) mintLocked(email string, ttl time.Duration) domain.TokenPair {
	rt := "rt-" + uuid.NewString()
	b.refresh[rt] = email
	return domain.TokenPair{AccessToken: b.sign(email, ttl), RefreshToken: rt}
}

func (b *Backend) sign(email string, ttl time.Duration) string {
	now := b.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.Secret)
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}

		b.mu.Lock()
		b.requests = append(b.requests, Request{Route: route, Authorization: r.Header.Get("Authorization"), Body: body})
		var scripted *Response
		if q := b.scripts[route]; len(q) > 0 {
			scripted = &q[0]
			b.scripts[route] = q[1:]
		}
		b.mu.Unlock()

		if scripted == nil {
			next.ServeHTTP(w, r)
			return
		}
		if scripted.Gate != nil {
			select {
			case <-scripted.Gate:
			case <-r.Context().Done():
				return
			}
		}
		if scripted.Delay > 0 {
			select {
			case <-time.After(scripted.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if scripted.Body == nil && scripted.Status >= 200 && scripted.Status < 300 {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, scripted.Status, scripted.Body)
	})
}

type ctxKey struct{}

func (b *Backend) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return b.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		b.mu.Lock()
		revoked := b.revoked[raw]
		acct := b.accounts[claims.Subject]
		b.mu.Unlock()
		if revoked || acct == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, acct.user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := b.addUserLocked(req.Email, req.Password)
	writeJSON(w, http.StatusOK, domain.AuthResponse{TokenPair: b.mintLocked(req.Email, b.AccessTTL), User: u})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acct := b.accounts[req.Email]
	if acct == nil || acct.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, domain.AuthResponse{TokenPair: b.mintLocked(req.Email, b.AccessTTL), User: acct.user})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.refresh[req.RefreshToken]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(b.refresh, req.RefreshToken)
	writeJSON(w, http.StatusOK, b.mintLocked(email, b.AccessTTL))
}

func (b *Backend) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "email is required")
		return
	}
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "If that email is registered, a reset link has been sent."})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	b.revoked[raw] = true
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "Logged out"})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := r.Context().Value(ctxKey{}).(domain.User)
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var p domain.Problem
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	b.mu.Lock()
	a := b.Analysis
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, a)
}

func (b *Backend) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req domain.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if req.Quality < domain.MinQuality || req.Quality > domain.MaxQuality {
		writeDetail(w, http.StatusBadRequest, "Quality must be between 0 and 5")
		return
	}
	b.mu.Lock()
	b.solves = append(b.solves, req)
	streak := b.Stats.Streak + 1
	b.mu.Unlock()

	interval := 1
	if req.Quality >= 3 {
		interval = 6
	}
	writeJSON(w, http.StatusOK, domain.SolveResponse{
		Message:      "Problem logged",
		NextReview:   b.now().AddDate(0, 0, interval).Format(domain.DateLayout),
		IntervalDays: interval,
		Streak:       streak,
	})
}

func (b *Backend) fixture(get func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		v := get()
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, v)
	}
}

func (b *Backend) loadFixtures() {
	b.Stats = domain.Stats{Streak: 3, TotalSolved: 42, DueToday: 2, MasteryRate: 61.5}
	b.Detailed = domain.DetailedStats{
		TotalProblems:     42,
		Mastered:          12,
		MasteryPercentage: 28.6,
		CurrentStreak:     3,
		LongestStreak:     9,
		TotalReviews:      120,
		WeeklyActivity:    []domain.DayCount{{Day: "Mon", Count: 2}, {Day: "Tue", Count: 0}},
		ByDifficulty: map[string]domain.DifficultyCount{
			"Easy":   {Count: 20, Percentage: 47.6},
			"Medium": {Count: 18, Percentage: 42.9},
			"Hard":   {Count: 4, Percentage: 9.5},
		},
	}
	b.Today = domain.TodayResponse{
		DueCount: 2,
		Problems: []domain.DueProblem{
			{Title: "Two Sum", Difficulty: "Easy", URL: "https://leetcode.com/problems/two-sum/", NextReview: "2026-01-01", Status: "review"},
			{Title: "LRU Cache", Difficulty: "Medium", URL: "https://leetcode.com/problems/lru-cache/", NextReview: "2026-01-02", Status: "learning"},
		},
	}
	b.Heatmap = domain.Heatmap{"2026-01-01": 1, "2026-01-02": 4}
	b.Patterns = domain.PatternsResponse{Patterns: []domain.PatternStat{
		{Name: "Hash Map", Solved: 8, Total: 10, Percentage: 80},
		{Name: "Sliding Window", Solved: 2, Total: 8, Percentage: 25},
	}}
	b.Problems = domain.ProblemsResponse{Total: 2, Problems: []domain.TrackedProblem{
		{Title: "Two Sum", Difficulty: "Easy", Status: "mastered", Patterns: []string{"Hash Map"}},
		{Title: "LRU Cache", Difficulty: "Medium", Status: "learning", Patterns: []string{"Design"}},
	}}
	b.Analysis = domain.Analysis{
		Patterns:        []domain.DetectedPattern{{Name: "Hash Map", Confidence: 0.92}},
		TimeComplexity:  "O(n)",
		SpaceComplexity: "O(n)",
		KeyInsight:      "Store complements while scanning.",
	}
}

func readAll(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
