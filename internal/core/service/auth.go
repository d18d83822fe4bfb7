package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
)

// Executor runs backend calls. connection.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, req connection.Request, out any) error
}

// SessionRepository is the credential store as seen by AuthService.
type SessionRepository interface {
	Load(ctx context.Context) (*domain.Session, error)
	SaveSession(ctx context.Context, pair domain.TokenPair, user *domain.User) error
	Purge(ctx context.Context) error
}

// AuthService handles the session lifecycle against the backend.
type AuthService struct {
	exec    Executor
	store   SessionRepository
	metrics *metric.Registry
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService. metrics may be nil.
func NewAuthService(exec Executor, store SessionRepository, metrics *metric.Registry, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{exec: exec, store: store, metrics: metrics, logger: logger}
}

// Login validates creds, authenticates, and stores the new session.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, "/auth/login", creds)
}

// Signup validates the form locally, creates the account, and stores the
// new session. No request is sent when validation fails.
func (s *AuthService) Signup(ctx context.Context, creds domain.Credentials, confirm string) (*domain.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := creds.ValidateSignup(confirm); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, "/auth/signup", creds)
}

func (s *AuthService) authenticate(ctx context.Context, path string, creds domain.Credentials) (*domain.User, error) {
	var resp domain.AuthResponse
	req := connection.Request{Method: http.MethodPost, Path: path, Body: creds}
	if err := s.exec.Execute(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.TokenPair.Valid() {
		return nil, domain.ErrClientRejected.WithStatus(http.StatusOK).WithDetails("authentication response carried no tokens")
	}
	if err := s.store.SaveSession(ctx, resp.TokenPair, &resp.User); err != nil {
		return nil, err
	}
	s.logger.Info("logged in", "email", resp.User.Email)
	return &resp.User, nil
}

// Logout tells the backend best-effort and always purges the local session.
func (s *AuthService) Logout(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("read session before logout", "error", err)
	}
	if sess != nil {
		if err := s.exec.Execute(ctx, connection.Post("/auth/logout", nil), nil); err != nil {
			s.logger.Debug("remote logout failed", "error", err)
		}
	}
	if err := s.store.Purge(ctx); err != nil {
		return err
	}
	s.metrics.ObservePurge(metric.PurgeLogout)
	return nil
}

// Me fetches the profile of the current session. The store is left alone:
// only login, refresh and purge change the session.
func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := s.exec.Execute(ctx, connection.Get("/auth/me"), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Session returns the stored session, or ErrNotLoggedIn.
func (s *AuthService) Session(ctx context.Context) (*domain.Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return sess, nil
}

// ForgotPassword requests a reset mail and returns the backend's message.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", domain.ErrMissingArgument.WithDetails("Please enter your email")
	}
	var resp domain.MessageResponse
	req := connection.Request{Method: http.MethodPost, Path: "/auth/forgot-password", Body: domain.ForgotPasswordRequest{Email: email}}
	if err := s.exec.Execute(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
