// Package credential persists the session and user settings on top of a
// storage.KV.
//
// The session is only ever replaced as a whole or purged as a whole:
// SaveSession and ReplaceTokens write both tokens in one batch, and Purge
// removes the token, refresh token, and user in one batch. PurgeIf does the
// same only while a given access token is still the stored one.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/storage"
	"github.com/yndnr/recall-go/pkg/crypto/adaptive"
	"github.com/yndnr/recall-go/pkg/token"
)

// Record keys under the recall/ namespace.
const (
	KeyToken        = "recall/token"
	KeyRefreshToken = "recall/refreshToken"
	KeyUser         = "recall/user"
	KeySettings     = "recall/settings"
)

// Store is the credential store.
type Store struct {
	kv     storage.KV
	sealer *adaptive.Sealer
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithSealer encrypts token values at rest.
func WithSealer(s *adaptive.Sealer) Option {
	return func(st *Store) {
		st.sealer = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) {
		st.logger = l
	}
}

// New creates a Store over kv.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored session, or nil when no access token is stored.
func (s *Store) Load(ctx context.Context) (*domain.Session, error) {
	access, err := s.readToken(ctx, KeyToken)
	if err != nil || access == "" {
		return nil, err
	}
	refresh, err := s.readToken(ctx, KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.User(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// AccessToken returns the stored access token, or "" when none.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.readToken(ctx, KeyToken)
}

// RefreshToken returns the stored refresh token, or "" when none.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.readToken(ctx, KeyRefreshToken)
}

// User returns the stored user profile, or nil when none.
func (s *Store) User(ctx context.Context) (*domain.User, error) {
	raw, err := s.kv.Get(ctx, []byte(KeyUser))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("read user").WithCause(err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, domain.ErrStorage.WithDetails("decode user").WithCause(err)
	}
	return &u, nil
}

// SaveSession replaces the whole session. A nil user clears the stored profile.
func (s *Store) SaveSession(ctx context.Context, pair domain.TokenPair, user *domain.User) error {
	muts, err := s.tokenMutations(pair)
	if err != nil {
		return err
	}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return domain.ErrStorage.WithDetails("encode user").WithCause(err)
		}
		muts = append(muts, storage.Put(KeyUser, raw))
	} else {
		muts = append(muts, storage.Remove(KeyUser))
	}

	if err := s.kv.Write(ctx, muts...); err != nil {
		return domain.ErrStorage.WithDetails("save session").WithCause(err)
	}
	s.logger.Debug("session saved", "token_fp", token.Fingerprint(pair.AccessToken))
	return nil
}

// ReplaceTokens swaps in a refreshed token pair, keeping the user.
func (s *Store) ReplaceTokens(ctx context.Context, pair domain.TokenPair) error {
	muts, err := s.tokenMutations(pair)
	if err != nil {
		return err
	}
	if err := s.kv.Write(ctx, muts...); err != nil {
		return domain.ErrStorage.WithDetails("replace tokens").WithCause(err)
	}
	s.logger.Debug("tokens replaced", "token_fp", token.Fingerprint(pair.AccessToken))
	return nil
}

// Purge removes the token, refresh token and user. Settings are kept.
func (s *Store) Purge(ctx context.Context) error {
	err := s.kv.Write(ctx,
		storage.Remove(KeyToken),
		storage.Remove(KeyRefreshToken),
		storage.Remove(KeyUser),
	)
	if err != nil {
		return domain.ErrStorage.WithDetails("purge session").WithCause(err)
	}
	s.logger.Debug("session purged")
	return nil
}

// PurgeIf purges the session only when tok is the stored access token. The
// check and the delete run in one transaction, so a session stored by a
// concurrent login or refresh survives. It reports whether it purged.
func (s *Store) PurgeIf(ctx context.Context, tok string) (bool, error) {
	if tok == "" {
		return false, nil
	}

	var purged bool
	err := s.kv.Update(ctx, func(txn storage.Txn) error {
		purged = false
		raw, err := txn.Get([]byte(KeyToken))
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.open(KeyToken, raw) != tok {
			return nil
		}
		for _, key := range []string{KeyToken, KeyRefreshToken, KeyUser} {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		purged = true
		return nil
	})
	if err != nil {
		return false, domain.ErrStorage.WithDetails("purge session").WithCause(err)
	}
	if purged {
		s.logger.Debug("session purged", "token_fp", token.Fingerprint(tok))
	} else {
		s.logger.Debug("stored session differs, not purged", "token_fp", token.Fingerprint(tok))
	}
	return purged, nil
}

// Settings returns the stored settings layered over the defaults.
func (s *Store) Settings(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	raw, err := s.kv.Get(ctx, []byte(KeySettings))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return settings, nil
	}
	if err != nil {
		return settings, domain.ErrStorage.WithDetails("read settings").WithCause(err)
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Warn("stored settings unreadable, using defaults", "error", err)
		return domain.DefaultSettings(), nil
	}
	return settings, nil
}

// SaveSettings validates and stores settings.
func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return domain.ErrStorage.WithDetails("encode settings").WithCause(err)
	}
	if err := s.kv.Set(ctx, []byte(KeySettings), raw); err != nil {
		return domain.ErrStorage.WithDetails("save settings").WithCause(err)
	}
	return nil
}

// BackendOverride returns the user's backend URL override, or "".
func (s *Store) BackendOverride(ctx context.Context) (string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return "", err
	}
	return settings.BackendURL, nil
}

func (s *Store) tokenMutations(pair domain.TokenPair) ([]storage.Mutation, error) {
	access, err := s.seal(KeyToken, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.seal(KeyRefreshToken, pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	muts := []storage.Mutation{storage.Put(KeyToken, []byte(access))}
	if pair.RefreshToken != "" {
		muts = append(muts, storage.Put(KeyRefreshToken, []byte(refresh)))
	} else {
		muts = append(muts, storage.Remove(KeyRefreshToken))
	}
	return muts, nil
}

func (s *Store) seal(name, value string) (string, error) {
	if s.sealer == nil || value == "" {
		return value, nil
	}
	v, err := s.sealer.Seal(name, value)
	if err != nil {
		return "", domain.ErrStorage.WithDetails("seal " + name).WithCause(err)
	}
	return v, nil
}

func (s *Store) readToken(ctx context.Context, key string) (string, error) {
	raw, err := s.kv.Get(ctx, []byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", domain.ErrStorage.WithDetails(fmt.Sprintf("read %s", key)).WithCause(err)
	}

	return s.open(key, raw), nil
}

// open returns the plain token held in raw, or "" when it cannot be
// unsealed.
func (s *Store) open(key string, raw []byte) string {
	v := string(raw)
	if s.sealer == nil || !adaptive.IsSealed(v) {
		return v
	}
	plain, err := s.sealer.Open(key, v)
	if err != nil {
		// Key file replaced or value corrupted: the session is unrecoverable.
		s.logger.Warn("stored token unreadable, treating as logged out", "key", key, "error", err)
		return ""
	}
	return plain
}
