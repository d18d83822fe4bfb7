package credential

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/storage/memory"
)

func TestStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := New(kv)

	sess, err := s.Load(ctx)
	if err != nil || sess != nil {
		t.Fatalf("Load() on empty store = %v, %v; want nil, nil", sess, err)
	}

	user := &domain.User{ID: "u1", Email: "a@example.com"}
	if err := s.SaveSession(ctx, domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, user); err != nil {
		t.Fatal(err)
	}

	sess, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.AccessToken != "acc" || sess.RefreshToken != "ref" || sess.User.Email != "a@example.com" {
		t.Errorf("Load() = %+v", sess)
	}

	before := kv.Writes()
	if err := s.ReplaceTokens(ctx, domain.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}); err != nil {
		t.Fatal(err)
	}
	if kv.Writes()-before != 1 {
		t.Errorf("ReplaceTokens used %d writes, want 1", kv.Writes()-before)
	}
	if tok, _ := s.AccessToken(ctx); tok != "acc2" {
		t.Errorf("AccessToken() = %q, want acc2", tok)
	}
	if u, _ := s.User(ctx); u == nil || u.ID != "u1" {
		t.Errorf("ReplaceTokens dropped the user: %+v", u)
	}

	before = kv.Writes()
	if err := s.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if kv.Writes()-before != 1 {
		t.Errorf("Purge used %d writes, want 1", kv.Writes()-before)
	}
	if sess, _ := s.Load(ctx); sess != nil {
		t.Errorf("Load() after purge = %+v, want nil", sess)
	}
	if u, _ := s.User(ctx); u != nil {
		t.Errorf("User() after purge = %+v, want nil", u)
	}
}

func TestStore_PurgeKeepsSettings(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	settings := domain.DefaultSettings()
	settings.DailyGoal = 8
	if err := s.SaveSettings(ctx, settings); err != nil {
		t.Fatal(err)
	}
	s.SaveSession(ctx, domain.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil)
	s.Purge(ctx)

	got, err := s.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.DailyGoal != 8 {
		t.Errorf("DailyGoal = %d after purge, want 8", got.DailyGoal)
	}
}

func TestStore_SettingsDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	got, err := s.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != domain.DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}

	bad := domain.DefaultSettings()
	bad.Theme = "neon"
	if err := s.SaveSettings(ctx, bad); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("SaveSettings(bad theme) = %v, want validation error", err)
	}

	withURL := domain.DefaultSettings()
	withURL.BackendURL = "http://127.0.0.1:9000"
	s.SaveSettings(ctx, withURL)
	if o, _ := s.BackendOverride(ctx); o != "http://127.0.0.1:9000" {
		t.Errorf("BackendOverride() = %q", o)
	}
}

func TestStore_Sealed(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	sealer, err := NewSealerFromFile(filepath.Join(t.TempDir(), "keyfile"))
	if err != nil {
		t.Fatal(err)
	}
	s := New(kv, WithSealer(sealer))

	if err := s.SaveSession(ctx, domain.TokenPair{AccessToken: "secret-access", RefreshToken: "secret-refresh"}, nil); err != nil {
		t.Fatal(err)
	}

	raw, _ := kv.Get(ctx, []byte(KeyRefreshToken))
	if strings.Contains(string(raw), "secret-refresh") {
		t.Error("refresh token stored in plaintext")
	}

	if tok, _ := s.RefreshToken(ctx); tok != "secret-refresh" {
		t.Errorf("RefreshToken() = %q", tok)
	}

	t.Run("unsealed store cannot read", func(t *testing.T) {
		other, _ := NewSealerFromFile(filepath.Join(t.TempDir(), "other"))
		tok, err := New(kv, WithSealer(other)).AccessToken(ctx)
		if err != nil || tok != "" {
			t.Errorf("AccessToken() with wrong key = %q, %v; want empty", tok, err)
		}
	})

	t.Run("plaintext values still readable", func(t *testing.T) {
		kv.Set(ctx, []byte(KeyToken), []byte("legacy"))
		if tok, _ := s.AccessToken(ctx); tok != "legacy" {
			t.Errorf("AccessToken() = %q, want legacy", tok)
		}
	})
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyfile")

	k1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	k2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(k1) != string(k2) {
		t.Error("second load returned a different key")
	}

	os.WriteFile(path, []byte("short"), 0600)
	if _, err := LoadOrCreateKey(path); err == nil {
		t.Error("truncated key file should be rejected")
	}
}

func TestStore_PurgeIf(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	sealer, err := NewSealerFromFile(filepath.Join(t.TempDir(), "keyfile"))
	if err != nil {
		t.Fatal(err)
	}
	s := New(kv, WithSealer(sealer))
	user := &domain.User{ID: "u1", Email: "a@example.com"}
	s.SaveSession(ctx, domain.TokenPair{AccessToken: "acc-new", RefreshToken: "ref-new"}, user)

	t.Run("empty token purges nothing", func(t *testing.T) {
		purged, err := s.PurgeIf(ctx, "")
		if err != nil || purged {
			t.Errorf("PurgeIf(\"\") = %v, %v; want false, nil", purged, err)
		}
		if tok, _ := s.AccessToken(ctx); tok != "acc-new" {
			t.Errorf("AccessToken() = %q, want acc-new", tok)
		}
	})

	t.Run("replaced token keeps session", func(t *testing.T) {
		purged, err := s.PurgeIf(ctx, "acc-old")
		if err != nil || purged {
			t.Errorf("PurgeIf(old) = %v, %v; want false, nil", purged, err)
		}
		if u, _ := s.User(ctx); u == nil || u.ID != "u1" {
			t.Errorf("User() = %+v, want u1", u)
		}
	})

	t.Run("current token purges once", func(t *testing.T) {
		before := kv.Writes()
		var (
			wg     sync.WaitGroup
			purges atomic.Int32
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				purged, err := s.PurgeIf(ctx, "acc-new")
				if err != nil {
					t.Errorf("PurgeIf() error = %v", err)
				}
				if purged {
					purges.Add(1)
				}
			}()
		}
		wg.Wait()

		if n := purges.Load(); n != 1 {
			t.Errorf("purges = %d, want 1", n)
		}
		if kv.Writes()-before != 1 {
			t.Errorf("PurgeIf applied %d writes, want 1", kv.Writes()-before)
		}
		if sess, _ := s.Load(ctx); sess != nil {
			t.Errorf("Load() after purge = %+v, want nil", sess)
		}
		if u, _ := s.User(ctx); u != nil {
			t.Errorf("User() after purge = %+v, want nil", u)
		}
	})
}
