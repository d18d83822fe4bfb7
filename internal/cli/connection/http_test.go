package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/infra/buildinfo"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

func TestHTTPClient_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
		}
		if got := r.Header.Get("User-Agent"); got != buildinfo.UserAgent() {
			t.Errorf("User-Agent = %q, want %q", got, buildinfo.UserAgent())
		}
		if got := r.Header.Get("X-Request-ID"); got != "req-42" {
			t.Errorf("X-Request-ID = %q, want %q", got, "req-42")
		}
		if r.URL.Path != "/stats" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/stats")
		}
		w.Write([]byte(`{"streak":1}`))
	}))
	defer server.Close()

	client := NewHTTPClient(NewManager(server.URL, nil))
	ctx := logger.WithRequestID(context.Background(), "req-42")
	resp, err := client.Do(ctx, http.MethodGet, "/stats", nil, "tok-1")
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	var stats domain.Stats
	if err := ParseResponse(resp, &stats); err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if stats.Streak != 1 {
		t.Errorf("streak = %d, want 1", stats.Streak)
	}
}

func TestHTTPClient_NoAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("Authorization should be empty, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID should be generated")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(NewManager(server.URL, nil))
	resp, err := client.Get(context.Background(), "/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
}

func TestHTTPClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		var body domain.Credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body.Email != "a@b.c" || body.Password != "secret" {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewHTTPClient(NewManager(server.URL, nil))
	resp, err := client.Post(context.Background(), "/auth/login", domain.Credentials{Email: "a@b.c", Password: "secret"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestHTTPClient_EncodeError(t *testing.T) {
	client := NewHTTPClient(NewManager("http://127.0.0.1:1", nil))
	_, err := client.Post(context.Background(), "/x", map[string]any{"f": func() {}})
	if !errors.Is(err, errEncodeBody) {
		t.Errorf("err = %v, want errEncodeBody", err)
	}
}

func TestHTTPClient_FollowsResolver(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	mk := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits = append(hits, name)
			mu.Unlock()
		}))
	}
	a, b := mk("a"), mk("b")
	defer a.Close()
	defer b.Close()

	m := NewManager(a.URL, nil)
	client := NewHTTPClient(m)

	for _, pin := range []string{"", b.URL} {
		m.Pin(pin)
		resp, err := client.Get(context.Background(), "/")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		resp.Body.Close()
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(hits, ",") != "a,b" {
		t.Errorf("hits = %v, want [a b]", hits)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.Kind
		wantDetail string
	}{
		{"unauthorized", 401, `{"detail":"Could not validate credentials"}`, domain.KindSessionExpired, "Could not validate credentials"},
		{"bad request detail", 400, `{"detail":"Email already registered"}`, domain.KindClientRejected, "Email already registered"},
		{"validation list", 422, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, domain.KindClientRejected, "field required; too short"},
		{"message shape", 403, `{"code":"X","message":"forbidden here"}`, domain.KindClientRejected, "forbidden here"},
		{"not found no body", 404, ``, domain.KindClientRejected, "request failed with status 404"},
		{"server error", 500, `not json`, domain.KindTransient, "server returned 500"},
		{"server detail", 503, `{"detail":"Gemini Service not initialized"}`, domain.KindTransient, "Gemini Service not initialized"},
		{"malformed success", 200, `{"streak":`, domain.KindTransient, "malformed response body"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.WriteHeader(tt.status)
			rec.WriteString(tt.body)

			var out domain.Stats
			err := ParseResponse(rec.Result(), &out)
			if got := domain.KindOf(err); got != tt.wantKind {
				t.Fatalf("kind = %v, want %v (err %v)", got, tt.wantKind, err)
			}
			var de *domain.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("err %v is not a DomainError", err)
			}
			if de.Details != tt.wantDetail {
				t.Errorf("details = %q, want %q", de.Details, tt.wantDetail)
			}
			if de.Status != tt.status {
				t.Errorf("status = %d, want %d", de.Status, tt.status)
			}
		})
	}
}

func TestParseResponse_NilTarget(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteString(`{"data":"ignored"}`)
	if err := ParseResponse(rec.Result(), nil); err != nil {
		t.Errorf("ParseResponse with nil target should not error: %v", err)
	}
}
