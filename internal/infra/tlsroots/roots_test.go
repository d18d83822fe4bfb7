package tlsroots

import (
	"crypto/tls"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// serverCAFile starts a TLS server and writes its certificate as PEM.
func serverCAFile(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return srv, path
}

func TestNewPool(t *testing.T) {
	if NewPool().Pool() == nil {
		t.Fatal("Pool() returned nil")
	}
	if p := NewEmptyPool(); p.Pool() == nil || p.Added() != 0 {
		t.Fatal("empty pool misconfigured")
	}
}

func TestAddCertPEM(t *testing.T) {
	_, path := serverCAFile(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	p := NewEmptyPool()
	// A key block before the certificate is skipped.
	bundle := append(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("x")}), data...)
	if err := p.AddCertPEM(bundle); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
	if p.Added() != 1 {
		t.Errorf("Added() = %d, want 1", p.Added())
	}
}

func TestAddCertPEM_Errors(t *testing.T) {
	p := NewEmptyPool()
	if err := p.AddCertPEM(nil); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("empty data: %v", err)
	}
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("not der")})
	if err := p.AddCertPEM(bad); err == nil {
		t.Error("invalid certificate should fail")
	}
}

func TestAddCertFile_NotFound(t *testing.T) {
	if err := NewEmptyPool().AddCertFile(filepath.Join(t.TempDir(), "absent.pem")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestTLSConfig(t *testing.T) {
	p := NewEmptyPool()
	cfg := p.TLSConfig()
	if cfg.RootCAs != p.Pool() {
		t.Error("RootCAs should be the pool")
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
}

func TestClientConfig(t *testing.T) {
	cfg, err := ClientConfig("")
	if err != nil || cfg != nil {
		t.Fatalf("ClientConfig(\"\") = %v, %v", cfg, err)
	}

	srv, path := serverCAFile(t)

	// Without the private root the handshake fails.
	if _, err := http.Get(srv.URL); err == nil {
		t.Fatal("expected an unknown authority error")
	}

	cfg, err = ClientConfig(path)
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request with private root: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
