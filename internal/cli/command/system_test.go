package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yndnr/recall-go/internal/infra/buildinfo"
)

func TestSystemStatus(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("system", "status")
	assertContains(t, out, "Backend", e.be.URL(), "Connected", "200")
}

func TestSystemStatus_Unreachable(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "--server", "http://127.0.0.1:1", "system", "status")
	if !errors.Is(r.err, errUnreachable) {
		t.Fatalf("err = %v, want errUnreachable", r.err)
	}
	assertContains(t, r.out, "Disconnected", "Error")
}

func TestSystemVersion(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("system", "version")
	assertContains(t, out, "recall-cli "+buildinfo.Version, buildinfo.DefaultBackendURL())

	out = e.mustRun("--output", "json", "system", "version")
	var info buildinfo.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if info.Version != buildinfo.Version || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestSystemMetrics(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("system", "metrics")
	assertContains(t, out, "recall_session_logged_in 0")

	e.login()
	out = e.mustRun("system", "metrics")
	assertContains(t, out, "recall_session_logged_in 1", "recall_session_token_expiry_seconds")
}
