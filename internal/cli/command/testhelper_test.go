package command

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/recall-go/internal/tests/fakebackend"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "secret1"
)

// testEnv runs the real app against a fake backend. Every run opens the
// Badger store under dir, so state persists between runs as it does for a
// user.
type testEnv struct {
	t       *testing.T
	be      *fakebackend.Backend
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{t: t, be: fakebackend.New(t), dir: t.TempDir()}
	e.be.AddUser(testEmail, testPassword)
	t.Setenv("HOME", e.dir)

	e.cfgPath = filepath.Join(e.dir, "cli.yaml")
	e.writeConfig("")
	return e
}

// writeConfig writes the test config plus extra YAML lines.
func (e *testEnv) writeConfig(extra string) {
	e.t.Helper()
	cfg := fmt.Sprintf(`backend:
  url: %q
storage:
  dir: %q
bridge:
  socket: %q
  timeout: 1s
log:
  level: error
%s`, e.be.URL(), filepath.Join(e.dir, "data"), filepath.Join(e.dir, "page.sock"), extra)
	if err := os.WriteFile(e.cfgPath, []byte(cfg), 0o600); err != nil {
		e.t.Fatalf("write config: %v", err)
	}
}

type result struct {
	out string
	err error
	log string
}

// run executes one recall-cli invocation with stdin.
func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	argv := append([]string{"recall-cli", "--config", e.cfgPath}, args...)
	err := app.Run(argv)
	return result{out: out.String(), err: err, log: errOut.String()}
}

// mustRun runs args and fails the test on error.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	r := e.run("", args...)
	if r.err != nil {
		e.t.Fatalf("%v: %v\nstdout: %s\nstderr: %s", args, r.err, r.out, r.log)
	}
	return r.out
}

func (e *testEnv) login() {
	e.t.Helper()
	e.mustRun("login", "--email", testEmail, "--password", testPassword)
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q:\n%s", w, got)
		}
	}
}

func fakebackendRejection(status int) fakebackend.Response {
	return fakebackend.Response{Status: status, Body: map[string]string{"detail": "rejected by test"}}
}
