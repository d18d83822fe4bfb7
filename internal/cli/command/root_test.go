package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/infra/shutdown"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

func TestApp_Commands(t *testing.T) {
	app := App()
	want := []string{
		"login", "signup", "logout", "whoami", "forgot-password",
		"dashboard", "stats", "today", "heatmap", "patterns", "problems",
		"analyze", "solve", "settings", "config", "system", "shell",
	}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
	if app.Name != "recall-cli" {
		t.Errorf("Name = %q", app.Name)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not logged in", domain.ErrNotLoggedIn, "not logged in; run 'recall-cli login' first"},
		{"rejected with details", domain.ErrClientRejected.WithStatus(400).WithDetails("Email already registered"), "Email already registered"},
		{"wrapped validation", fmt.Errorf("signup: %w", domain.ErrInvalidArgument.WithDetails("Passwords do not match")), "Passwords do not match"},
		{"canceled", fmt.Errorf("load: %w", context.Canceled), "interrupted"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintError(t *testing.T) {
	var b strings.Builder
	PrintError(&b, errors.New("boom"))
	if b.String() != "error: boom\n" {
		t.Errorf("PrintError() = %q", b.String())
	}
}

func TestLogin_PersistsSession(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("login", "--email", testEmail, "--password", testPassword)
	assertContains(t, out, "✓ Logged in as "+testEmail)

	out = e.mustRun("whoami")
	assertContains(t, out, "Email", testEmail)
	if n := e.be.Calls("GET /auth/me"); n != 1 {
		t.Errorf("/auth/me calls = %d, want 1", n)
	}
}

func TestLogin_Prompts(t *testing.T) {
	e := newTestEnv(t)

	r := e.run(testEmail+"\n"+testPassword+"\n", "login")
	if r.err != nil {
		t.Fatalf("login: %v", r.err)
	}
	assertContains(t, r.out, "Logged in as "+testEmail)
	assertContains(t, r.log, "Email: ", "Password: ")
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "login", "--email", testEmail, "--password", "wrong")
	if r.err == nil {
		t.Fatal("login with a wrong password should fail")
	}
	if got := ErrorMessage(r.err); got != "Invalid email or password" {
		t.Errorf("ErrorMessage() = %q", got)
	}
	if e.run("", "whoami").err == nil {
		t.Error("whoami should fail without a session")
	}
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "whoami")
	if !errors.Is(r.err, domain.ErrNotLoggedIn) {
		t.Fatalf("err = %v, want ErrNotLoggedIn", r.err)
	}
	if n := e.be.Calls("GET /auth/me"); n != 0 {
		t.Errorf("/auth/me calls = %d, want none", n)
	}
}

func TestSignup(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("signup", "--email", "new@example.com", "--password", "hunter22")
	assertContains(t, out, "Account created for new@example.com")

	out = e.mustRun("whoami")
	assertContains(t, out, "new@example.com")
}

func TestSignup_MismatchSendsNothing(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "signup", "--email", "new@example.com", "--password", "hunter22", "--confirm", "hunter23")
	if r.err == nil {
		t.Fatal("mismatched passwords should fail")
	}
	if n := e.be.Calls("POST /auth/signup"); n != 0 {
		t.Errorf("signup calls = %d, want 0", n)
	}
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("logout")
	assertContains(t, out, "✓ Logged out")
	if n := e.be.Calls("POST /auth/logout"); n != 1 {
		t.Errorf("logout calls = %d, want 1", n)
	}
	if r := e.run("", "whoami"); !errors.Is(r.err, domain.ErrNotLoggedIn) {
		t.Errorf("whoami after logout: %v", r.err)
	}

	out = e.mustRun("logout")
	assertContains(t, out, "Not logged in.")
}

func TestLogout_BackendDown(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	e.be.Script("POST /auth/logout", fakebackendRejection(400))

	out := e.mustRun("logout")
	assertContains(t, out, "✓ Logged out")
	if r := e.run("", "whoami"); !errors.Is(r.err, domain.ErrNotLoggedIn) {
		t.Errorf("local session should be purged, whoami: %v", r.err)
	}
}

func TestForgotPassword(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("forgot-password", testEmail)
	assertContains(t, out, "✓ If that email is registered")

	r := e.run("\n", "forgot-password")
	if r.err == nil {
		t.Error("an empty email should fail")
	}
	if n := e.be.Calls("POST /auth/forgot-password"); n != 1 {
		t.Errorf("forgot-password calls = %d, want 1", n)
	}
}

func TestUnknownArgsShowHelp(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "frobnicate")
	if r.err != nil {
		t.Fatalf("run: %v", r.err)
	}
	assertContains(t, r.out, "recall-cli", "COMMANDS")
}

func TestWithRuntime_ContextCarriesRunLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	rt := &Runtime{Logger: log, Shutdown: shutdown.NewHandler(time.Second)}

	app := newApp(func(*cli.Context) (*Runtime, error) { return rt, nil })
	app.Commands = []*cli.Command{{
		Name: "noop",
		Action: withRuntime(func(ctx context.Context, _ *cli.Context, _ *Runtime) error {
			logger.L(ctx).Info("from command")
			return nil
		}),
	}}
	if err := app.Run([]string{"recall-cli", "noop"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	assertContains(t, buf.String(), "from command")
}
