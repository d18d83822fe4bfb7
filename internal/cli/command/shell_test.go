package command

import (
	"strings"
	"testing"
)

func TestShell_Session(t *testing.T) {
	e := newTestEnv(t)

	script := strings.Join([]string{
		"stats",
		"login",
		testEmail,
		testPassword,
		"1",
		"3",
		"5",
		"set daily_goal 7",
		"back",
		"logout",
		"exit",
	}, "\n") + "\n"

	r := e.run(script)
	if r.err != nil {
		t.Fatalf("shell: %v\n%s", r.err, r.out)
	}
	assertContains(t, r.out,
		"Not logged in. Type 'login'",
		"Please log in first",
		"✓ Logged in as "+testEmail,
		"Two Sum",
		"Longest streak",
		"daily_goal",
		"✓ daily_goal = 7",
		"✓ Logged out",
	)

	if got := strings.TrimSpace(e.mustRun("settings", "get", "daily_goal")); got != "7" {
		t.Errorf("daily_goal = %q, want 7", got)
	}
}

func TestShell_ResumesStoredSession(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	r := e.run("whoami\nexit\n", "shell")
	if r.err != nil {
		t.Fatalf("shell: %v", r.err)
	}
	assertContains(t, r.out, "Logged in as "+testEmail)
	if n := e.be.Calls("GET /auth/me"); n != 1 {
		t.Errorf("/auth/me calls = %d, want 1", n)
	}
}

func TestShell_RejectedStoredSession(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	e.be.Script("GET /auth/me", fakebackendRejection(401))

	r := e.run("exit\n")
	if r.err != nil {
		t.Fatalf("shell: %v", r.err)
	}
	assertContains(t, r.out, "Stored session is no longer valid", "Not logged in.")
}
