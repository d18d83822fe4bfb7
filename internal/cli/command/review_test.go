package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yndnr/recall-go/internal/core/domain"
)

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("stats")
	assertContains(t, out, "Streak", "3 days", "Solved", "42", "Advanced")

	out = e.mustRun("--output", "json", "stats")
	var s domain.Stats
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if s.TotalSolved != 42 || s.MasteryRate != 61.5 {
		t.Errorf("stats = %+v", s)
	}

	out = e.mustRun("stats", "--detailed")
	assertContains(t, out, "Longest streak", "9 days", "Medium", "18 (42.9%)")
}

func TestStats_NotLoggedIn(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("", "stats")
	if domain.KindOf(r.err) != domain.KindSessionExpired {
		t.Fatalf("err = %v, want a session expiry", r.err)
	}
}

func TestToday(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("today")
	assertContains(t, out, "Two Sum", "LRU Cache", "overdue")

	out = e.mustRun("today", "--limit", "1")
	assertContains(t, out, "Two Sum")
	if strings.Contains(out, "LRU Cache") {
		t.Errorf("--limit 1 printed a second review:\n%s", out)
	}

	out = e.mustRun("--wide", "today")
	assertContains(t, out, "NEXT_REVIEW", "https://leetcode.com/problems/two-sum/")
}

func TestHeatmap(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("heatmap")
	assertContains(t, out, "2026-01-02", "■■■■", "TOTAL", "5 problems solved")
}

func TestPatterns(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("patterns")
	assertContains(t, out, "Hash Map", "80%", "Expert", "Sliding Window", "Beginner")

	out = e.mustRun("patterns", "-n", "1")
	if strings.Contains(out, "Sliding Window") {
		t.Errorf("--limit 1 printed a second pattern:\n%s", out)
	}
}

func TestProblems_Filter(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("problems", "--difficulty", "medium")
	assertContains(t, out, "LRU Cache")
	if strings.Contains(out, "Two Sum") {
		t.Errorf("difficulty filter kept Two Sum:\n%s", out)
	}

	out = e.mustRun("--output", "json", "problems", "--search", "two")
	var resp domain.ProblemsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if resp.Total != 1 || resp.Problems[0].Title != "Two Sum" {
		t.Errorf("problems = %+v", resp)
	}
}

func TestDashboard(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("dashboard")
	assertContains(t, out, "stats", "today", "Two Sum", "heatmap", "patterns", "Hash Map")
}

func TestDashboard_PartialFailure(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	e.be.Script("GET /patterns", fakebackendRejection(404))

	out := e.mustRun("dashboard")
	assertContains(t, out, "Two Sum", "unavailable")
}

func TestSolve(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("solve", "--difficulty", "Easy", "--quality", "4", "Two Sum")
	assertContains(t, out, "Two Sum", "4 (Correct)", "6 days")

	solves := e.be.Solves()
	if len(solves) != 1 || solves[0].Title != "Two Sum" || solves[0].Quality != 4 {
		t.Errorf("solves = %+v", solves)
	}
}

func TestSolve_RejectsQualityLocally(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	r := e.run("", "solve", "--quality", "9", "Two Sum")
	if r.err == nil {
		t.Fatal("quality 9 should fail")
	}
	if got := ErrorMessage(r.err); got != "quality must be between 0 and 5" {
		t.Errorf("ErrorMessage() = %q", got)
	}
	if n := e.be.Calls("POST /solve"); n != 0 {
		t.Errorf("/solve calls = %d, want 0", n)
	}
}

func TestAnalyze_FromFlags(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	out := e.mustRun("analyze", "--title", "Two Sum", "--difficulty", "Easy")
	assertContains(t, out, "Two Sum", "Hash Map 92% (high)", "O(n)", "Store complements")
	if len(e.be.Solves()) != 0 {
		t.Error("analyze without --rate should not solve")
	}

	out = e.mustRun("analyze", "--title", "Two Sum", "--rate", "5")
	assertContains(t, out, "Saved! Next review in 6 days.")
	if solves := e.be.Solves(); len(solves) != 1 || solves[0].Quality != 5 {
		t.Errorf("solves = %+v", solves)
	}
}

func TestAnalyze_NoPage(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	if r := e.run("", "analyze"); r.err == nil {
		t.Fatal("analyze without a page bridge should fail")
	}
	if n := e.be.Calls("POST /analyze"); n != 0 {
		t.Errorf("/analyze calls = %d, want 0", n)
	}
}
