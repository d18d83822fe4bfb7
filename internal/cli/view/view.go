package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/recall-go/internal/cli/output"
	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/core/service"
)

// StreakGoal is the streak length shown as a full bar.
const StreakGoal = 30

// tabler adapts a function to output.Tabler.
type tabler func(wide bool) *output.Table

func (f tabler) Table(wide bool) *output.Table { return f(wide) }

func fieldTable() *output.Table {
	return &output.Table{Headers: []string{"FIELD", "VALUE"}}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Stats renders the /stats summary.
func Stats(s *domain.Stats) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		if s == nil {
			return t
		}
		t.AddRow("Streak", output.Bar(s.Streak, StreakGoal, 10)+" "+plural(s.Streak, "day"))
		t.AddRow("Solved", strconv.Itoa(s.TotalSolved))
		t.AddRow("Due today", strconv.Itoa(s.DueToday))
		t.AddRow("Mastery", output.PercentBar(s.MasteryRate, 10)+" "+domain.MasteryLevel(s.MasteryRate))
		return t
	})
}

// dueLabel marks a review as overdue or due today.
func dueLabel(p domain.DueProblem, now time.Time) string {
	if p.Overdue(now) {
		return "overdue"
	}
	return "due today"
}

// Today renders the review queue. limit <= 0 shows every entry.
func Today(r *domain.TodayResponse, now time.Time, limit int) output.Tabler {
	return tabler(func(wide bool) *output.Table {
		t := &output.Table{Headers: []string{"TITLE", "DIFFICULTY", "STATUS", "DUE"}}
		if wide {
			t.Headers = append(t.Headers, "NEXT_REVIEW", "URL")
		}
		if r == nil || len(r.Problems) == 0 {
			t.Headers = []string{"TODAY"}
			t.AddRow("No reviews due today")
			return t
		}
		problems := r.Problems
		if limit > 0 && len(problems) > limit {
			problems = problems[:limit]
		}
		for _, p := range problems {
			status := p.Status
			if status == "" {
				status = "general"
			}
			row := []string{p.Title, p.Difficulty, status, dueLabel(p, now)}
			if wide {
				row = append(row, p.NextReview, p.URL)
			}
			t.AddRow(row...)
		}
		return t
	})
}

// HeatmapSummary is the one-line activity summary, e.g.
// "42 problems solved in 2026".
func HeatmapSummary(h domain.Heatmap, now time.Time) string {
	if len(h) == 0 {
		return "No activity data yet. Start solving to build your streak!"
	}
	return fmt.Sprintf("%s solved in %d", plural(h.Total(), "problem"), now.Year())
}

// Heatmap renders solved counts per day with their 0..4 intensity.
func Heatmap(h domain.Heatmap, now time.Time) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := &output.Table{Headers: []string{"DATE", "SOLVED", "LEVEL"}}
		for _, d := range h.Dates() {
			lvl := h.Level(d)
			t.AddRow(d, strconv.Itoa(h[d]), strings.Repeat("■", lvl)+strings.Repeat("·", 4-lvl))
		}
		t.AddRow("TOTAL", strconv.Itoa(h.Total()), HeatmapSummary(h, now))
		return t
	})
}

// Patterns renders pattern progress. limit <= 0 shows every pattern.
func Patterns(patterns []domain.PatternStat, limit int) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := &output.Table{Headers: []string{"PATTERN", "PROGRESS", "PERCENT", "LEVEL"}}
		if limit > 0 && len(patterns) > limit {
			patterns = patterns[:limit]
		}
		for _, p := range patterns {
			t.AddRow(p.Name, output.Bar(p.Solved, p.Total, 10),
				fmt.Sprintf("%.0f%%", p.Percentage), domain.MasteryLevel(p.Percentage))
		}
		return t
	})
}

// Problems renders the tracked problems list.
func Problems(problems []domain.TrackedProblem) output.Tabler {
	return tabler(func(wide bool) *output.Table {
		t := &output.Table{Headers: []string{"TITLE", "DIFFICULTY", "STATUS", "NEXT_REVIEW", "PATTERNS"}}
		if wide {
			t.Headers = append(t.Headers, "URL")
		}
		for _, p := range problems {
			row := []string{p.Title, p.Difficulty, p.Status, orNA(p.NextReview), strings.Join(p.Patterns, ", ")}
			if wide {
				row = append(row, p.URL)
			}
			t.AddRow(row...)
		}
		return t
	})
}

// DetailedStats renders the statistics tab.
func DetailedStats(d *domain.DetailedStats) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		if d == nil {
			return t
		}
		t.AddRow("Total problems", strconv.Itoa(d.TotalProblems))
		t.AddRow("Mastered", fmt.Sprintf("%d (%.1f%%)", d.Mastered, d.MasteryPercentage))
		t.AddRow("Current streak", plural(d.CurrentStreak, "day"))
		t.AddRow("Longest streak", plural(d.LongestStreak, "day"))
		t.AddRow("Total reviews", strconv.Itoa(d.TotalReviews))

		peak := 0
		for _, day := range d.WeeklyActivity {
			peak = max(peak, day.Count)
		}
		for _, day := range d.WeeklyActivity {
			t.AddRow("Activity "+day.Day, output.Bar(day.Count, max(peak, 1), 10))
		}
		for _, level := range []string{"Easy", "Medium", "Hard"} {
			c := difficulty(d.ByDifficulty, level)
			t.AddRow(level, fmt.Sprintf("%d (%.1f%%)", c.Count, c.Percentage))
		}
		return t
	})
}

// difficulty looks a bucket up case-insensitively; backends differ on
// "easy" versus "Easy".
func difficulty(m map[string]domain.DifficultyCount, name string) domain.DifficultyCount {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return domain.DifficultyCount{}
}

// Analysis renders the pattern analysis of a scraped problem.
func Analysis(p domain.Problem, a *domain.Analysis) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		t.AddRow("Problem", p.Title)
		t.AddRow("Difficulty", orNA(p.Difficulty))
		if a == nil {
			return t
		}
		if len(a.Patterns) == 0 {
			t.AddRow("Patterns", "No patterns detected")
		}
		for _, dp := range a.Patterns {
			t.AddRow("Pattern", fmt.Sprintf("%s %.0f%% (%s)", dp.Name, dp.Confidence*100, domain.ConfidenceClass(dp.Confidence)))
		}
		t.AddRow("Time", orNA(a.TimeComplexity))
		t.AddRow("Space", orNA(a.SpaceComplexity))
		insight := a.KeyInsight
		if insight == "" {
			insight = "No specific insights available."
		}
		t.AddRow("Insight", insight)
		return t
	})
}

// SolveMessage is the confirmation line after logging a solve.
func SolveMessage(r *domain.SolveResponse) string {
	return fmt.Sprintf("Saved! Next review in %s.", plural(r.IntervalDays, "day"))
}

// Solve renders the /solve result.
func Solve(req domain.SolveRequest, r *domain.SolveResponse) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		t.AddRow("Problem", req.Title)
		t.AddRow("Rating", fmt.Sprintf("%d (%s)", req.Quality, domain.QualityLabel(req.Quality)))
		t.AddRow("Next review", r.NextReview)
		t.AddRow("Interval", plural(r.IntervalDays, "day"))
		t.AddRow("Streak", plural(r.Streak, "day"))
		return t
	})
}

// Settings renders the preferences in display order.
func Settings(s domain.Settings) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := &output.Table{Headers: []string{"KEY", "VALUE"}}
		for _, key := range domain.SettingKeys {
			v, _ := s.Get(key)
			if v == "" {
				v = "-"
			}
			t.AddRow(key, v)
		}
		return t
	})
}

// User renders the logged-in profile.
func User(u *domain.User) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		if u == nil {
			return t
		}
		t.AddRow("Email", u.Email)
		t.AddRow("ID", orNA(u.ID))
		t.AddRow("Created", orNA(u.CreatedAt))
		return t
	})
}

// Health renders a connectivity check.
func Health(r service.HealthReport) output.Tabler {
	return tabler(func(bool) *output.Table {
		t := fieldTable()
		t.AddRow("Backend", r.Backend)
		if r.Reachable {
			t.AddRow("Status", "Connected")
		} else {
			t.AddRow("Status", "Disconnected")
		}
		if r.Status != 0 {
			t.AddRow("HTTP", strconv.Itoa(r.Status))
		}
		t.AddRow("Latency", r.Latency.Round(time.Millisecond).String())
		if r.Error != "" {
			t.AddRow("Error", r.Error)
		}
		return t
	})
}

// Dashboard renders the aggregate dashboard. Failed parts show the
// message of their error in place of their rows.
func Dashboard(d *service.Dashboard, now time.Time) output.Tabler {
	return tabler(func(wide bool) *output.Table {
		t := &output.Table{Headers: []string{"SECTION", "ITEM", "VALUE"}}
		if d == nil {
			return t
		}
		section := func(name string, err error, rows *output.Table) {
			if err != nil {
				t.AddRow(name, "unavailable", domain.UserMessage(err))
				return
			}
			if rows == nil {
				return
			}
			for _, r := range rows.Rows {
				item, value := r[0], strings.Join(r[1:], "  ")
				t.AddRow(name, item, value)
			}
		}

		var stats, today, heat, pats *output.Table
		if d.Stats != nil {
			stats = Stats(d.Stats).Table(wide)
		}
		if d.Today != nil {
			today = Today(d.Today, now, service.DashboardLimit).Table(false)
		}
		if d.Heatmap != nil || d.Errors[service.PartHeatmap] == nil {
			heat = &output.Table{}
			heat.AddRow("Activity", HeatmapSummary(d.Heatmap, now))
		}
		if d.Patterns != nil {
			pats = Patterns(d.TopPatterns(), service.DashboardLimit).Table(false)
		}
		section(service.PartStats, d.Errors[service.PartStats], stats)
		section(service.PartToday, d.Errors[service.PartToday], today)
		section(service.PartHeatmap, d.Errors[service.PartHeatmap], heat)
		section(service.PartPatterns, d.Errors[service.PartPatterns], pats)
		return t
	})
}
