package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Quality bounds for a solve rating.
const (
	MinQuality = 0
	MaxQuality = 5
)

// DateLayout is the backend's calendar date format.
const DateLayout = "2006-01-02"

// Stats is the /stats response.
type Stats struct {
	Streak      int     `json:"streak" yaml:"streak"`
	TotalSolved int     `json:"total_solved" yaml:"total_solved"`
	DueToday    int     `json:"due_today" yaml:"due_today"`
	MasteryRate float64 `json:"mastery_rate" yaml:"mastery_rate"`
}

// DifficultyCount is one bucket of the detailed stats breakdown.
type DifficultyCount struct {
	Count      int     `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// DayCount is one bar of the weekly activity chart.
type DayCount struct {
	Day   string `json:"day" yaml:"day"`
	Count int    `json:"count" yaml:"count"`
}

// DetailedStats is the /stats/detailed response.
type DetailedStats struct {
	TotalProblems     int                        `json:"total_problems" yaml:"total_problems"`
	Mastered          int                        `json:"mastered" yaml:"mastered"`
	MasteryPercentage float64                    `json:"mastery_percentage" yaml:"mastery_percentage"`
	CurrentStreak     int                        `json:"current_streak" yaml:"current_streak"`
	LongestStreak     int                        `json:"longest_streak" yaml:"longest_streak"`
	TotalReviews      int                        `json:"total_reviews" yaml:"total_reviews"`
	WeeklyActivity    []DayCount                 `json:"weekly_activity" yaml:"weekly_activity"`
	ByDifficulty      map[string]DifficultyCount `json:"by_difficulty" yaml:"by_difficulty"`
}

// DueProblem is an entry of the /today queue.
type DueProblem struct {
	Title      string `json:"title" yaml:"title"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	URL        string `json:"url" yaml:"url"`
	NextReview string `json:"next_review" yaml:"next_review"`
	Status     string `json:"status" yaml:"status"`
}

// Overdue reports whether the review date lies before today.
func (p DueProblem) Overdue(today time.Time) bool {
	d, err := time.Parse(DateLayout, p.NextReview)
	if err != nil {
		return false
	}
	y, m, dd := today.Date()
	return d.Before(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC))
}

// TodayResponse is the /today response.
type TodayResponse struct {
	DueCount int          `json:"due_count" yaml:"due_count"`
	Problems []DueProblem `json:"problems" yaml:"problems"`
}

// Heatmap maps a calendar date to the number of problems solved that day.
type Heatmap map[string]int

// Total returns the number of problems solved across all days.
func (h Heatmap) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Dates returns the recorded dates in ascending order.
func (h Heatmap) Dates() []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Level scales a day's count to an intensity 0..4 relative to the busiest day.
func (h Heatmap) Level(date string) int {
	c := h[date]
	if c <= 0 {
		return 0
	}
	max := 0
	for _, v := range h {
		if v > max {
			max = v
		}
	}
	lvl := (c*4 + max - 1) / max
	if lvl > 4 {
		lvl = 4
	}
	return lvl
}

// PatternStat is the solve progress for one algorithmic pattern.
type PatternStat struct {
	Name       string  `json:"name" yaml:"name"`
	Solved     int     `json:"solved" yaml:"solved"`
	Total      int     `json:"total" yaml:"total"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// PatternsResponse is the /patterns response.
type PatternsResponse struct {
	Patterns []PatternStat `json:"patterns" yaml:"patterns"`
}

// TrackedProblem is an entry of the /problems list.
type TrackedProblem struct {
	Title      string   `json:"title" yaml:"title"`
	Difficulty string   `json:"difficulty" yaml:"difficulty"`
	URL        string   `json:"url" yaml:"url"`
	Status     string   `json:"status" yaml:"status"`
	NextReview string   `json:"next_review" yaml:"next_review"`
	Patterns   []string `json:"patterns" yaml:"patterns"`
}

// ProblemsResponse is the /problems response.
type ProblemsResponse struct {
	Total    int              `json:"total" yaml:"total"`
	Problems []TrackedProblem `json:"problems" yaml:"problems"`
}

// ProblemFilter narrows a problems list. Empty fields and "all" match anything.
type ProblemFilter struct {
	Difficulty string
	Status     string
	Search     string
}

// Apply returns the problems matching the filter, preserving order.
func (f ProblemFilter) Apply(problems []TrackedProblem) []TrackedProblem {
	out := make([]TrackedProblem, 0, len(problems))
	search := strings.ToLower(f.Search)
	for _, p := range problems {
		if f.Difficulty != "" && f.Difficulty != "all" && !strings.EqualFold(p.Difficulty, f.Difficulty) {
			continue
		}
		if f.Status != "" && f.Status != "all" && p.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SolveRequest is the body of /solve.
type SolveRequest struct {
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Quality    int    `json:"quality"`
	URL        string `json:"url"`
}

// Validate checks the rating bounds and required fields.
func (r SolveRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrMissingArgument.WithDetails("problem title is required")
	}
	if r.Quality < MinQuality || r.Quality > MaxQuality {
		return ErrInvalidArgument.WithDetails(fmt.Sprintf("quality must be between %d and %d", MinQuality, MaxQuality))
	}
	return nil
}

// SolveResponse is the /solve response.
type SolveResponse struct {
	Message      string `json:"message" yaml:"message"`
	NextReview   string `json:"next_review" yaml:"next_review"`
	IntervalDays int    `json:"interval_days" yaml:"interval_days"`
	Streak       int    `json:"streak" yaml:"streak"`
}

// Problem is the scraped description of the problem on the current page.
type Problem struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Difficulty  string `json:"difficulty" yaml:"difficulty"`
	URL         string `json:"url" yaml:"url"`
}

// Validate checks the fields /analyze requires.
func (p Problem) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrMissingArgument.WithDetails("problem title is required")
	}
	return nil
}

// DetectedPattern is a pattern guess with its confidence in [0,1].
type DetectedPattern struct {
	Name       string  `json:"name" yaml:"name"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Analysis is the /analyze response.
type Analysis struct {
	Patterns        []DetectedPattern `json:"patterns" yaml:"patterns"`
	TimeComplexity  string            `json:"time_complexity" yaml:"time_complexity"`
	SpaceComplexity string            `json:"space_complexity" yaml:"space_complexity"`
	KeyInsight      string            `json:"key_insight" yaml:"key_insight"`
}

// ConfidenceClass buckets a confidence score.
func ConfidenceClass(c float64) string {
	switch {
	case c >= 0.8:
		return "high"
	case c >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// MasteryLevel names the mastery tier for a completion percentage.
func MasteryLevel(pct float64) string {
	switch {
	case pct >= 80:
		return "Expert"
	case pct >= 60:
		return "Advanced"
	case pct >= 40:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

// QualityLabel describes a solve rating.
func QualityLabel(q int) string {
	switch q {
	case 0:
		return "Complete Blackout"
	case 1, 2:
		return "Incorrect"
	case 3, 4:
		return "Correct"
	case 5:
		return "Perfect"
	}
	return "Unknown"
}
