package service

import (
	"context"
	"sync"

	"github.com/yndnr/recall-go/internal/core/domain"
)

// DashboardLimit caps the reviews and patterns the dashboard lists.
const DashboardLimit = 5

// Dashboard parts.
const (
	PartStats    = "stats"
	PartToday    = "today"
	PartHeatmap  = "heatmap"
	PartPatterns = "patterns"
)

// Dashboard is the aggregate dashboard view. Parts that failed are nil and
// their error is kept in Errors.
type Dashboard struct {
	Stats    *domain.Stats            `json:"stats,omitempty" yaml:"stats,omitempty"`
	Today    *domain.TodayResponse    `json:"today,omitempty" yaml:"today,omitempty"`
	Heatmap  domain.Heatmap           `json:"heatmap,omitempty" yaml:"heatmap,omitempty"`
	Patterns *domain.PatternsResponse `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Errors   map[string]error         `json:"-" yaml:"-"`
}

// Failed reports whether every part failed.
func (d *Dashboard) Failed() bool {
	return len(d.Errors) == 4
}

// FirstError returns one of the part errors, preferring a session expiry.
func (d *Dashboard) FirstError() error {
	var first error
	for _, part := range []string{PartStats, PartToday, PartHeatmap, PartPatterns} {
		err := d.Errors[part]
		if err == nil {
			continue
		}
		if domain.KindOf(err) == domain.KindSessionExpired {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// TopReviews returns at most DashboardLimit due problems.
func (d *Dashboard) TopReviews() []domain.DueProblem {
	if d.Today == nil {
		return nil
	}
	return head(d.Today.Problems, DashboardLimit)
}

// TopPatterns returns at most DashboardLimit patterns.
func (d *Dashboard) TopPatterns() []domain.PatternStat {
	if d.Patterns == nil {
		return nil
	}
	return head(d.Patterns.Patterns, DashboardLimit)
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// LoadDashboard fetches stats, today, heatmap and patterns concurrently and
// keeps whichever succeed.
func (s *ReviewService) LoadDashboard(ctx context.Context) *Dashboard {
	d := &Dashboard{Errors: make(map[string]error)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	run := func(part string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				d.Errors[part] = err
				mu.Unlock()
			}
		}()
	}

	run(PartStats, func() error {
		v, err := s.Stats(ctx)
		mu.Lock()
		d.Stats = v
		mu.Unlock()
		return err
	})
	run(PartToday, func() error {
		v, err := s.Today(ctx)
		mu.Lock()
		d.Today = v
		mu.Unlock()
		return err
	})
	run(PartHeatmap, func() error {
		v, err := s.Heatmap(ctx)
		mu.Lock()
		d.Heatmap = v
		mu.Unlock()
		return err
	})
	run(PartPatterns, func() error {
		v, err := s.Patterns(ctx)
		mu.Lock()
		d.Patterns = v
		mu.Unlock()
		return err
	})

	wg.Wait()
	return d
}
