package service

import (
	"context"
	"strings"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/core/domain"
)

// ProblemSource yields the problem currently open in the page.
// connection.Bridge implements it.
type ProblemSource interface {
	ScrapeProblem(ctx context.Context) (domain.Problem, error)
}

// ReviewService reads review data and records solves.
type ReviewService struct {
	exec Executor
}

// NewReviewService creates a new ReviewService.
func NewReviewService(exec Executor) *ReviewService {
	return &ReviewService{exec: exec}
}

func (s *ReviewService) Stats(ctx context.Context) (*domain.Stats, error) {
	var v domain.Stats
	if err := s.exec.Execute(ctx, connection.Get("/stats"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *ReviewService) DetailedStats(ctx context.Context) (*domain.DetailedStats, error) {
	var v domain.DetailedStats
	if err := s.exec.Execute(ctx, connection.Get("/stats/detailed"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *ReviewService) Today(ctx context.Context) (*domain.TodayResponse, error) {
	var v domain.TodayResponse
	if err := s.exec.Execute(ctx, connection.Get("/today"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *ReviewService) Heatmap(ctx context.Context) (domain.Heatmap, error) {
	v := domain.Heatmap{}
	if err := s.exec.Execute(ctx, connection.Get("/heatmap"), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *ReviewService) Patterns(ctx context.Context) (*domain.PatternsResponse, error) {
	var v domain.PatternsResponse
	if err := s.exec.Execute(ctx, connection.Get("/patterns"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *ReviewService) Problems(ctx context.Context) (*domain.ProblemsResponse, error) {
	var v domain.ProblemsResponse
	if err := s.exec.Execute(ctx, connection.Get("/problems"), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Solve records a review. The rating is checked before any request is sent.
func (s *ReviewService) Solve(ctx context.Context, req domain.SolveRequest) (*domain.SolveResponse, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var v domain.SolveResponse
	if err := s.exec.Execute(ctx, connection.Post("/solve", req), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Analyze asks the backend which patterns fit p.
func (s *ReviewService) Analyze(ctx context.Context, p domain.Problem) (*domain.Analysis, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var v domain.Analysis
	if err := s.exec.Execute(ctx, connection.Post("/analyze", p), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// AnalyzeCurrent scrapes the open problem and analyzes it.
func (s *ReviewService) AnalyzeCurrent(ctx context.Context, src ProblemSource) (domain.Problem, *domain.Analysis, error) {
	p, err := src.ScrapeProblem(ctx)
	if err != nil {
		return domain.Problem{}, nil, err
	}
	a, err := s.Analyze(ctx, p)
	if err != nil {
		return p, nil, err
	}
	return p, a, nil
}
