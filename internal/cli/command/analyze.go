package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/output"
	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/domain"
)

// AnalyzeCommand returns the analyze command.
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Detect the patterns of the open problem",
		Description: `Scrapes the problem open in the page through the bridge socket and
   asks the backend which patterns fit it. --title analyzes a problem given
   on the command line instead. --rate records a solve with that quality.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Problem title (skips the page)"},
			&cli.StringFlag{Name: "description", Usage: "Problem description"},
			&cli.StringFlag{Name: "difficulty", Usage: "Problem difficulty"},
			&cli.StringFlag{Name: "url", Usage: "Problem URL"},
			&cli.IntFlag{
				Name:    "rate",
				Aliases: []string{"r"},
				Usage:   fmt.Sprintf("Record a solve rated %d..%d", domain.MinQuality, domain.MaxQuality),
			},
		},
		Action: withRuntime(analyze),
	}
}

// SolveCommand returns the solve command.
func SolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Record a review of a problem",
		ArgsUsage: "TITLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Problem title"},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "Problem difficulty"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Problem URL"},
			&cli.IntFlag{
				Name:     "quality",
				Aliases:  []string{"q"},
				Usage:    fmt.Sprintf("Recall quality %d..%d", domain.MinQuality, domain.MaxQuality),
				Required: true,
			},
		},
		Action: withRuntime(solve),
	}
}

// analysisResult is the json/yaml shape of analyze.
type analysisResult struct {
	Problem  domain.Problem        `json:"problem" yaml:"problem"`
	Analysis *domain.Analysis      `json:"analysis" yaml:"analysis"`
	Solve    *domain.SolveResponse `json:"solve,omitempty" yaml:"solve,omitempty"`
}

func analyze(ctx context.Context, c *cli.Context, rt *Runtime) error {
	var (
		p   domain.Problem
		a   *domain.Analysis
		err error
	)
	if c.IsSet("title") {
		p = domain.Problem{
			Title:       c.String("title"),
			Description: c.String("description"),
			Difficulty:  c.String("difficulty"),
			URL:         c.String("url"),
		}
		a, err = rt.Reviews.Analyze(ctx, p)
	} else {
		p, a, err = rt.Reviews.AnalyzeCurrent(ctx, rt.Bridge)
	}
	if err != nil {
		return err
	}

	res := analysisResult{Problem: p, Analysis: a}
	var req domain.SolveRequest
	if c.IsSet("rate") {
		req = domain.SolveRequest{Title: p.Title, Difficulty: p.Difficulty, Quality: c.Int("rate"), URL: p.URL}
		if res.Solve, err = rt.Reviews.Solve(ctx, req); err != nil {
			return err
		}
	}

	if err := rt.Render(res, view.Analysis(p, a)); err != nil {
		return err
	}
	if res.Solve != nil && rt.Format == output.FormatTable {
		rt.Printf("\n✓ %s\n", view.SolveMessage(res.Solve))
	}
	return nil
}

func solve(ctx context.Context, c *cli.Context, rt *Runtime) error {
	req := domain.SolveRequest{
		Title:      c.String("title"),
		Difficulty: c.String("difficulty"),
		Quality:    c.Int("quality"),
		URL:        c.String("url"),
	}
	if req.Title == "" {
		req.Title = c.Args().First()
	}
	r, err := rt.Reviews.Solve(ctx, req)
	if err != nil {
		return err
	}
	return rt.Render(r, view.Solve(req, r))
}
