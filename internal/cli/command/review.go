package command

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/domain"
)

func limitFlag(usage string) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   usage,
	}
}

// DashboardCommand returns the dashboard command.
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:    "dashboard",
		Aliases: []string{"dash"},
		Usage:   "Show stats, due reviews, activity and top patterns",
		Action:  withRuntime(dashboard),
	}
}

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show streak, solved count and mastery",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "detailed",
				Aliases: []string{"d"},
				Usage:   "Show the difficulty breakdown and weekly activity",
			},
		},
		Action: withRuntime(stats),
	}
}

// TodayCommand returns the today command.
func TodayCommand() *cli.Command {
	return &cli.Command{
		Name:   "today",
		Usage:  "List the reviews due today",
		Flags:  []cli.Flag{limitFlag("Show at most N reviews")},
		Action: withRuntime(today),
	}
}

// HeatmapCommand returns the heatmap command.
func HeatmapCommand() *cli.Command {
	return &cli.Command{
		Name:   "heatmap",
		Usage:  "Show solved problems per day",
		Action: withRuntime(heatmap),
	}
}

// PatternsCommand returns the patterns command.
func PatternsCommand() *cli.Command {
	return &cli.Command{
		Name:   "patterns",
		Usage:  "Show progress per algorithmic pattern",
		Flags:  []cli.Flag{limitFlag("Show at most N patterns")},
		Action: withRuntime(patterns),
	}
}

// ProblemsCommand returns the problems command.
func ProblemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "problems",
		Usage: "List tracked problems",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "difficulty", Usage: "Filter by difficulty: easy, medium, hard"},
			&cli.StringFlag{Name: "status", Usage: "Filter by status"},
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Filter by title substring"},
		},
		Action: withRuntime(problems),
	}
}

func dashboard(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	d := rt.Reviews.LoadDashboard(ctx)
	if d.Failed() {
		return d.FirstError()
	}
	return rt.Render(d, view.Dashboard(d, time.Now()))
}

func stats(ctx context.Context, c *cli.Context, rt *Runtime) error {
	if c.Bool("detailed") {
		d, err := rt.Reviews.DetailedStats(ctx)
		if err != nil {
			return err
		}
		return rt.Render(d, view.DetailedStats(d))
	}
	s, err := rt.Reviews.Stats(ctx)
	if err != nil {
		return err
	}
	return rt.Render(s, view.Stats(s))
}

func today(ctx context.Context, c *cli.Context, rt *Runtime) error {
	r, err := rt.Reviews.Today(ctx)
	if err != nil {
		return err
	}
	return rt.Render(r, view.Today(r, time.Now(), c.Int("limit")))
}

func heatmap(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	h, err := rt.Reviews.Heatmap(ctx)
	if err != nil {
		return err
	}
	return rt.Render(h, view.Heatmap(h, time.Now()))
}

func patterns(ctx context.Context, c *cli.Context, rt *Runtime) error {
	r, err := rt.Reviews.Patterns(ctx)
	if err != nil {
		return err
	}
	return rt.Render(r, view.Patterns(r.Patterns, c.Int("limit")))
}

func problems(ctx context.Context, c *cli.Context, rt *Runtime) error {
	r, err := rt.Reviews.Problems(ctx)
	if err != nil {
		return err
	}
	filter := domain.ProblemFilter{
		Difficulty: c.String("difficulty"),
		Status:     c.String("status"),
		Search:     c.String("search"),
	}
	matched := filter.Apply(r.Problems)
	filtered := &domain.ProblemsResponse{Total: len(matched), Problems: matched}
	return rt.Render(filtered, view.Problems(matched))
}
