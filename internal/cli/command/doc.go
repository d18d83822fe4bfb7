// Package command defines the recall-cli commands on urfave/cli/v2.
//
//   - root.go: App, global flags, error rendering
//   - runtime.go: wiring of config, store, engine and services
//   - auth.go: login, signup, logout, whoami, forgot-password
//   - review.go: stats, today, heatmap, patterns, problems, dashboard
//   - analyze.go: analyze and solve
//   - settings.go, config.go, system.go: local state and diagnostics
//   - shell.go: the interactive shell
//
// Commands parse flags, call a service through the shared Runtime, and
// render the result with the selected output format.
package command
