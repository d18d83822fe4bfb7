// Package main provides the entry point for recall-cli.
//
// recall-cli reviews algorithm problems with spaced repetition against the
// recall backend:
//
//   - Account management (login, signup, logout, forgot-password)
//   - Problem analysis and solve ratings
//   - Dashboard, statistics, patterns and tracked problems
//   - Local settings and configuration
//
// Usage:
//
//	recall-cli [global flags] command [flags]
//	recall-cli login -e ada@example.com
//	recall-cli stats --output json
//	recall-cli shell
//
// Without a command, recall-cli starts the interactive shell.
package main
