// Package service provides the client-side use cases of recall-cli.
//
// This package contains:
//
//   - Refresher: single-flight exchange of the refresh token
//   - AuthService: login, signup, logout, profile and password reset
//   - ReviewService: stats, review queue, patterns, problems, solve, analyze
//   - LoadDashboard: concurrent aggregate load of the dashboard
//   - CheckHealth: backend reachability check
//
// Services hold no session state of their own; the credential store and
// the request engine are injected.
package service
