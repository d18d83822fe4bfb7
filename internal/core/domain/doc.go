// Package domain defines the models recall-cli exchanges with the backend.
//
// Domain models are plain values without IO dependencies. This package
// contains:
//
//   - Session: the stored token pair, the account and login forms
//   - Review: problems, analyses, solves, statistics and patterns
//   - Settings: local preferences and their validation
//   - Errors: coded domain errors and their user-facing messages
package domain
