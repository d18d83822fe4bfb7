// Package connection provides backend communication for recall-cli.
//
// The package is layered:
//
//   - manager.go: base URL resolution (--server pin, user override, default)
//   - http.go: single HTTP exchanges and status classification
//   - engine.go: authenticated calls with proactive refresh, bounded retry,
//     per-attempt deadlines and session expiry notification
//   - bridge.go: JSON-lines request/response channel to the page agent
//
// Only the engine retries. Every error it returns is a domain.DomainError
// that domain.KindOf classifies, or the caller's context error.
package connection
