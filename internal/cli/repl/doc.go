// Package repl provides the interactive shell of recall-cli.
//
// The shell drives a navigation.Controller: tab shortcuts switch screens,
// "5" opens the settings overlay and "back" closes it. Screen loads run in
// the background and the shell waits for them behind a spinner.
//
//   - repl.go: read loop and command dispatch
//   - completer.go: command suggestions
//   - history.go: command history persistence
package repl
