package repl

import (
	"sort"
	"strings"
)

// Completer suggests commands for a partial input.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the shell commands.
func NewCompleter() *Completer {
	return &Completer{
		commands: []string{
			"login", "signup", "forgot", "logout", "whoami",
			"analyze", "solve",
			"dashboard", "problems", "stats", "patterns",
			"filter", "retry",
			"settings", "set", "reset", "back",
			"status", "history", "help", "exit", "quit",
		},
	}
}

// Complete returns the commands starting with prefix, sorted. An empty
// prefix matches every command.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	sort.Strings(suggestions)
	return suggestions
}

// Suggest returns the commands closest to an unknown word: prefix matches
// first, then commands within edit distance 2.
func (c *Completer) Suggest(word string) []string {
	if word == "" {
		return nil
	}
	if s := c.Complete(word); len(s) > 0 {
		return s
	}
	word = strings.ToLower(word)
	var out []string
	for _, cmd := range c.commands {
		if distance(word, cmd) <= 2 {
			out = append(out, cmd)
		}
	}
	sort.Strings(out)
	return out
}

// distance is the Levenshtein distance between a and b.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
