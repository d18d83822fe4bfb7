package service

import (
	"context"
	"time"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/core/domain"
)

// DefaultHealthTimeout bounds the reachability check.
const DefaultHealthTimeout = 5 * time.Second

// HealthReport is the outcome of a reachability check.
type HealthReport struct {
	Backend   string        `json:"backend" yaml:"backend"`
	Reachable bool          `json:"reachable" yaml:"reachable"`
	Status    int           `json:"status,omitempty" yaml:"status,omitempty"`
	Latency   time.Duration `json:"latency" yaml:"latency"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// CheckHealth sends one unauthenticated GET / to the backend. It never retries.
func CheckHealth(ctx context.Context, client *connection.HTTPClient, timeout time.Duration) HealthReport {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := HealthReport{Backend: client.BaseURL(ctx)}
	start := time.Now()
	resp, err := client.Get(ctx, "/")
	report.Latency = time.Since(start)
	if err != nil {
		report.Error = domain.CauseMessage(domain.CauseOf(err))
		return report
	}
	report.Status = resp.StatusCode
	if err := connection.ParseResponse(resp, nil); err != nil {
		report.Error = domain.UserMessage(err)
		return report
	}
	report.Reachable = true
	return report
}
