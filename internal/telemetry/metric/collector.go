package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionSource reports the stored access token, or "" when logged out.
type SessionSource func(ctx context.Context) (string, error)

// ExpiryDecoder extracts the expiry of an access token.
type ExpiryDecoder func(token string) (time.Time, error)

// SessionCollector samples the stored session on every scrape.
type SessionCollector struct {
	source SessionSource
	decode ExpiryDecoder
	now    func() time.Time

	loggedIn *prometheus.Desc
	expiry   *prometheus.Desc
}

// NewSessionCollector creates a collector over the given session source.
func NewSessionCollector(source SessionSource, decode ExpiryDecoder) *SessionCollector {
	return &SessionCollector{
		source: source,
		decode: decode,
		now:    time.Now,
		loggedIn: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "logged_in"),
			"1 when an access token is stored",
			nil, nil,
		),
		expiry: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "token_expiry_seconds"),
			"Seconds until the stored access token expires; negative once expired",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.loggedIn
	ch <- c.expiry
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tok, err := c.source(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.loggedIn, err)
		return
	}
	if tok == "" {
		ch <- prometheus.MustNewConstMetric(c.loggedIn, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.loggedIn, prometheus.GaugeValue, 1)

	if exp, err := c.decode(tok); err == nil {
		ch <- prometheus.MustNewConstMetric(c.expiry, prometheus.GaugeValue, exp.Sub(c.now()).Seconds())
	}
}
