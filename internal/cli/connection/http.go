// Package connection provides backend communication for recall-cli.
package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/infra/buildinfo"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// errEncodeBody marks a request body that could not be marshalled.
var errEncodeBody = errors.New("encode request body")

// HTTPClient performs single HTTP exchanges with the backend. Retries,
// deadlines and refresh live in Engine.
type HTTPClient struct {
	resolver  *Manager
	client    *http.Client
	userAgent string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTLSConfig sets the TLS configuration of the underlying transport.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *HTTPClient) {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = cfg
		c.client.Transport = t
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// NewHTTPClient creates a client resolving its base URL through resolver.
// The http.Client carries no timeout of its own; every call is bounded by
// its context.
func NewHTTPClient(resolver *Manager, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		resolver:  resolver,
		client:    &http.Client{},
		userAgent: buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends one request. A non-empty bearer is sent as the Authorization
// header. The caller owns the response body.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, bearer string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errEncodeBody, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL(ctx)+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(ctx, req, bearer)
	return c.client.Do(req)
}

// Get performs an unauthenticated GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, "")
}

// Post performs an unauthenticated POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, "")
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(ctx context.Context, req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	id := logger.RequestIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

// BaseURL returns the base URL the next request will use.
func (c *HTTPClient) BaseURL(ctx context.Context) string {
	return c.resolver.BaseURL(ctx)
}

// errorBody covers the error shapes the backend emits: FastAPI's
// {"detail": "..."} or {"detail": [...]}, and {"code","message"}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (b errorBody) text() string {
	if len(b.Detail) > 0 {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(b.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// ParseResponse classifies the response and decodes a 2xx body into target.
//
//   - 2xx: decoded into target; an undecodable body is ErrTransient
//   - 401: ErrSessionExpired
//   - other 4xx (and stray 1xx/3xx): ErrClientRejected with the backend's message
//   - 5xx: ErrTransient
//
// Every returned DomainError carries the HTTP status.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()
	status := resp.StatusCode

	if status >= 200 && status < 300 {
		if target == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return domain.ErrTransient.WithStatus(status).WithDetails("malformed response body").WithCause(err)
		}
		return nil
	}

	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &eb)
	msg := eb.text()

	var de *domain.DomainError
	switch {
	case status == http.StatusUnauthorized:
		de = domain.ErrSessionExpired
	case status >= 500:
		de = domain.ErrTransient
		if msg == "" {
			msg = fmt.Sprintf("server returned %d", status)
		}
	default:
		de = domain.ErrClientRejected
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", status)
		}
	}

	de = de.WithStatus(status)
	if msg != "" {
		de = de.WithDetails(msg)
	}
	return de
}
