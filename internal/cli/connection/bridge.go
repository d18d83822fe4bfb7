package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
)

// DefaultBridgeTimeout bounds a single bridge call.
const DefaultBridgeTimeout = 10 * time.Second

// ActionScrapeProblem asks the page agent for the problem on screen.
const ActionScrapeProblem = "scrape_problem"

// maxBridgeLine bounds a single bridge message.
const maxBridgeLine = 1 << 20

// BridgeRequest is one line written to the page agent.
type BridgeRequest struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// BridgeResponse is one line read from the page agent.
type BridgeResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Bridge talks to the page agent over a unix socket carrying JSON lines.
// Calls are multiplexed over one connection and matched to responses by id.
type Bridge struct {
	path    string
	timeout time.Duration
	dial    func(ctx context.Context, path string) (net.Conn, error)
	metrics *metric.Registry
	logger  *slog.Logger

	mu      sync.Mutex
	conn    net.Conn
	pending map[string]chan BridgeResponse
	writeMu sync.Mutex
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeTimeout sets the per-call timeout.
func WithBridgeTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBridgeMetrics records call outcomes.
func WithBridgeMetrics(m *metric.Registry) BridgeOption {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = l
	}
}

// NewBridge creates a bridge to the socket at path. It connects lazily.
func NewBridge(path string, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		path:    path,
		timeout: DefaultBridgeTimeout,
		dial: func(ctx context.Context, path string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
		logger:  slog.Default(),
		pending: make(map[string]chan BridgeResponse),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the socket path.
func (b *Bridge) Path() string {
	return b.path
}

// Call sends action with params and decodes the response data into out.
//
// An unreachable or closed socket yields ErrChannelUnavailable, a missing
// response ErrBridgeTimeout, and a failure reported by the agent
// ErrClientRejected carrying its message.
func (b *Bridge) Call(ctx context.Context, action string, params, out any) error {
	err := b.call(ctx, action, params, out)
	b.metrics.ObserveBridgeCall(action, bridgeResult(err))
	return err
}

func (b *Bridge) call(ctx context.Context, action string, params, out any) error {
	req := BridgeRequest{ID: ulid.Make().String(), Action: action}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return domain.ErrInvalidArgument.WithDetails("bridge params").WithCause(err)
		}
		req.Params = raw
	}
	line, err := json.Marshal(req)
	if err != nil {
		return domain.ErrInvalidArgument.WithDetails("bridge request").WithCause(err)
	}
	line = append(line, '\n')

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	conn, err := b.connect(ctx)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		return domain.ErrChannelUnavailable.WithDetails(fmt.Sprintf("cannot reach %s", b.path)).WithCause(err)
	}

	ch := make(chan BridgeResponse, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer b.drop(req.ID)

	b.writeMu.Lock()
	_, err = conn.Write(line)
	b.writeMu.Unlock()
	if err != nil {
		b.reset(conn)
		return domain.ErrChannelUnavailable.WithDetails("write failed").WithCause(err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return domain.ErrChannelUnavailable.WithDetails("connection closed")
		}
		if !resp.Success {
			msg := resp.Error
			if msg == "" {
				msg = action + " failed"
			}
			return domain.ErrClientRejected.WithDetails(msg)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return domain.ErrClientRejected.WithDetails("malformed bridge response").WithCause(err)
			}
		}
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			b.logger.Warn("bridge call timed out", "action", action, "id", req.ID)
			return domain.ErrBridgeTimeout.WithDetails(fmt.Sprintf("%s: no response within %s", action, b.timeout))
		}
		return ctx.Err()
	}
}

// ScrapeProblem fetches the problem currently open in the page.
func (b *Bridge) ScrapeProblem(ctx context.Context) (domain.Problem, error) {
	var p domain.Problem
	if err := b.Call(ctx, ActionScrapeProblem, nil, &p); err != nil {
		return domain.Problem{}, err
	}
	if err := p.Validate(); err != nil {
		return domain.Problem{}, err
	}
	return p, nil
}

// Close closes the connection and fails every pending call.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	b.reset(conn)
	return nil
}

func (b *Bridge) connect(ctx context.Context) (net.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return b.conn, nil
	}
	conn, err := b.dial(ctx, b.path)
	if err != nil {
		return nil, err
	}
	b.conn = conn
	go b.readLoop(conn)
	return conn, nil
}

func (b *Bridge) readLoop(conn net.Conn) {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxBridgeLine)
	for sc.Scan() {
		var resp BridgeResponse
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			b.logger.Warn("discarding malformed bridge message", "error", err)
			continue
		}
		b.mu.Lock()
		ch, ok := b.pending[resp.ID]
		if ok {
			delete(b.pending, resp.ID)
		}
		b.mu.Unlock()
		if !ok {
			b.logger.Debug("bridge response for unknown call", "id", resp.ID)
			continue
		}
		ch <- resp
	}
	if err := sc.Err(); err != nil {
		b.logger.Debug("bridge connection ended", "error", err)
	}
	b.reset(conn)
}

// reset drops conn if it is still current and closes the channels of all
// calls waiting on it.
func (b *Bridge) reset(conn net.Conn) {
	b.mu.Lock()
	if b.conn != conn {
		b.mu.Unlock()
		return
	}
	b.conn = nil
	pending := b.pending
	b.pending = make(map[string]chan BridgeResponse)
	b.mu.Unlock()

	conn.Close()
	for _, ch := range pending {
		close(ch)
	}
}

func (b *Bridge) drop(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func bridgeResult(err error) string {
	switch {
	case err == nil:
		return metric.ResultOK
	case errors.Is(err, domain.ErrBridgeTimeout):
		return metric.ResultTimeout
	case errors.Is(err, domain.ErrChannelUnavailable):
		return metric.ResultUnavailable
	case errors.Is(err, domain.ErrClientRejected):
		return metric.ResultRejected
	default:
		return metric.ResultCanceled
	}
}
