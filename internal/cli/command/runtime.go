package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/config"
	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/cli/output"
	"github.com/yndnr/recall-go/internal/core/credential"
	"github.com/yndnr/recall-go/internal/core/service"
	"github.com/yndnr/recall-go/internal/infra/shutdown"
	"github.com/yndnr/recall-go/internal/infra/tlsroots"
	"github.com/yndnr/recall-go/internal/storage"
	"github.com/yndnr/recall-go/internal/storage/memory"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
	"github.com/yndnr/recall-go/internal/telemetry/metric"
	"github.com/yndnr/recall-go/pkg/crypto/adaptive"
	"github.com/yndnr/recall-go/pkg/token"
)

// Runtime is the wired client stack shared by the commands of one run.
type Runtime struct {
	Config     *config.CLIConfig
	ConfigPath string
	Logger     logger.Logger

	KV        storage.KV
	Store     *credential.Store
	Manager   *connection.Manager
	Client    *connection.HTTPClient
	Refresher *service.Refresher
	Engine    *connection.Engine
	Auth      *service.AuthService
	Reviews   *service.ReviewService
	Bridge    *connection.Bridge
	Metrics   *metric.Registry
	Shutdown  *shutdown.Handler

	Out    io.Writer
	ErrOut io.Writer
	In     *bufio.Reader
	Format output.Format
	Wide   bool
}

// Printf writes to the command output.
func (rt *Runtime) Printf(format string, args ...any) {
	fmt.Fprintf(rt.Out, format, args...)
}

// Render writes raw as json or yaml, or tabler as a table.
func (rt *Runtime) Render(raw any, tabler output.Tabler) error {
	if rt.Format == output.FormatTable {
		return output.NewFormatter(rt.Format, rt.Wide).Format(rt.Out, tabler)
	}
	return output.NewFormatter(rt.Format, rt.Wide).Format(rt.Out, raw)
}

// Prompt prints label and reads one line of input.
func (rt *Runtime) Prompt(label string) (string, error) {
	fmt.Fprint(rt.ErrOut, label)
	line, err := rt.In.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close runs the shutdown hooks.
func (rt *Runtime) Close() error {
	return rt.Shutdown.Shutdown()
}

// Builder creates the Runtime of a run.
type Builder func(c *cli.Context) (*Runtime, error)

// lazyRuntime builds the Runtime on first use, so commands that never talk
// to the backend do not open the store.
type lazyRuntime struct {
	build Builder
	once  sync.Once
	rt    *Runtime
	err   error
}

func (l *lazyRuntime) get(c *cli.Context) (*Runtime, error) {
	l.once.Do(func() {
		l.rt, l.err = l.build(c)
	})
	return l.rt, l.err
}

func (l *lazyRuntime) close() error {
	if l.rt == nil {
		return nil
	}
	return l.rt.Close()
}

const runtimeKey = "runtime"

// RuntimeFrom returns the Runtime of the running app, building it if needed.
func RuntimeFrom(c *cli.Context) (*Runtime, error) {
	l, ok := c.App.Metadata[runtimeKey].(*lazyRuntime)
	if !ok {
		return nil, fmt.Errorf("runtime not initialized")
	}
	return l.get(c)
}

// configOverrides maps global flags onto config keys.
func configOverrides(c *cli.Context) map[string]any {
	m := make(map[string]any)
	if c.IsSet("output") {
		m["output"] = c.String("output")
	}
	if c.Bool("verbose") {
		m["log.level"] = "debug"
	}
	if c.Bool("ephemeral") {
		m["storage.ephemeral"] = true
	}
	return m
}

// BuildRuntime loads the configuration and wires the client stack.
func BuildRuntime(c *cli.Context) (*Runtime, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path, configOverrides(c))
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	slogger := log.Slog()

	rt := &Runtime{
		Config:     cfg,
		ConfigPath: path,
		Logger:     log,
		Metrics:    metric.NewRegistry(),
		Shutdown:   shutdown.NewHandler(shutdown.DefaultTimeout),
		Out:        c.App.Writer,
		ErrOut:     c.App.ErrWriter,
		In:         bufio.NewReader(c.App.Reader),
		Format:     format,
		Wide:       c.Bool("wide"),
	}

	sealer, err := openStore(rt, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = credential.New(rt.KV, credential.WithSealer(sealer), credential.WithLogger(slogger))

	rt.Manager = connection.NewManager(cfg.BackendURL(), rt.Store)
	rt.Manager.SetLogger(slogger)
	if server := c.String("server"); server != "" {
		rt.Manager.Pin(server)
	}

	tlsCfg, err := tlsroots.ClientConfig(cfg.Backend.CAFile)
	if err != nil {
		rt.Close()
		return nil, err
	}
	var clientOpts []connection.ClientOption
	if tlsCfg != nil {
		clientOpts = append(clientOpts, connection.WithTLSConfig(tlsCfg))
	}
	rt.Client = connection.NewHTTPClient(rt.Manager, clientOpts...)

	rt.Refresher = service.NewRefresher(rt.Client, rt.Store,
		service.WithRefreshThreshold(cfg.Auth.RefreshThreshold),
		service.WithRefreshMetrics(rt.Metrics),
		service.WithRefreshLogger(slogger),
	)
	rt.Engine = connection.NewEngine(rt.Client, rt.Store, cfg.EngineConfig(),
		connection.WithRefresher(rt.Refresher),
		connection.WithMetrics(rt.Metrics),
		connection.WithEngineLogger(slogger),
	)
	rt.Auth = service.NewAuthService(rt.Engine, rt.Store, rt.Metrics, slogger)
	rt.Reviews = service.NewReviewService(rt.Engine)

	rt.Bridge = connection.NewBridge(cfg.Bridge.Socket,
		connection.WithBridgeTimeout(cfg.Bridge.Timeout),
		connection.WithBridgeMetrics(rt.Metrics),
		connection.WithBridgeLogger(slogger),
	)
	rt.Shutdown.OnClose(rt.Bridge.Close)

	rt.Metrics.Registerer().MustRegister(metric.NewSessionCollector(rt.Store.AccessToken, token.ExpiresAt))
	return rt, nil
}

// openStore opens the KV engine and the token sealer. Ephemeral runs keep
// both in memory.
func openStore(rt *Runtime, cfg *config.CLIConfig) (*adaptive.Sealer, error) {
	slogger := rt.Logger.Slog()
	if cfg.Storage.Ephemeral {
		rt.KV = memory.New()
		rt.Shutdown.OnClose(rt.KV.Close)
		key, err := token.GenerateBytes(adaptive.KeySize)
		if err != nil {
			return nil, err
		}
		return adaptive.NewSealer(key, credential.SealerInfo)
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	engine, err := storage.NewBadgerEngine(storage.DefaultKVConfig(cfg.Storage.Dir), slogger)
	if err != nil {
		return nil, err
	}
	engine.RegisterMetrics(rt.Metrics.Registerer())
	rt.KV = engine
	rt.Shutdown.OnClose(engine.Close)

	return credential.NewSealerFromFile(cfg.KeyFile())
}
