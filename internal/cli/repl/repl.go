package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/recall-go/internal/cli/navigation"
	"github.com/yndnr/recall-go/internal/cli/output"
	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/core/service"
)

var errAlreadyIn = errors.New("already logged in; 'logout' first")

// DefaultCallTimeout bounds one shell command.
const DefaultCallTimeout = 2 * time.Minute

// Reviews records solves and analyzes the open problem.
// service.ReviewService implements it.
type Reviews interface {
	Solve(ctx context.Context, req domain.SolveRequest) (*domain.SolveResponse, error)
	AnalyzeCurrent(ctx context.Context, src service.ProblemSource) (domain.Problem, *domain.Analysis, error)
}

// Accounts sends password reset mail. service.AuthService implements it.
type Accounts interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
}

// SettingsStore persists the preferences. credential.Store implements it.
type SettingsStore interface {
	Settings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
}

// Config wires a REPL.
type Config struct {
	In       io.Reader
	Out      io.Writer
	Nav      *navigation.Controller
	Reviews  Reviews
	Accounts Accounts
	Source   service.ProblemSource
	Settings SettingsStore
	History  *History
	Logger   *slog.Logger

	// CallTimeout bounds each command; zero uses DefaultCallTimeout.
	CallTimeout time.Duration
	// Wide renders tables with every column.
	Wide bool
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	reader    *bufio.Reader
	out       *syncWriter
	nav       *navigation.Controller
	reviews   Reviews
	accounts  Accounts
	source    service.ProblemSource
	settings  SettingsStore
	completer *Completer
	history   *History
	logger    *slog.Logger
	timeout   time.Duration
	wide      bool
	now       func() time.Time

	filter  domain.ProblemFilter
	pending *domain.Problem

	// leaving is set while the shell itself ends the session, so the
	// change listener does not report it as an expiry.
	leaving atomic.Bool
	stateMu sync.Mutex
	state   navigation.State
}

// syncWriter serializes writes from the read loop, the spinner and the
// change listener.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// New creates a REPL and registers it as the controller's change listener.
func New(cfg Config) *REPL {
	r := &REPL{
		reader:    bufio.NewReader(cfg.In),
		out:       &syncWriter{w: cfg.Out},
		nav:       cfg.Nav,
		reviews:   cfg.Reviews,
		accounts:  cfg.Accounts,
		source:    cfg.Source,
		settings:  cfg.Settings,
		completer: NewCompleter(),
		history:   cfg.History,
		logger:    cfg.Logger,
		timeout:   cfg.CallTimeout,
		wide:      cfg.Wide,
		now:       time.Now,
	}
	if r.history == nil {
		r.history = NewHistory("", DefaultHistorySize)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCallTimeout
	}
	r.state = r.nav.State()
	r.nav.OnChange(r.onChange)
	return r
}

// onChange reports a session the backend ended.
func (r *REPL) onChange(s navigation.Snapshot) {
	r.stateMu.Lock()
	prev := r.state
	r.state = s.State
	r.stateMu.Unlock()

	wasIn := prev == navigation.StateAuthenticated || prev == navigation.StateSettings
	if wasIn && s.State == navigation.StateUnauthenticated && !r.leaving.Load() {
		fmt.Fprintln(r.out, "\n⚠ Session expired. Please log in again.")
	}
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Run reads commands until exit, EOF or ctx is done. History is saved on
// return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		r.logger.Warn("load history", "error", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			r.logger.Warn("save history", "error", err)
		}
	}()

	r.greet()
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.printf("%s", r.prompt())
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			r.printf("\n")
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "!!" {
			if line = r.history.Last(); line == "" {
				r.printf("No previous command.\n")
				continue
			}
			r.printf("%s\n", line)
		}
		r.history.Add(line)

		if r.execute(ctx, line) {
			return nil
		}
	}
}

func (r *REPL) greet() {
	snap := r.nav.Snapshot()
	switch snap.State {
	case navigation.StateUnauthenticated:
		r.printf("Not logged in. Type 'login' or 'signup'. 'help' lists commands.\n")
	default:
		if snap.User != nil {
			r.printf("Logged in as %s. 'help' lists commands.\n", snap.User.Email)
		}
	}
}

func (r *REPL) prompt() string {
	snap := r.nav.Snapshot()
	switch snap.State {
	case navigation.StateAuthenticated:
		return fmt.Sprintf("recall[%s]> ", snap.Screen)
	case navigation.StateSettings:
		return "recall[settings]> "
	}
	return "recall> "
}

// execute runs one command line. It reports whether the shell should exit.
func (r *REPL) execute(parent context.Context, line string) bool {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "exit", "quit":
		return true
	case "help", "?":
		r.help()
	case "history":
		for i, e := range r.history.Recent(20) {
			r.printf("%4d  %s\n", i+1, e)
		}
	case "status":
		r.status()
	case "login":
		err = r.login(ctx, args)
	case "signup":
		err = r.signup(ctx, args)
	case "forgot", "forgot-password":
		err = r.forgot(ctx, args)
	case "logout":
		err = r.logout(ctx)
	case "whoami":
		err = r.whoami()
	case "analyze", "0":
		err = r.analyze(ctx)
	case "solve", "rate":
		err = r.solve(ctx, args)
	case "settings", "5":
		err = r.openSettings(ctx)
	case "back", "esc":
		err = r.back()
	case "set":
		err = r.set(ctx, args)
	case "reset":
		err = r.resetSettings(ctx)
	case "retry":
		err = r.retry(ctx)
	case "filter":
		err = r.applyFilter(args)
	default:
		screen, perr := navigation.ParseScreen(cmd)
		if perr != nil {
			r.unknown(cmd)
			return false
		}
		err = r.navigate(screen)
	}
	if err != nil {
		r.fail(err)
	}
	return false
}

func (r *REPL) unknown(cmd string) {
	if s := r.completer.Suggest(cmd); len(s) > 0 {
		r.printf("Unknown command %q. Did you mean: %s?\n", cmd, strings.Join(s, ", "))
		return
	}
	r.printf("Unknown command %q. Type 'help' for a list.\n", cmd)
}

func (r *REPL) fail(err error) {
	r.printf("✗ %s\n", r.message(err))
}

func (r *REPL) message(err error) string {
	if errors.Is(err, navigation.ErrInvalidTransition) {
		switch r.nav.State() {
		case navigation.StateUnauthenticated:
			return "Please log in first ('login' or 'signup')."
		case navigation.StateSettings:
			return "Close settings first ('back')."
		case navigation.StateAuthenticated:
			return "Not available here."
		}
		return err.Error()
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return domain.UserMessage(err)
	}
	return err.Error()
}

func (r *REPL) help() {
	r.printf(`Session:
  login [EMAIL]           sign in
  signup [EMAIL]          create an account
  forgot [EMAIL]          send a password reset email
  logout                  sign out
  whoami                  show the current account
Screens:
  analyze | 0             analyze the problem open in the page
  dashboard | 1           stats, due reviews, activity and top patterns
  problems | 2            tracked problems
  stats | 3               detailed statistics
  patterns | 4            pattern progress
  retry                   reload the current screen
  filter [KEY=VALUE ...]  filter problems: difficulty=, status=, plain words search titles
Reviews:
  solve <0-5>             rate the last analyzed problem
Settings:
  settings | 5            open settings
  set KEY VALUE           change a setting (%s)
  reset                   restore default settings
  back | esc              close settings
Other:
  status, history, !!, help, exit
`, strings.Join(domain.SettingKeys, ", "))
}

func (r *REPL) status() {
	snap := r.nav.Snapshot()
	r.printf("State:  %s\n", snap.State)
	if snap.State == navigation.StateAuthenticated || snap.State == navigation.StateSettings {
		r.printf("Screen: %s\n", snap.Screen)
	}
	if snap.User != nil {
		r.printf("User:   %s\n", snap.User.Email)
	}
}

// ask prints label and reads one line.
func (r *REPL) ask(label string) (string, error) {
	r.printf("%s", label)
	line, err := r.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *REPL) credentials(args []string) (domain.Credentials, error) {
	var creds domain.Credentials
	var err error
	if len(args) > 0 {
		creds.Email = args[0]
	} else if creds.Email, err = r.ask("Email: "); err != nil {
		return creds, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Password, err = r.ask("Password: "); err != nil {
		return creds, err
	}
	return creds, nil
}

func (r *REPL) login(ctx context.Context, args []string) error {
	if r.nav.State() != navigation.StateUnauthenticated {
		return errAlreadyIn
	}
	creds, err := r.credentials(args)
	if err != nil {
		return err
	}
	if err := r.nav.Login(ctx, creds); err != nil {
		return err
	}
	r.pending = nil
	r.printf("✓ Logged in as %s\n", creds.Email)
	return nil
}

func (r *REPL) signup(ctx context.Context, args []string) error {
	if r.nav.State() != navigation.StateUnauthenticated {
		return errAlreadyIn
	}
	creds, err := r.credentials(args)
	if err != nil {
		return err
	}
	confirm, err := r.ask("Confirm password: ")
	if err != nil {
		return err
	}
	if err := r.nav.Signup(ctx, creds, confirm); err != nil {
		return err
	}
	r.pending = nil
	r.printf("✓ Account created for %s\n", creds.Email)
	return nil
}

func (r *REPL) forgot(ctx context.Context, args []string) error {
	email := strings.Join(args, "")
	if email == "" {
		var err error
		if email, err = r.ask("Email: "); err != nil {
			return err
		}
	}
	msg, err := r.accounts.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Password reset email sent! Check your inbox."
	}
	r.printf("✓ %s\n", msg)
	return nil
}

func (r *REPL) logout(ctx context.Context) error {
	r.leaving.Store(true)
	defer r.leaving.Store(false)
	r.pending = nil
	err := r.nav.Logout(ctx)
	if errors.Is(err, navigation.ErrInvalidTransition) {
		return err
	}
	if err != nil {
		r.logger.Warn("remote logout failed", "error", err)
	}
	r.printf("✓ Logged out\n")
	return nil
}

func (r *REPL) whoami() error {
	snap := r.nav.Snapshot()
	if snap.User == nil {
		return fmt.Errorf("%w: whoami while %s", navigation.ErrInvalidTransition, snap.State)
	}
	return r.render(view.User(snap.User))
}

func (r *REPL) render(t output.Tabler) error {
	return output.NewFormatter(output.FormatTable, r.wide).Format(r.out, t)
}

// navigate switches screens and shows the screen once its load settles.
func (r *REPL) navigate(screen navigation.Screen) error {
	if screen == navigation.ScreenPrimaryAction {
		if err := r.nav.Navigate(screen); err != nil {
			return err
		}
		r.printf("Open a problem in the page and type 'analyze'.\n")
		return nil
	}
	if err := r.nav.Navigate(screen); err != nil {
		return err
	}
	r.settle(screen)
	return r.show(screen)
}

func (r *REPL) retry(ctx context.Context) error {
	snap := r.nav.Snapshot()
	if snap.State != navigation.StateAuthenticated {
		return fmt.Errorf("%w: retry while %s", navigation.ErrInvalidTransition, snap.State)
	}
	if !snap.Screen.Loads() {
		return r.analyzeNow(ctx)
	}
	if err := r.nav.Retry(snap.Screen); err != nil {
		return err
	}
	r.settle(snap.Screen)
	return r.show(snap.Screen)
}

// settle waits for screen loads behind a spinner.
func (r *REPL) settle(screen navigation.Screen) {
	if v, ok := r.nav.View(screen); !ok || !v.Loading {
		return
	}
	sp := output.NewSpinner(r.out, "Loading "+screen.String()+"...")
	sp.Start()
	r.nav.Settle()
	sp.Stop()
}

// show renders the cached view of screen.
func (r *REPL) show(screen navigation.Screen) error {
	v, ok := r.nav.View(screen)
	if !ok {
		return nil
	}
	if v.Err != nil {
		r.printf("✗ %s (type 'retry')\n", r.message(v.Err))
		return nil
	}
	switch data := v.Data.(type) {
	case *service.Dashboard:
		return r.render(view.Dashboard(data, r.now()))
	case *domain.ProblemsResponse:
		problems := r.filter.Apply(data.Problems)
		if len(problems) == 0 {
			r.printf("No problems match.\n")
			return nil
		}
		return r.render(view.Problems(problems))
	case *domain.DetailedStats:
		return r.render(view.DetailedStats(data))
	case *domain.PatternsResponse:
		return r.render(view.Patterns(data.Patterns, 0))
	}
	return nil
}

// applyFilter parses "difficulty=easy status=learning words..." and shows
// the filtered problems. No arguments clears the filter.
func (r *REPL) applyFilter(args []string) error {
	var f domain.ProblemFilter
	var words []string
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		switch {
		case ok && strings.EqualFold(k, "difficulty"):
			f.Difficulty = v
		case ok && strings.EqualFold(k, "status"):
			f.Status = v
		case ok && strings.EqualFold(k, "search"):
			words = append(words, v)
		default:
			words = append(words, a)
		}
	}
	f.Search = strings.Join(words, " ")
	r.filter = f

	if _, ok := r.nav.Problems(f); !ok {
		return r.navigate(navigation.ScreenProblems)
	}
	if r.nav.Snapshot().Screen != navigation.ScreenProblems {
		if err := r.nav.Navigate(navigation.ScreenProblems); err != nil {
			return err
		}
	}
	return r.show(navigation.ScreenProblems)
}

func (r *REPL) analyze(ctx context.Context) error {
	snap := r.nav.Snapshot()
	if snap.State == navigation.StateAuthenticated && snap.Screen != navigation.ScreenPrimaryAction {
		if err := r.nav.Navigate(navigation.ScreenPrimaryAction); err != nil {
			return err
		}
	} else if snap.State != navigation.StateAuthenticated {
		return fmt.Errorf("%w: analyze while %s", navigation.ErrInvalidTransition, snap.State)
	}
	return r.analyzeNow(ctx)
}

func (r *REPL) analyzeNow(ctx context.Context) error {
	sp := output.NewSpinner(r.out, "Analyzing problem...")
	sp.Start()
	p, a, err := r.reviews.AnalyzeCurrent(ctx, r.source)
	if err != nil {
		sp.Fail(r.message(err))
		return nil
	}
	sp.Stop()
	r.pending = &p
	if err := r.render(view.Analysis(p, a)); err != nil {
		return err
	}
	r.printf("Rate your recall with 'solve <%d-%d>'.\n", domain.MinQuality, domain.MaxQuality)
	return nil
}

func (r *REPL) solve(ctx context.Context, args []string) error {
	if r.nav.State() != navigation.StateAuthenticated {
		return fmt.Errorf("%w: solve while %s", navigation.ErrInvalidTransition, r.nav.State())
	}
	if r.pending == nil {
		return errors.New("no analyzed problem; run 'analyze' first")
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: solve <%d-%d>", domain.MinQuality, domain.MaxQuality)
	}
	q, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("quality must be a number between %d and %d", domain.MinQuality, domain.MaxQuality)
	}
	req := domain.SolveRequest{Title: r.pending.Title, Difficulty: r.pending.Difficulty, Quality: q, URL: r.pending.URL}
	resp, err := r.reviews.Solve(ctx, req)
	if err != nil {
		return err
	}
	r.pending = nil
	r.printf("✓ %s\n", view.SolveMessage(resp))
	return nil
}

func (r *REPL) openSettings(ctx context.Context) error {
	if err := r.nav.OpenSettings(); err != nil {
		return err
	}
	return r.showSettings(ctx)
}

func (r *REPL) showSettings(ctx context.Context) error {
	s, err := r.settings.Settings(ctx)
	if err != nil {
		return err
	}
	return r.render(view.Settings(s))
}

func (r *REPL) back() error {
	if err := r.nav.Back(); err != nil {
		return err
	}
	snap := r.nav.Snapshot()
	if snap.Screen.Loads() {
		return r.show(snap.Screen)
	}
	return nil
}

func (r *REPL) set(ctx context.Context, args []string) error {
	if r.nav.State() != navigation.StateSettings {
		return errors.New("open settings first ('settings' or '5')")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: set KEY VALUE (keys: %s)", strings.Join(domain.SettingKeys, ", "))
	}
	s, err := r.settings.Settings(ctx)
	if err != nil {
		return err
	}
	if err := s.Set(args[0], strings.Join(args[1:], " ")); err != nil {
		return err
	}
	if err := r.settings.SaveSettings(ctx, s); err != nil {
		return err
	}
	v, _ := s.Get(args[0])
	r.printf("✓ %s = %s\n", args[0], v)
	return nil
}

func (r *REPL) resetSettings(ctx context.Context) error {
	if r.nav.State() != navigation.StateSettings {
		return errors.New("open settings first ('settings' or '5')")
	}
	if err := r.settings.SaveSettings(ctx, domain.DefaultSettings()); err != nil {
		return err
	}
	r.printf("✓ Settings restored to defaults\n")
	return r.showSettings(ctx)
}
