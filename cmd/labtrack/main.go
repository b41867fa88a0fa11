package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/erazemk/labtrack/internal/api"
	"github.com/erazemk/labtrack/internal/auth"
	"github.com/erazemk/labtrack/internal/config"
	"github.com/erazemk/labtrack/internal/db"
	"github.com/erazemk/labtrack/internal/ledger"
	"github.com/erazemk/labtrack/internal/metrics"
	"github.com/erazemk/labtrack/internal/notify"
	"github.com/erazemk/labtrack/internal/schedule"
	"github.com/erazemk/labtrack/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

const usage = `Usage: labtrack [serve|token] [flags]

Commands:
  serve                   run the HTTP server (default)
  token <email> [name]    print a local identity token for the jwt verifier

Flags:
  -c, -config <path>      YAML config file (default: none)
  -d, -db <dsn>           SQLite path or postgres:// URL (default: labtrack.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Other settings come from the config file, .env and LABTRACK_* variables.
`

// flags are the command-line overrides shared by both commands.
type flags struct {
	configPath string
	dbDSN      string
	addr       string
	logPath    string
}

func parseFlags(name string, args []string) (*flag.FlagSet, flags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var f flags
	fs.StringVar(&f.configPath, "config", "", "")
	fs.StringVar(&f.configPath, "c", "", "")
	fs.StringVar(&f.dbDSN, "db", "", "")
	fs.StringVar(&f.dbDSN, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")

	err := fs.Parse(args)
	return fs, f, err
}

// loadConfig reads the configuration and applies explicit flags on top.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.dbDSN != "" {
		cfg.DB = f.dbDSN
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.logPath != "" {
		cfg.LogPath = f.logPath
	}
	return cfg, nil
}

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	fs, f, err := parseFlags(cmd, args)
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Fprint(os.Stdout, usage)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n\n%s", err, usage)
		os.Exit(1)
	}

	switch cmd {
	case "serve":
		if fs.NArg() > 0 {
			fmt.Fprintf(os.Stderr, "unexpected argument: %s\n\n%s", fs.Arg(0), usage)
			os.Exit(1)
		}
		if err := serve(f); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	case "token":
		if fs.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "token requires an email\n\n%s", usage)
			os.Exit(1)
		}
		token, err := cmdToken(f, fs.Arg(0), fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}
}

// openStore opens the database, applies the schema and returns the store.
func openStore(dsn string) (*store.Store, func(), error) {
	database, driver, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(database, driver); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return store.New(database, driver), func() { database.Close() }, nil
}

// jwtSecret prefers the configured secret and falls back to the one kept
// in the database.
func jwtSecret(ctx context.Context, cfg *config.Config, st *store.Store) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	return st.GetJWTSecret(ctx)
}

// cmdToken mints a local identity token. The hosted domain is the
// configured one, or the email's domain when none is configured.
func cmdToken(f flags, email, name string) (string, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return "", err
	}
	st, closeDB, err := openStore(cfg.DB)
	if err != nil {
		return "", err
	}
	defer closeDB()

	secret, err := jwtSecret(context.Background(), cfg, st)
	if err != nil {
		return "", err
	}
	return mintToken(secret, cfg.AllowedDomain, email, name)
}

func mintToken(secret, domain, email, name string) (string, error) {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("invalid email %q", email)
	}
	if domain == "" {
		domain = email[at+1:]
	}
	return auth.GenerateToken(secret, email, name, domain)
}

func serve(f flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeDB, err := openStore(cfg.DB)
	if err != nil {
		return err
	}
	defer closeDB()
	slog.Info("database ready", "driver", db.DriverFor(cfg.DB))

	var verifier auth.Verifier
	switch cfg.Verifier {
	case config.VerifierJWT:
		secret, err := jwtSecret(ctx, cfg, st)
		if err != nil {
			return err
		}
		verifier = &auth.JWTVerifier{Secret: secret}
	default:
		if cfg.GoogleClientID == "" {
			slog.Warn("google_client_id not set, token audience is not checked")
		}
		verifier = auth.NewTokenInfoVerifier(auth.DefaultTokenInfoURL, cfg.GoogleClientID)
	}

	inventory := ledger.New(st)
	inventory.Location = loc
	if err := inventory.EnsureTables(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var sender notify.Sender = notify.NopSender{}
	if cfg.SlackWebhook != "" {
		sender = notify.NewSlackSender(cfg.SlackWebhook)
	} else {
		slog.Warn("slack_webhook not set, notifications are discarded")
	}
	outbox := notify.NewOutbox(sender, 64, m)
	router := notify.NewRouter(inventory, outbox, sender, m)
	router.Location = loc
	inventory.SetNotifier(router)

	authn := &auth.Authenticator{
		Verifier:   verifier,
		Domain:     cfg.AllowedDomain,
		AllowLocal: cfg.AllowLocal,
		Settings:   inventory,
	}

	dispatch, err := api.NewDispatchHandler(inventory, authn, router, m)
	if err != nil {
		return err
	}
	handler, err := api.NewRouter(api.Config{Dispatch: dispatch, Gatherer: reg, RateLimit: cfg.RateLimit})
	if err != nil {
		return err
	}

	sched := schedule.New(router, inventory)
	sched.DigestHour = cfg.DigestHour
	sched.SweepHour = cfg.SweepHour
	sched.Location = loc
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "domain", cfg.AllowedDomain, "verifier", cfg.Verifier)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-schedDone
		outbox.Close()
		return fmt.Errorf("listening: %w", err)
	}

	<-schedDone
	slog.Info("server stopped, flushing notifications")
	outbox.Close()
	return nil
}
