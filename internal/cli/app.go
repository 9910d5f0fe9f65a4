// Package cli implements the gigachat command line on top of pkg/gigachat.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gigachat/config"
	"gigachat/internal/logging"
	"gigachat/pkg/core"
	"gigachat/pkg/gigachat"
)

// ConfigLoader loads configuration from an optional YAML path.
type ConfigLoader func(path string) (*config.Config, error)

// ClientFactory creates an API client from loaded configuration.
type ClientFactory func(ctx context.Context, cfg *config.Config, opts ...gigachat.Option) (*gigachat.Client, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// WithConfigLoader replaces config.Load.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithClientFactory replaces gigachat.NewFromConfig.
func WithClientFactory(factory ClientFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig ConfigLoader
	newClient  ClientFactory
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer

	cfgFile    string
	logFormat  string
	logLevel   string
	jsonOutput bool

	cfg     *config.Config
	logger  *slog.Logger
	metrics *http.Server
}

// NewApp creates the CLI with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig: config.Load,
		newClient:  gigachat.NewFromConfig,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gigachat",
		Short: "GigaChat API command line client",
		Long: `gigachat talks to the GigaChat generative API: chat completions,
embeddings, AI-text checks, function validation and batch jobs.

The authorization key is read from GIGACHAT_CREDENTIALS (or the config file)
and prompted for when neither is set and stdin is a terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.stopMetrics()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml when present)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(a.newChatCommand())
	root.AddCommand(a.newEmbedCommand())
	root.AddCommand(a.newCheckCommand())
	root.AddCommand(a.newFunctionCommand())
	root.AddCommand(a.newBatchCommand())
	root.AddCommand(a.newTokenCommand())
	root.AddCommand(a.newVersionCommand())
	return root
}

// Run executes the command line given by args.
// With --json, API failures are also written to stdout as an error document.
func (a *App) Run(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	err := a.root.ExecuteContext(ctx)

	var apiErr *core.Error
	if err != nil && a.jsonOutput && errors.As(err, &apiErr) {
		_ = a.outputJSON(map[string]any{"error": map[string]any{
			"type":    apiErr.Type,
			"message": apiErr.Message,
			"status":  apiErr.HTTPStatusCode(),
		}})
	}
	return err
}

func (a *App) initConfig() error {
	cfg, err := a.loadConfig(a.cfgFile)
	if err != nil {
		return exitWithCode(ExitValidation, fmt.Errorf("load config: %w", err))
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}
	logger, err := logging.New(cfg.Log.Format, level, a.stderr)
	if err != nil {
		return exitWithCode(ExitValidation, err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// client builds an API client, prompting for the authorization key when
// it is not configured.
func (a *App) client(ctx context.Context) (*gigachat.Client, error) {
	if a.cfg.GigaChat.Credentials == "" {
		secret, err := a.promptSecret()
		if err != nil {
			return nil, err
		}
		a.cfg.GigaChat.Credentials = secret
	}

	opts := []gigachat.Option{gigachat.WithLogger(a.logger)}
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		opts = append(opts, gigachat.WithMetrics(reg))
		a.startMetrics(reg)
	}

	client, err := a.newClient(ctx, a.cfg, opts...)
	if err != nil {
		return nil, classify(err)
	}
	return client, nil
}

func (a *App) promptSecret() (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", exitWithCode(ExitValidation,
			errors.New("authorization key required: set GIGACHAT_CREDENTIALS or gigachat.credentials"))
	}

	fmt.Fprint(a.stderr, "Authorization key: ")
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", exitWithCode(ExitValidation, fmt.Errorf("read authorization key: %w", err))
	}
	s := strings.TrimSpace(string(secret))
	if s == "" {
		return "", exitWithCode(ExitValidation, errors.New("authorization key cannot be empty"))
	}
	return s, nil
}

func (a *App) startMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Endpoint, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := a.metrics
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.logger.Info("prometheus metrics enabled", "address", srv.Addr, "endpoint", a.cfg.Metrics.Endpoint)
}

func (a *App) stopMetrics() error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.metrics.Shutdown(ctx)
	a.metrics = nil
	return err
}

func (a *App) outputJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Execute runs the default app with the process arguments.
func Execute(ctx context.Context) error {
	return NewApp().Run(ctx, os.Args[1:])
}
