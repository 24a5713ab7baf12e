// Interviewd is a business-case interview practice daemon.
//
// This binary starts the interviewd HTTP server with full service
// initialization: PDF text extraction, case structure extraction, the
// fact store with its embedding client, the completion oracle, and the
// optional case directory watcher.
//
// Configuration is loaded from ~/.config/interviewd/config.yaml and
// INTERVIEWD_-prefixed environment variables; flags override both. See
// internal/config for the precedence rules.
//
// Usage:
//
//	# Start the daemon with defaults
//	interviewd
//
//	# Serve on another port and watch a case directory
//	interviewd -listen localhost:9090 -watch-dir ~/cases
//
//	# Configure via environment
//	INTERVIEWD_ORACLE_MODEL=gpt-4o-mini OPENAI_API_KEY=sk-... interviewd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/interviewd/internal/chunker"
	"github.com/fyrsmithlabs/interviewd/internal/config"
	"github.com/fyrsmithlabs/interviewd/internal/embeddings"
	"github.com/fyrsmithlabs/interviewd/internal/extraction"
	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
	"github.com/fyrsmithlabs/interviewd/internal/logging"
	"github.com/fyrsmithlabs/interviewd/internal/oracle"
	"github.com/fyrsmithlabs/interviewd/internal/pdftext"
	"github.com/fyrsmithlabs/interviewd/internal/server"
	"github.com/fyrsmithlabs/interviewd/internal/telemetry"
	"github.com/fyrsmithlabs/interviewd/internal/watcher"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// options holds the parsed command-line flags.
type options struct {
	configPath string
	listen     string
	dataDir    string
	watchDir   string
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file (default ~/.config/interviewd/config.yaml)")
	flag.StringVar(&opts.listen, "listen", "", "listen address as host:port, overrides config")
	flag.StringVar(&opts.dataDir, "data-dir", "", "fact store data directory, overrides config")
	flag.StringVar(&opts.watchDir, "watch-dir", "", "case PDF directory to watch, overrides config")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides config")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  interviewd           Start the interviewd daemon\n")
			fmt.Fprintf(os.Stderr, "  interviewd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Load a .env file if one is present; running without one is fine.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("interviewd: %v", err)
	}
	log.Println("Shutdown complete")
}

func printVersion() {
	fmt.Printf("interviewd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration, apply flag overrides
//  2. Initialize the logger and the telemetry provider
//  3. Build collaborators (PDF reader, extractor, fact store, oracle)
//  4. Wire the HTTP server and the optional directory watcher
//  5. Run both until cancellation or the first failure
func run(ctx context.Context, opts options) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("preparing config directory: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cfg, opts); err != nil {
		return err
	}

	logger, err := logging.NewLogger(&cfg.Logging, nil)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zlog := logger.Underlying()

	zlog.Info("Starting interviewd",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("extraction_provider", cfg.Extraction.Provider),
		zap.Bool("watcher_enabled", cfg.Watcher.Enabled()))

	telemetryProvider, err := telemetry.New(ctx, cfg.Telemetry, zlog)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			zlog.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	deps, err := initDependencies(cfg, zlog)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	srv, err := server.New(cfg.Server, server.Deps{
		Pages:     deps.pages,
		Extractor: deps.extractor,
		Facts:     deps.facts,
		Oracle:    deps.oracle,
		Cases:     deps.cases,
		Sessions:  deps.sessions,
	}, zlog)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	caseWatcher, err := watcher.New(cfg.Watcher, deps.pages, deps.extractor, deps.facts, deps.cases, zlog)
	if err != nil {
		return fmt.Errorf("initializing watcher: %w", err)
	}

	zlog.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s/healthz", cfg.Server.Addr())),
		zap.String("api_prefix", "/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	// Server and watcher run until cancellation; the first failure
	// stops the other.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start(runCtx) }()
	go func() { errCh <- caseWatcher.Start(runCtx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// applyFlagOverrides lays command-line flags over the loaded config
// and re-validates the result.
func applyFlagOverrides(cfg *config.Config, opts options) error {
	if opts.listen != "" {
		host, portStr, err := net.SplitHostPort(opts.listen)
		if err != nil {
			return fmt.Errorf("invalid -listen address %q: %w", opts.listen, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid -listen port %q: %w", portStr, err)
		}
		if host != "" {
			cfg.Server.Host = host
		}
		cfg.Server.Port = port
	}
	if opts.dataDir != "" {
		cfg.FactStore.DataDir = opts.dataDir
	}
	if opts.watchDir != "" {
		cfg.Watcher.Dir = opts.watchDir
	}
	if opts.logLevel != "" {
		level, err := zapcore.ParseLevel(opts.logLevel)
		if err != nil {
			return fmt.Errorf("invalid -log-level %q: %w", opts.logLevel, err)
		}
		cfg.Logging.Level = level
	}
	return cfg.Validate()
}

// dependencies holds the collaborators shared by the HTTP server and
// the directory watcher.
type dependencies struct {
	pages     *pdftext.Extractor
	extractor extraction.CaseExtractor
	facts     *factstore.Service
	oracle    *oracle.Client
	cases     *interview.CaseRegistry
	sessions  *interview.Registry
}

// initDependencies builds the service graph bottom-up: tokenizer and
// embedder feed the fact store, the oracle feeds extraction and the
// interview engine.
func initDependencies(cfg *config.Config, zlog *zap.Logger) (*dependencies, error) {
	splitter, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	embedder, err := embeddings.New(cfg.Embeddings, zlog)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	zlog.Info("Embedding client initialized",
		zap.String("base_url", cfg.Embeddings.BaseURL),
		zap.String("model", cfg.Embeddings.Model))

	facts, err := factstore.New(cfg.FactStore, embedder, splitter, zlog)
	if err != nil {
		return nil, fmt.Errorf("creating fact store: %w", err)
	}
	zlog.Info("Fact store initialized",
		zap.String("data_dir", cfg.FactStore.DataDir),
		zap.Int("default_k", cfg.FactStore.DefaultK))

	oracleClient, err := oracle.New(cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("creating oracle client: %w", err)
	}
	zlog.Info("Oracle client initialized",
		zap.String("base_url", cfg.Oracle.BaseURL),
		zap.String("model", cfg.Oracle.Model))

	extractor, err := extraction.New(cfg.Extraction, oracleClient, zlog)
	if err != nil {
		return nil, fmt.Errorf("creating case extractor: %w", err)
	}

	pages, err := pdftext.New(zlog)
	if err != nil {
		return nil, fmt.Errorf("creating pdf extractor: %w", err)
	}

	return &dependencies{
		pages:     pages,
		extractor: extractor,
		facts:     facts,
		oracle:    oracleClient,
		cases:     interview.NewCaseRegistry(),
		sessions:  interview.NewRegistry(),
	}, nil
}
