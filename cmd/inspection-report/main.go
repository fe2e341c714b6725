package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/inspection-report/internal/analysis"
	"github.com/a3tai/inspection-report/internal/config"
	"github.com/a3tai/inspection-report/internal/logging"
	"github.com/a3tai/inspection-report/internal/mcp"
	"github.com/a3tai/inspection-report/internal/report"
	"github.com/a3tai/inspection-report/internal/schema"
	"github.com/a3tai/inspection-report/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newComposer builds the report composer shared by both modes
func newComposer(cfg *config.Config, logger *zap.Logger) *report.Composer {
	return report.NewComposer(report.Options{
		Schema:       schema.Default(),
		Prefix:       cfg.ReportPrefix,
		Author:       cfg.ServerName,
		MaxPhotoSize: cfg.MaxPhotoSize,
		Logger:       logger.Named("report"),
	})
}

// newAnalyzer returns nil when no analysis key is configured
func newAnalyzer(cfg *config.Config, logger *zap.Logger) *analysis.Client {
	if !cfg.AnalysisEnabled() {
		return nil
	}
	return analysis.NewClient(analysis.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiURL,
		Logger:  logger.Named("analysis"),
	})
}

// runServerMode serves the web form until a signal or a listener error
func runServerMode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	composer := newComposer(cfg, logger)
	server, err := web.New(cfg, web.Options{
		Composer: composer,
		Analyzer: newAnalyzer(cfg, logger),
	}, logger.Named("web"))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Start()
	}()

	select {
	case sig := <-signalCh:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-serverErrCh

	case err := <-serverErrCh:
		return err
	}
}

// runStdioMode serves the MCP tools; the parent process owns our lifecycle
func runStdioMode(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	server, err := mcp.NewServer(cfg, newComposer(cfg, logger), newAnalyzer(cfg, logger), logger.Named("mcp"))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if isVersionFlag(arg) {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("Starting with configuration", zap.Stringer("config", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		err = runServerMode(ctx, cfg, logger)
	} else {
		err = runStdioMode(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func isVersionFlag(arg string) bool {
	return arg == "-version" || arg == "--version" || arg == "-v"
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Inspection Report\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
