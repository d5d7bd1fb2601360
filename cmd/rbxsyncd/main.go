package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbxsync/rbxsyncd/internal/client"
	"github.com/rbxsync/rbxsyncd/internal/config"
	"github.com/rbxsync/rbxsyncd/internal/ingest"
	"github.com/rbxsync/rbxsyncd/internal/mailbox"
	"github.com/rbxsync/rbxsyncd/internal/server"
	"github.com/rbxsync/rbxsyncd/internal/sourcemap"
	"github.com/rbxsync/rbxsyncd/internal/watch"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Command flags
	listenAddr    string
	serverURL     string
	watchManifest bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rbxsyncd",
	Short: "Synchronize editor scripts with a filesystem repository",
	Long: `rbxsyncd bridges a game editor and an on-disk Luau script repository.

It runs an HTTP sync server the editor-side plugin polls for import/export
commands and pushes script batches to; every accepted batch is written under
the project root and the sourcemap manifest is regenerated for language
tooling.

Running rbxsyncd with no subcommand starts the sync server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sync server",
	Long: `Serve starts the long-running HTTP sync server.

The editor-side plugin polls GET /poll for pending commands and pushes script
batches to POST /sync/update; the import and export subcommands (or any other
tooling) submit commands via POST /command.`,
	RunE: runServe,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Ask the running server to import scripts from the editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd.Context(), mailbox.CommandImport)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Ask the running server to export scripts to the editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd.Context(), mailbox.CommandExport)
	},
}

var sourcemapCmd = &cobra.Command{
	Use:   "sourcemap",
	Short: "Generate the sourcemap for language tooling",
	Long: `Sourcemap walks the script root and prints the manifest JSON to stdout.

With --watch it stays running, rewriting the manifest file whenever the
script tree changes. Every rewrite is a full re-walk.`,
	RunE: runSourcemap,
}

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the language server (placeholder)",
	RunE:  runLsp,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rbxsyncd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/rbxsyncd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Command flags
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	importCmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:8000", "base URL of the running sync server")
	exportCmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:8000", "base URL of the running sync server")
	sourcemapCmd.Flags().BoolVarP(&watchManifest, "watch", "w", false, "keep running and rewrite the manifest on script changes")

	// Add commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sourcemapCmd)
	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Serve.ListenAddr = listenAddr
	}

	ingestor := ingest.New(cfg, logger)
	srv := server.New(cfg, ingestor, logger)

	logger.Info("starting sync server", "project", cfg.Project.Root)
	if err := srv.Start(ctx); err != nil {
		logger.Error("sync server failed", "error", err)
		return err
	}

	return nil
}

func sendCommand(ctx context.Context, cmd mailbox.Command) error {
	logger := setupLogger()

	logger.Info("triggering command", "command", cmd, "server", serverURL)
	if err := client.New(serverURL).SendCommand(ctx, cmd); err != nil {
		logger.Error("command failed", "error", err)
		return err
	}

	logger.Info("command sent successfully")
	return nil
}

func runSourcemap(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !watchManifest {
		data, err := sourcemap.Marshal(sourcemap.Generate(cfg.Project.Root, cfg.Project.ScriptDir))
		if err != nil {
			return fmt.Errorf("failed to encode sourcemap: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	ingestor := ingest.New(cfg, logger)
	watcher := watch.New(cfg.ScriptRoot(), time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, func() {
		if err := ingestor.RefreshManifest(); err != nil {
			logger.Error("failed to refresh manifest", "error", err)
		}
	}, logger)

	return watcher.Run(ctx)
}

func runLsp(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Keeps the process alive so the editor does not treat the language
	// server as crashed; the protocol loop is not implemented yet.
	fmt.Println("rbxsyncd LSP started (placeholder)")
	<-ctx.Done()
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// An explicit --config must exist; the default location is optional.
	if cfgFile != "" {
		logger.Info("loading configuration", "path", cfgFile)
		return config.Load(cfgFile)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := fmt.Sprintf("%s/.config/rbxsyncd/config.yaml", home)
	if _, err := os.Stat(configPath); err != nil {
		logger.Debug("no config file found, using defaults", "path", configPath)
		return config.Default()
	}

	logger.Info("loading configuration", "path", configPath)
	return config.Load(configPath)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
