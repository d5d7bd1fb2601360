package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupLogger(t *testing.T) {
	// Save original globals.
	origLevel := logLevel
	origFormat := logFormat
	t.Cleanup(func() {
		logLevel = origLevel
		logFormat = origFormat
	})

	for _, tc := range []struct {
		name      string
		logLevel  string
		logFormat string
	}{
		{name: "debug/text", logLevel: "debug", logFormat: "text"},
		{name: "info/json", logLevel: "info", logFormat: "json"},
		{name: "warn/text", logLevel: "warn", logFormat: "text"},
		{name: "error/text", logLevel: "error", logFormat: "text"},
		{name: "unknown/text", logLevel: "unknown", logFormat: "text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logLevel = tc.logLevel
			logFormat = tc.logFormat

			logger := setupLogger()
			if logger == nil {
				t.Fatal("setupLogger returned nil")
			}
		})
	}
}

func TestLoadConfig_WithExplicitPath(t *testing.T) {
	origCfgFile := cfgFile
	t.Cleanup(func() { cfgFile = origCfgFile })

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := []byte(`project:
  root: "` + tmpDir + `"
  script_dir: "game"
serve:
  listen_addr: "127.0.0.1:9100"
`)
	if err := os.WriteFile(configPath, configContent, 0644); err != nil {
		t.Fatal(err)
	}

	cfgFile = configPath
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg, err := loadConfig(logger)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Project.Root != tmpDir {
		t.Errorf("expected root %s, got %s", tmpDir, cfg.Project.Root)
	}
	if cfg.Serve.ListenAddr != "127.0.0.1:9100" {
		t.Errorf("expected listen addr 127.0.0.1:9100, got %s", cfg.Serve.ListenAddr)
	}
}

func TestLoadConfig_ExplicitPathMissing(t *testing.T) {
	origCfgFile := cfgFile
	t.Cleanup(func() { cfgFile = origCfgFile })

	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if _, err := loadConfig(logger); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	origCfgFile := cfgFile
	t.Cleanup(func() { cfgFile = origCfgFile })

	cfgFile = ""
	// Point HOME at an empty directory so no real config is picked up.
	t.Setenv("HOME", t.TempDir())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg, err := loadConfig(logger)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Project.ScriptDir != "game" {
		t.Errorf("expected default script dir game, got %s", cfg.Project.ScriptDir)
	}
	if cfg.Serve.ListenAddr != ":8000" {
		t.Errorf("expected default listen addr :8000, got %s", cfg.Serve.ListenAddr)
	}
}
