// Package ingest materializes script batches pushed by the editor-side
// plugin and keeps the sourcemap manifest current.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbxsync/rbxsyncd/internal/config"
	"github.com/rbxsync/rbxsyncd/internal/sourcemap"
)

// FileEntry is one file payload in an ingest batch.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Ingestor writes incoming file batches under the project root and
// regenerates the manifest afterwards.
type Ingestor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a new ingestor
func New(cfg *config.Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		cfg:    cfg,
		logger: logger,
	}
}

// Apply writes each entry of the batch to disk. Processing is best effort
// and not transactional: an unsafe path or a failed write skips that entry
// and continues with the rest. After the batch the manifest is regenerated
// regardless of per-entry failures; a manifest write failure is logged but
// never fails the call.
func (i *Ingestor) Apply(files []FileEntry) {
	for _, file := range files {
		if file.Path == "" {
			i.logger.Warn("skipping entry with empty path")
			continue
		}

		// Reject parent-directory traversal anywhere in the path.
		if strings.Contains(file.Path, "..") {
			i.logger.Warn("skipping unsafe path", "path", file.Path)
			continue
		}

		dest := filepath.Join(i.cfg.Project.Root, filepath.FromSlash(file.Path))

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			i.logger.Error("failed to create directory", "path", filepath.Dir(dest), "error", err)
			continue
		}

		if err := writeFile(dest, []byte(file.Content)); err != nil {
			i.logger.Error("failed to write file", "path", dest, "error", err)
			continue
		}

		i.logger.Info("imported file", "path", dest)
	}

	if err := i.RefreshManifest(); err != nil {
		i.logger.Error("failed to refresh sourcemap manifest", "error", err)
	}
}

// RefreshManifest rebuilds the sourcemap from the script root and overwrites
// the manifest file. Every refresh is a full re-walk.
func (i *Ingestor) RefreshManifest() error {
	root := sourcemap.Generate(i.cfg.Project.Root, i.cfg.Project.ScriptDir)

	data, err := sourcemap.Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to encode sourcemap: %w", err)
	}

	if err := writeFile(i.cfg.ManifestPath(), data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	i.logger.Info("manifest regenerated", "path", i.cfg.ManifestPath())
	return nil
}

// writeFile writes content to dst with atomic replace, so a concurrent
// reader never observes a half-written file.
func writeFile(dst string, content []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".rbxsyncd-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(0644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}
