package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
)

// LocalDisk copies files into a directory tree on the local filesystem.
type LocalDisk struct {
	baseDir string
}

// compile-time check: *LocalDisk must satisfy Disk
var _ Disk = (*LocalDisk)(nil)

// NewLocalDisk builds a local-filesystem disk rooted at baseDir.
func NewLocalDisk(baseDir string) *LocalDisk {
	return &LocalDisk{baseDir: baseDir}
}

func (d *LocalDisk) Name() string { return "local" }

func (d *LocalDisk) Store(ctx context.Context, items []*model.MediaItem) error {
	for _, item := range items {
		if !item.Downloaded() {
			continue
		}
		dest := filepath.Join(d.baseDir, filepath.FromSlash(item.DestPath))
		logger.Debugf(ctx, "copying %q to %q...", item.LocalPath, dest)

		if err := copyFile(item.LocalPath, dest); err != nil {
			return fmt.Errorf("storing %q: %w", item.DestPath, err)
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
