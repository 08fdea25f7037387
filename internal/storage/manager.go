package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
)

// ArchiveUploader is the archive stage the manager runs before the disk
// fan-out.
type ArchiveUploader interface {
	Upload(ctx context.Context, content *model.Content) error
}

// DiskError is one failed backend in an aggregate store result.
type DiskError struct {
	Disk string
	Err  error
}

func (e DiskError) Error() string {
	return fmt.Sprintf("storage: disk %q: %v", e.Disk, e.Err)
}

func (e DiskError) Unwrap() error { return e.Err }

// Result aggregates the outcome of one Store call so callers can detect
// partial failure. Nothing in it is fatal to the process.
type Result struct {
	ArchiveErr  error
	DiskErrors  []DiskError
	CleanupErrs []error
}

// OK reports whether every disk completed and cleanup succeeded. The
// archive stage is best-effort and does not affect OK.
func (r Result) OK() bool {
	return len(r.DiskErrors) == 0 && len(r.CleanupErrs) == 0
}

// Manager runs the archive stage, fans the content's files out to every
// configured disk concurrently, then deletes the local temporary files.
type Manager struct {
	uploader ArchiveUploader
	disks    []Disk
}

// NewManager builds a Manager. uploader may be nil when archival is not
// configured.
func NewManager(uploader ArchiveUploader, disks ...Disk) *Manager {
	return &Manager{uploader: uploader, disks: disks}
}

// Store distributes a fetched Content: archive upload first (best-effort),
// then the concurrent disk fan-out, then cleanup. Local files are deleted
// only after every disk has finished, successfully or not, since a disk
// may still be reading them until the barrier completes.
func (m *Manager) Store(ctx context.Context, content *model.Content) Result {
	var res Result

	if m.uploader != nil {
		if err := m.uploader.Upload(ctx, content); err != nil {
			logger.Warnf(ctx, "archive upload for content %q failed: %v", content.ID, err)
			res.ArchiveErr = err
		}
	}

	res.DiskErrors = m.fanOut(ctx, content)
	res.CleanupErrs = m.cleanup(ctx, content)

	logger.Infof(ctx, "storage completed for content %q (%d disk(s), %d failure(s))",
		content.ID, len(m.disks), len(res.DiskErrors))
	return res
}

// fanOut launches every disk's Store concurrently and joins on a barrier
// that waits for all of them; one disk's failure never cancels a sibling.
func (m *Manager) fanOut(ctx context.Context, content *model.Content) []DiskError {
	errs := make([]error, len(m.disks))

	var wg sync.WaitGroup
	for i, disk := range m.disks {
		wg.Add(1)
		go func(i int, disk Disk) {
			defer wg.Done()
			errs[i] = disk.Store(ctx, content.Items)
		}(i, disk)
	}
	wg.Wait()

	var failed []DiskError
	for i, err := range errs {
		if err != nil {
			logger.Errorf(ctx, "disk %q failed to store content %q: %v", m.disks[i].Name(), content.ID, err)
			failed = append(failed, DiskError{Disk: m.disks[i].Name(), Err: err})
		}
	}
	return failed
}

// cleanup deletes the local temporary files, at most once per item.
func (m *Manager) cleanup(ctx context.Context, content *model.Content) []error {
	var errs []error
	for _, item := range content.Items {
		if !item.Downloaded() {
			continue
		}
		if err := os.Remove(item.LocalPath); err != nil {
			logger.Errorf(ctx, "error while deleting file %q: %v", item.LocalPath, err)
			errs = append(errs, err)
			continue
		}
		item.LocalPath = ""
	}
	return errs
}
