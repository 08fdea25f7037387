package storage

import (
	"context"

	"github.com/fhuszti/media-pipeline-go/internal/model"
)

// Disk persists a list of downloaded media items to one configured
// backend. It is the only extension point for new backends; no disk may
// assume anything about archive-upload ordering relative to itself, and
// disks share no mutable state.
type Disk interface {
	// Name identifies the disk in logs and aggregate results.
	Name() string
	// Store persists every item's local file under its DestPath. It
	// must not mutate or delete the local files.
	Store(ctx context.Context, items []*model.MediaItem) error
}
