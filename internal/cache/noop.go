package cache

import (
	"context"

	"github.com/fhuszti/media-pipeline-go/internal/port"
)

type NoopCache struct{}

// compile-time check: *NoopCache must satisfy port.SeenCache
var _ port.SeenCache = (*NoopCache)(nil)

func NewNoop() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) IsSeen(ctx context.Context, ref string) (bool, error) {
	return false, nil // never seen
}

func (n *NoopCache) MarkSeen(ctx context.Context, ref string) error { return nil }
