package port

import "context"

// SeenCache tracks which inbound references have already been processed.
type SeenCache interface {
	IsSeen(ctx context.Context, ref string) (bool, error)
	MarkSeen(ctx context.Context, ref string) error
}
