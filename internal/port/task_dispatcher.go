package port

import "context"

// TaskDispatcher enqueues asynchronous tasks related to reference processing.
type TaskDispatcher interface {
	EnqueueProcessReference(ctx context.Context, ref string) error
}
