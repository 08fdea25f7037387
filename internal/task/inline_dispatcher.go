package task

import (
	"context"

	"github.com/fhuszti/media-pipeline-go/internal/port"
)

// InlineDispatcher runs references through the processor synchronously
// instead of queueing them. Used when Redis is not configured.
type InlineDispatcher struct {
	processor port.ReferenceProcessor
}

// compile-time check
var _ port.TaskDispatcher = (*InlineDispatcher)(nil)

func NewInlineDispatcher(processor port.ReferenceProcessor) *InlineDispatcher {
	return &InlineDispatcher{processor: processor}
}

func (d *InlineDispatcher) EnqueueProcessReference(ctx context.Context, ref string) error {
	_, err := d.processor.Process(ctx, ref)
	return err
}
