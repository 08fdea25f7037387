package task

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/fhuszti/media-pipeline-go/internal/port"
)

type Dispatcher struct {
	client *asynq.Client
}

// compile-time check
var _ port.TaskDispatcher = (*Dispatcher)(nil)

func NewDispatcher(addr, password string) *Dispatcher {
	c := asynq.NewClient(asynq.RedisClientOpt{Addr: addr, Password: password})
	return &Dispatcher{client: c}
}

func (d *Dispatcher) EnqueueProcessReference(ctx context.Context, ref string) error {
	t, err := NewProcessReferenceTask(ref)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, t); err != nil {
		return err
	}
	return nil
}
