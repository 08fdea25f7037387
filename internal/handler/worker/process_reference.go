package worker

import (
	"context"
	"errors"
	"log"

	"github.com/fhuszti/media-pipeline-go/internal/dispatcher"
	"github.com/fhuszti/media-pipeline-go/internal/pipeline"
	"github.com/fhuszti/media-pipeline-go/internal/port"
	"github.com/fhuszti/media-pipeline-go/internal/task"
)

// ProcessReferenceHandler handles a process-reference task.
// It delegates the reference to the processing pipeline and maps the
// outcomes that should not trigger a task retry to a success.
func ProcessReferenceHandler(ctx context.Context, p task.ProcessReferencePayload, svc port.ReferenceProcessor) error {
	out, err := svc.Process(ctx, p.Ref)
	if err != nil {
		if errors.Is(err, dispatcher.ErrNoHandlerMatched) {
			log.Printf("⚠️  No site handles reference %q, dropping it", p.Ref)
			return nil
		}
		if errors.Is(err, pipeline.ErrAlreadyExists) {
			log.Printf("⚠️  Reference %q was already archived, skipping", p.Ref)
			return nil
		}
		log.Printf("❌  Failed to process reference %q: %v", p.Ref, err)
		return err
	}

	if out.Stored == 0 && out.Text != "" {
		log.Printf("✅  Resolved reference %q to a text-only post on %s", p.Ref, out.Handler)
		return nil
	}

	log.Printf("✅  Successfully archived %d media for post #%s on %s", out.Stored, out.ContentID, out.Handler)
	return nil
}
