package task

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeProcessReference = "reference:process"

type ProcessReferencePayload struct {
	Ref string `json:"ref"`
}

// NewProcessReferenceTask creates an Asynq task for processing an inbound
// reference.
func NewProcessReferenceTask(ref string) (*asynq.Task, error) {
	p := ProcessReferencePayload{Ref: ref}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("could not marshal process-reference payload: %w", err)
	}
	return asynq.NewTask(TypeProcessReference, data), nil
}

// ParseProcessReferencePayload parses the task payload to ProcessReferencePayload.
func ParseProcessReferencePayload(t *asynq.Task) (ProcessReferencePayload, error) {
	var p ProcessReferencePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return ProcessReferencePayload{}, fmt.Errorf("could not unmarshal payload: %w", err)
	}
	return p, nil
}
