package port

import "context"

// Outcome summarises what processing a reference produced.
type Outcome struct {
	Handler   string `json:"handler"`
	ContentID string `json:"content_id,omitempty"`
	// Text is set when the handler produced a textual answer instead of media.
	Text   string `json:"text,omitempty"`
	Stored int    `json:"stored"`
}

// ReferenceProcessor runs an inbound reference through the whole pipeline.
type ReferenceProcessor interface {
	Process(ctx context.Context, ref string) (*Outcome, error)
}
