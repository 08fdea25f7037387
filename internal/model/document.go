package model

import "encoding/json"

// Document is the persisted descriptor of a processed post, handed to the
// transport/database layer: the source identifier, the collection it
// belongs to (one per site) and the raw source payload.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data,omitempty"`
}
