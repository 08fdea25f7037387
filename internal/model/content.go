package model

import (
	"encoding/json"
	"errors"
)

// ErrNoMediaItems is returned when a Content would be constructed without
// any media item; fetch paths surface it as a "no content found" failure.
var ErrNoMediaItems = errors.New("model: content must have at least one media item")

// Content is the canonical representation of one fetched source post.
type Content struct {
	ID      string          `json:"id"`
	Items   []*MediaItem    `json:"items"`
	Caption Caption         `json:"caption,omitzero"`
	Raw     json.RawMessage `json:"raw,omitempty"`
	Archive *ArchiveMeta    `json:"archive,omitempty"`
}

// NewContent builds a Content; a record with zero media items is invalid.
func NewContent(id string, items []*MediaItem, caption Caption, raw json.RawMessage, archive *ArchiveMeta) (*Content, error) {
	if len(items) == 0 {
		return nil, ErrNoMediaItems
	}
	return &Content{
		ID:      id,
		Items:   items,
		Caption: caption,
		Raw:     raw,
		Archive: archive,
	}, nil
}

// LocalFiles returns the local paths of all downloaded items, in item
// order.
func (c *Content) LocalFiles() []string {
	paths := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Downloaded() {
			paths = append(paths, item.LocalPath)
		}
	}
	return paths
}
