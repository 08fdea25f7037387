package site

import (
	"context"
	"errors"
	"regexp"

	"github.com/fhuszti/media-pipeline-go/internal/model"
)

var (
	// ErrContentNotFound means the source reports no retrievable media.
	ErrContentNotFound = errors.New("site: no content found")
	// ErrUpstream means the source endpoint failed or returned a
	// malformed payload after retries were exhausted.
	ErrUpstream = errors.New("site: upstream error")
)

// Match is a reference matched by one of a handler's patterns.
type Match struct {
	Ref    string
	Groups []string
}

// Group returns capture group i, or "" when absent.
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

// ResultKind tags the variant of a fetch Result.
type ResultKind int

const (
	// ResultContent carries a full media Content.
	ResultContent ResultKind = iota
	// ResultText carries only a caption, for posts without media the
	// handler still understands.
	ResultText
)

// Result is the tagged outcome of a fetch: media content or plain text.
// Callers branch on Kind instead of inspecting types at runtime.
type Result struct {
	Kind    ResultKind
	Content *model.Content
	Text    model.Caption
	// Headers are extra request headers required to download the media,
	// typically a Referer the source CDN insists on.
	Headers map[string]string
}

// ContentResult wraps a Content into a Result.
func ContentResult(c *model.Content) *Result {
	return &Result{Kind: ResultContent, Content: c}
}

// TextResult wraps a plain caption into a Result.
func TextResult(caption model.Caption) *Result {
	return &Result{Kind: ResultText, Text: caption}
}

// Handler is the per-site fetch contract consumed by the dispatcher.
// Patterns may overlap across handlers; the dispatcher resolves ambiguity
// by priority, highest first.
type Handler interface {
	// Name is the handler's collection name, unique across handlers.
	Name() string
	// Priority breaks ties when several handlers match a reference.
	Priority() int
	// Patterns are tried in declaration order against the reference.
	Patterns() []*regexp.Regexp
	// Fetch retrieves the post behind a matched reference and
	// normalizes it into a Result.
	Fetch(ctx context.Context, m Match) (*Result, error)
}
