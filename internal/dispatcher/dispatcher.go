package dispatcher

import (
	"errors"
	"sort"

	"github.com/fhuszti/media-pipeline-go/internal/site"
)

// ErrNoHandlerMatched is returned when no registered pattern matches an
// inbound reference.
var ErrNoHandlerMatched = errors.New("dispatcher: no handler matched reference")

// Registry holds the registered site handlers and resolves inbound
// references to exactly one of them. Resolution is pure selection: no
// network access happens before a handler is picked.
type Registry struct {
	handlers []site.Handler
}

// NewRegistry builds a registry from the given handlers, ordered by
// descending priority. Registration order breaks priority ties.
func NewRegistry(handlers ...site.Handler) *Registry {
	r := &Registry{}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register adds a handler, keeping the priority ordering stable.
func (r *Registry) Register(h site.Handler) {
	r.handlers = append(r.handlers, h)
	sort.SliceStable(r.handlers, func(i, j int) bool {
		return r.handlers[i].Priority() > r.handlers[j].Priority()
	})
}

// Handlers returns the registered handlers in resolution order.
func (r *Registry) Handlers() []site.Handler {
	return r.handlers
}

// Resolve picks the handler for a reference: handlers are tried in
// descending priority order, and within a handler its patterns are tried
// in declaration order. The first pattern that matches wins.
func (r *Registry) Resolve(ref string) (site.Handler, site.Match, error) {
	for _, h := range r.handlers {
		for _, p := range h.Patterns() {
			groups := p.FindStringSubmatch(ref)
			if groups == nil {
				continue
			}
			return h, site.Match{Ref: ref, Groups: groups}, nil
		}
	}
	return nil, site.Match{}, ErrNoHandlerMatched
}
