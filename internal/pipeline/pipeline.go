package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/port"
	"github.com/fhuszti/media-pipeline-go/internal/site"
	"github.com/fhuszti/media-pipeline-go/internal/storage"
)

// ErrAlreadyExists means the reference was processed before and is skipped.
var ErrAlreadyExists = errors.New("pipeline: reference already processed")

// Resolver maps an inbound reference to the site handler that claims it.
type Resolver interface {
	Resolve(ref string) (site.Handler, site.Match, error)
}

// Downloader fetches the media items of a Content into a temp directory.
type Downloader interface {
	DownloadAll(ctx context.Context, content *model.Content, headers map[string]string) (string, error)
}

// Storer runs the archive and disk fan-out for downloaded content.
type Storer interface {
	Store(ctx context.Context, content *model.Content) storage.Result
}

// Pipeline chains dispatch, fetch, download, storage and bookkeeping for a
// single inbound reference.
type Pipeline struct {
	resolver Resolver
	dl       Downloader
	store    Storer
	docs     port.DocumentRepository
	seen     port.SeenCache
}

// compile-time check: *Pipeline must satisfy port.ReferenceProcessor
var _ port.ReferenceProcessor = (*Pipeline)(nil)

// New wires a Pipeline. docs may be nil when raw documents should not be
// persisted.
func New(resolver Resolver, dl Downloader, store Storer, docs port.DocumentRepository, seen port.SeenCache) *Pipeline {
	return &Pipeline{resolver: resolver, dl: dl, store: store, docs: docs, seen: seen}
}

// Process runs ref through the whole pipeline and reports what it produced.
func (p *Pipeline) Process(ctx context.Context, ref string) (*port.Outcome, error) {
	h, m, err := p.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "processing %q via handler %q...", ref, h.Name())

	res, err := h.Fetch(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", ref, err)
	}
	if res.Kind == site.ResultText {
		return &port.Outcome{Handler: h.Name(), Text: res.Text.Text()}, nil
	}

	content := res.Content
	key := h.Name() + ":" + content.ID
	if alreadySeen, err := p.seen.IsSeen(ctx, key); err != nil {
		logger.Warnf(ctx, "could not check dedup cache for %q: %v", key, err)
	} else if alreadySeen {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}

	dir, err := p.dl.DownloadAll(ctx, content, res.Headers)
	if err != nil {
		return nil, fmt.Errorf("downloading media for %q: %w", key, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if r := p.store.Store(ctx, content); !r.OK() {
		errs := make([]error, 0, len(r.DiskErrors))
		for _, de := range r.DiskErrors {
			errs = append(errs, de)
		}
		return nil, fmt.Errorf("storing media for %q: %w", key, errors.Join(errs...))
	}

	p.saveDocument(ctx, h.Name(), content)

	if err := p.seen.MarkSeen(ctx, key); err != nil {
		logger.Warnf(ctx, "could not mark %q as seen: %v", key, err)
	}

	return &port.Outcome{Handler: h.Name(), ContentID: content.ID, Stored: len(content.Items)}, nil
}

func (p *Pipeline) saveDocument(ctx context.Context, collection string, content *model.Content) {
	if p.docs == nil || len(content.Raw) == 0 {
		return
	}
	doc := &model.Document{ID: content.ID, Collection: collection, Data: content.Raw}
	if err := p.docs.Save(ctx, doc); err != nil {
		logger.Warnf(ctx, "could not save raw document %s/%s: %v", collection, content.ID, err)
	}
}
