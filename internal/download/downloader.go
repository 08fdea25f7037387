package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/retry"
	"github.com/fhuszti/media-pipeline-go/internal/site"
)

// Downloader fetches every media item of a Content into a per-content
// temporary directory, with bounded parallelism and per-request retries.
type Downloader struct {
	client   *http.Client
	attempts int
	timeout  time.Duration
	parallel int
}

// NewDownloader builds a Downloader. attempts and parallel default to 1
// when non-positive.
func NewDownloader(client *http.Client, attempts int, timeout time.Duration, parallel int) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if attempts < 1 {
		attempts = 1
	}
	if parallel < 1 {
		parallel = 1
	}
	return &Downloader{client: client, attempts: attempts, timeout: timeout, parallel: parallel}
}

// DownloadAll downloads every not-yet-downloaded item of content and
// returns the temporary directory holding the files. On failure the
// directory is removed and no item keeps a local path.
func (d *Downloader) DownloadAll(ctx context.Context, content *model.Content, headers map[string]string) (string, error) {
	dir, err := os.MkdirTemp("", "media-pipeline-"+uuid.New().String())
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	sem := make(chan struct{}, d.parallel)
	errs := make([]error, len(content.Items))

	var wg sync.WaitGroup
	for i, item := range content.Items {
		if item.Downloaded() {
			continue
		}
		wg.Add(1)
		go func(i int, item *model.MediaItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = d.downloadOne(ctx, dir, item, headers)
		}(i, item)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			for _, item := range content.Items {
				item.LocalPath = ""
			}
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("%w: %v", site.ErrUpstream, err)
		}
	}
	return dir, nil
}

func (d *Downloader) downloadOne(ctx context.Context, dir string, item *model.MediaItem, headers map[string]string) error {
	dest := filepath.Join(dir, item.Filename)
	logger.Debugf(ctx, "downloading %q to %q...", item.SourceURL, dest)

	err := retry.Do(ctx, d.attempts, d.timeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", site.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d downloading %s", resp.StatusCode, item.SourceURL)
		}

		out, err := os.Create(dest)
		if err != nil {
			return retry.Permanent(err)
		}
		written, err := io.Copy(out, resp.Body)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dest)
			return err
		}

		if item.SizeBytes == nil {
			item.SizeBytes = &written
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("downloading %q: %w", item.SourceURL, err)
	}

	item.LocalPath = dest
	return nil
}
