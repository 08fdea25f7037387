package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fhuszti/media-pipeline-go/internal/retry"
)

// UserAgent is sent on every request to a source site.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// FetchOptions bound the shared JSON fetch helper.
type FetchOptions struct {
	Client   *http.Client
	Attempts int
	Timeout  time.Duration
	Headers  map[string]string
}

func (o FetchOptions) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o FetchOptions) attempts() int {
	if o.Attempts > 0 {
		return o.Attempts
	}
	return 1
}

// GetJSON fetches url and decodes the JSON response into out, retrying
// transport failures and non-success statuses up to the configured attempt
// count. Exhausted attempts surface as ErrUpstream.
func GetJSON(ctx context.Context, url string, out any, opts FetchOptions) error {
	return requestJSON(ctx, http.MethodGet, url, nil, out, opts)
}

// PostJSON sends body as JSON to url and decodes the response into out,
// with the same retry behaviour as GetJSON.
func PostJSON(ctx context.Context, url string, body any, out any, opts FetchOptions) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrUpstream, err)
	}
	return requestJSON(ctx, http.MethodPost, url, payload, out, opts)
}

func requestJSON(ctx context.Context, method, url string, body []byte, out any, opts FetchOptions) error {
	err := retry.Do(ctx, opts.attempts(), opts.Timeout, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", UserAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := opts.client().Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("status %d from %s", resp.StatusCode, url)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", url, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}
