package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDuplicatePost is the repository's signal that the content
	// already exists; callers treat it as an idempotent success.
	ErrDuplicatePost = errors.New("archive: duplicate post")
	// ErrTimeout is a transport-level timeout on an archive call.
	ErrTimeout = errors.New("archive: request timed out")
	// ErrMalformedResponse means the repository answered with a body
	// that could not be decoded.
	ErrMalformedResponse = errors.New("archive: malformed response")
)

// duplicateIndicator marks a duplicate-post rejection in an error body,
// e.g. "Duplicate post #123". Only checked on non-2xx responses so a
// success body echoing a "duplicate" tag is never misread.
const duplicateIndicator = "duplicate post"

// Client talks to the external tag-based media repository. Every method
// is a single HTTP call; none of them is idempotent on the remote side.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	apiKey   string
}

// NewClient builds an archive client authenticating with HTTP Basic auth.
func NewClient(baseURL, username, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		apiKey:   apiKey,
	}
}

// UploadMediaAsset is one file of an upload batch, as reported by the
// repository.
type UploadMediaAsset struct {
	ID           int64 `json:"id"`
	MediaAssetID int64 `json:"media_asset_id"`
}

// ArtistParams are the fields of an artist registration.
type ArtistParams struct {
	Name       string
	OtherNames string
	GroupName  string
	URLString  string
}

// PostParams are the fields of a post creation.
type PostParams struct {
	MediaAssetID       int64
	UploadMediaAssetID int64
	TagString          string
	Source             string
	CommentaryTitle    string
	CommentaryDesc     string
	ParentID           int64
}

// CreateUpload uploads the given local files as one batch and returns the
// upload id.
func (c *Client) CreateUpload(ctx context.Context, files []string) (int64, error) {
	body, contentType, err := multipartFiles(files)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads.json", body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req)
	if err != nil {
		return 0, err
	}
	return decodeID(raw)
}

// GetUpload returns the per-file asset identifiers of an upload batch.
func (c *Client) GetUpload(ctx context.Context, uploadID int64) ([]UploadMediaAsset, error) {
	u := fmt.Sprintf("%s/uploads/%d.json", c.baseURL, uploadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var out struct {
		UploadMediaAssets []UploadMediaAsset `json:"upload_media_assets"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.UploadMediaAssets, nil
}

// CreateArtist registers an artist. The repository rejects an artist that
// already exists; that failure is non-fatal to callers.
func (c *Client) CreateArtist(ctx context.Context, a ArtistParams) error {
	form := url.Values{}
	form.Set("artist[name]", a.Name)
	form.Set("artist[other_names]", a.OtherNames)
	form.Set("artist[group_name]", a.GroupName)
	form.Set("artist[url_string]", a.URLString)
	form.Set("artist[body]", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/artists.json", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = c.do(req)
	return err
}

// CreatePost turns one uploaded media asset into a post and returns the
// post id. A zero ParentID means the post starts a new group.
func (c *Client) CreatePost(ctx context.Context, p PostParams) (int64, error) {
	form := url.Values{}
	form.Set("media_asset_id", strconv.FormatInt(p.MediaAssetID, 10))
	form.Set("upload_media_asset_id", strconv.FormatInt(p.UploadMediaAssetID, 10))
	form.Set("post[rating]", "g")
	form.Set("post[tag_string]", p.TagString)
	form.Set("post[is_pending]", "0")
	form.Set("post[source]", p.Source)
	form.Set("post[artist_commentary_title]", p.CommentaryTitle)
	form.Set("post[artist_commentary_desc]", p.CommentaryDesc)
	form.Set("post[translated_commentary_title]", "")
	form.Set("post[translated_commentary_desc]", "")
	if p.ParentID > 0 {
		form.Set("post[parent_id]", strconv.FormatInt(p.ParentID, 10))
	} else {
		form.Set("post[parent_id]", "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts.json", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := c.do(req)
	if err != nil {
		return 0, err
	}
	return decodeID(raw)
}

// do sends the request and classifies the response: 200/201/202 return the
// JSON body, 204 is success with no body, a duplicate-post indicator in
// any body is ErrDuplicatePost, everything else is a hard error.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	req.SetBasicAuth(c.username, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrMalformedResponse, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return body, nil
	default:
		if strings.Contains(strings.ToLower(string(body)), duplicateIndicator) {
			return nil, ErrDuplicatePost
		}
		return nil, fmt.Errorf("archive: %s %s returned status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(string(body), 200))
	}
}

func decodeID(raw json.RawMessage) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.ID, nil
}

func multipartFiles(files []string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, file := range files {
		part, err := w.CreateFormFile(fmt.Sprintf("upload[files][%d]", i), filepath.Base(file))
		if err != nil {
			return nil, "", err
		}
		f, err := os.Open(file)
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(part, f)
		_ = f.Close()
		if err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
