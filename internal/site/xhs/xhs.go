package xhs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/site"
)

const (
	collection = "xhs"
	priority   = 4
)

var patterns = []*regexp.Regexp{
	// https://www.xiaohongshu.com/explore/<noteID>?xsec_token=XXX
	regexp.MustCompile(`(https?://www\.xiaohongshu\.com/explore/[a-zA-Z0-9_\-]+(?:\?[^?\s]*)?)`),
	// https://www.xiaohongshu.com/discovery/item/<noteID>?xsec_token=XXX
	regexp.MustCompile(`(https?://www\.xiaohongshu\.com/discovery/item/[a-zA-Z0-9_\-]+(?:\?[^?\s]*)?)`),
	// https://xhslink.com/<shareCode>
	regexp.MustCompile(`(https?://xhslink\.com/[a-zA-Z0-9_\-/]+)`),
}

// Options configure the xiaohongshu handler.
type Options struct {
	Fetch       site.FetchOptions
	Destination string
	Filename    string
	// Endpoint is the resolver service URL. Required.
	Endpoint string
	// Cookie is forwarded to the resolver when set.
	Cookie string
}

// Handler fetches xiaohongshu notes through a resolver service.
type Handler struct {
	opts Options
}

// compile-time check: *Handler must satisfy site.Handler
var _ site.Handler = (*Handler)(nil)

func New(opts Options) *Handler {
	if opts.Destination == "" {
		opts.Destination = "xhs"
	}
	if opts.Filename == "" {
		opts.Filename = "{id_str}_{index} - {user}"
	}
	return &Handler{opts: opts}
}

func (h *Handler) Name() string               { return collection }
func (h *Handler) Priority() int              { return priority }
func (h *Handler) Patterns() []*regexp.Regexp { return patterns }

func (h *Handler) Fetch(ctx context.Context, m site.Match) (*site.Result, error) {
	noteURL := m.Group(1)

	raw, note, err := h.getNote(ctx, noteURL)
	if err != nil {
		return nil, err
	}
	note.NoteID = note.id(noteURL)

	caption := model.Caption{
		Author: "#" + note.AuthorName,
		Title:  note.Title,
		URL:    noteURL,
	}

	var items []*model.MediaItem
	switch {
	case note.isVideo():
		items, err = h.video(note)
	case note.isImage():
		items, err = h.images(note)
	default:
		// Notes with no media, e.g. pure text posts.
		return site.TextResult(caption), nil
	}
	if err != nil {
		return nil, err
	}

	content, err := model.NewContent(note.NoteID, items, caption, raw, nil)
	if err != nil {
		return nil, err
	}
	return site.ContentResult(content), nil
}

// note is the resolver's payload. The upstream service reports its fields
// under Chinese keys.
type note struct {
	NoteID     string   `json:"作品ID"`
	Title      string   `json:"作品标题"`
	Desc       string   `json:"作品描述"`
	Type       string   `json:"作品类型"`
	Link       string   `json:"作品链接"`
	AuthorID   string   `json:"作者ID"`
	AuthorName string   `json:"作者昵称"`
	Downloads  []string `json:"下载地址"`
	Gifs       []string `json:"动图地址"`
}

func (n *note) isVideo() bool {
	return strings.Contains(n.Type, "视频")
}

func (n *note) isImage() bool {
	return strings.Contains(n.Type, "图")
}

// id falls back to the last URL path segment when the resolver omits the
// note ID.
func (n *note) id(noteURL string) string {
	if id := strings.TrimSpace(n.NoteID); id != "" {
		return id
	}
	trimmed := strings.SplitN(noteURL, "?", 2)[0]
	return strings.TrimSpace(path.Base(strings.TrimRight(trimmed, "/")))
}

func (h *Handler) getNote(ctx context.Context, noteURL string) (json.RawMessage, *note, error) {
	if h.opts.Endpoint == "" {
		return nil, nil, fmt.Errorf("%w: no resolver endpoint configured", site.ErrUpstream)
	}

	payload := map[string]any{"url": noteURL, "download": false}
	if h.opts.Cookie != "" {
		payload["cookie"] = h.opts.Cookie
	}

	var resp struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := site.PostJSON(ctx, h.opts.Endpoint, payload, &resp, h.opts.Fetch); err != nil {
		return nil, nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil, fmt.Errorf("%w: note %q: %s", site.ErrContentNotFound, noteURL, resp.Message)
	}

	var n note
	if err := json.Unmarshal(resp.Data, &n); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding note %q: %v", site.ErrUpstream, noteURL, err)
	}
	return resp.Data, &n, nil
}

func (h *Handler) video(n *note) ([]*model.MediaItem, error) {
	videoURL := firstNonEmpty(n.Downloads)
	if videoURL == "" {
		videoURL = firstNonEmpty(n.Gifs)
	}
	if videoURL == "" {
		return nil, fmt.Errorf("%w: no video in note", site.ErrContentNotFound)
	}

	ext := "." + videoFormat(videoURL)
	vars := h.templateVars(n, ext, 0)
	filename := site.ExpandTemplate(h.opts.Filename, vars) + ext
	dest := path.Join(site.ExpandTemplate(h.opts.Destination, vars), filename)
	return []*model.MediaItem{
		model.NewVideo(filename, videoURL, dest, model.Caption{}),
	}, nil
}

func (h *Handler) images(n *note) ([]*model.MediaItem, error) {
	items := make([]*model.MediaItem, 0, len(n.Downloads))
	for _, picURL := range n.Downloads {
		if picURL == "" {
			continue
		}
		index := len(items)
		ext := ".jpg"
		vars := h.templateVars(n, ext, index)
		filename := site.ExpandTemplate(h.opts.Filename, vars) + ext
		dest := path.Join(site.ExpandTemplate(h.opts.Destination, vars), filename)
		items = append(items, model.NewImage(filename, picURL, dest, "", nil, 0, 0))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no image in note", site.ErrContentNotFound)
	}
	return items, nil
}

func (h *Handler) templateVars(n *note, ext string, index int) map[string]string {
	return map[string]string{
		"id_str":    n.NoteID,
		"index":     strconv.Itoa(index),
		"user":      n.AuthorName,
		"filename":  n.NoteID,
		"extension": ext,
	}
}

func firstNonEmpty(urls []string) string {
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}

// videoFormat guesses the container format from the URL path, defaulting
// to mp4.
func videoFormat(rawURL string) string {
	p := strings.SplitN(rawURL, "?", 2)[0]
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(p)), "."))
	if ext == "" || len(ext) > 5 {
		return "mp4"
	}
	return ext
}
