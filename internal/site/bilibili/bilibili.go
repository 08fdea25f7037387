package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/site"
)

const (
	collection = "bilibili"
	priority   = 5

	dynamicAPI = "https://api.bilibili.com/x/polymer/web-dynamic/v1/detail?id="

	// API code for dynamics that no longer exist.
	codeNotFound = 4101147
)

var patterns = []*regexp.Regexp{
	// https://t.bilibili.com/123456789012345678
	regexp.MustCompile(`t\.bilibili\.com/(\d+)`),
	// https://t.bilibili.com/h5/dynamic/detail/123456789012345678
	regexp.MustCompile(`t\.bilibili\.com/h5/dynamic/detail/(\d+)`),
	// https://www.bilibili.com/opus/123456789012345678
	regexp.MustCompile(`bilibili\.com/opus/(\d+)`),
	regexp.MustCompile(`m\.bilibili\.com/dynamic/(\d+)`),
	// b23.tv/O8xWAlB
	regexp.MustCompile(`b23\.tv/(\w+)`),
}

// Options configure the bilibili handler.
type Options struct {
	Fetch       site.FetchOptions
	Destination string
	Filename    string
	// API overrides the dynamic-detail endpoint, for tests.
	API string
	// ShortLinkBase overrides the b23.tv base URL, for tests.
	ShortLinkBase string
}

// Handler fetches bilibili dynamics.
type Handler struct {
	opts Options
}

// compile-time check: *Handler must satisfy site.Handler
var _ site.Handler = (*Handler)(nil)

func New(opts Options) *Handler {
	if opts.Destination == "" {
		opts.Destination = "bilibili"
	}
	if opts.Filename == "" {
		opts.Filename = "{id_str}_{index} - {user}"
	}
	if opts.API == "" {
		opts.API = dynamicAPI
	}
	if opts.ShortLinkBase == "" {
		opts.ShortLinkBase = "https://b23.tv/"
	}
	return &Handler{opts: opts}
}

func (h *Handler) Name() string               { return collection }
func (h *Handler) Priority() int              { return priority }
func (h *Handler) Patterns() []*regexp.Regexp { return patterns }

func (h *Handler) Fetch(ctx context.Context, m site.Match) (*site.Result, error) {
	dynamicID := m.Group(1)
	if _, err := strconv.ParseInt(dynamicID, 10, 64); err != nil {
		resolved, err := h.resolveShortLink(ctx, dynamicID)
		if err != nil {
			return nil, err
		}
		dynamicID = resolved
	}

	raw, item, err := h.getDynamic(ctx, dynamicID)
	if err != nil {
		return nil, err
	}

	items, err := h.images(item)
	if err != nil {
		return nil, err
	}

	caption := model.Caption{
		Author:  "#" + item.Modules.Author.Name,
		Content: item.Modules.Dynamic.Desc.Text,
		URL:     "https://www.bilibili.com/opus/" + dynamicID,
	}

	content, err := model.NewContent(dynamicID, items, caption, raw, archiveMeta(dynamicID, item))
	if err != nil {
		return nil, err
	}
	return site.ContentResult(content), nil
}

type dynamicItem struct {
	IDStr   string `json:"id_str"`
	Modules struct {
		Author struct {
			Mid   int64  `json:"mid"`
			Name  string `json:"name"`
			PubTs int64  `json:"pub_ts"`
		} `json:"module_author"`
		Dynamic struct {
			Desc struct {
				Text string `json:"text"`
			} `json:"desc"`
			Major *struct {
				Draw struct {
					Items []drawItem `json:"items"`
				} `json:"draw"`
			} `json:"major"`
		} `json:"module_dynamic"`
	} `json:"modules"`
}

type drawItem struct {
	Src string `json:"src"`
	// Size is reported in KB and is not always trustworthy.
	Size   float64 `json:"size"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

func (h *Handler) getDynamic(ctx context.Context, dynamicID string) (json.RawMessage, *dynamicItem, error) {
	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    *struct {
			Item json.RawMessage `json:"item"`
		} `json:"data"`
	}
	if err := site.GetJSON(ctx, h.opts.API+dynamicID, &resp, h.opts.Fetch); err != nil {
		return nil, nil, err
	}

	// For some IDs, the API returns code 0 but empty content.
	if resp.Code == codeNotFound || resp.Data == nil {
		return nil, nil, fmt.Errorf("%w: dynamic %s", site.ErrContentNotFound, dynamicID)
	}
	if resp.Code != 0 {
		return nil, nil, fmt.Errorf("%w: code %d, message %q", site.ErrUpstream, resp.Code, resp.Message)
	}

	var item dynamicItem
	if err := json.Unmarshal(resp.Data.Item, &item); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding dynamic %s: %v", site.ErrUpstream, dynamicID, err)
	}
	return resp.Data.Item, &item, nil
}

func (h *Handler) images(item *dynamicItem) ([]*model.MediaItem, error) {
	major := item.Modules.Dynamic.Major
	if major == nil || len(major.Draw.Items) == 0 {
		return nil, fmt.Errorf("%w: no image in dynamic", site.ErrContentNotFound)
	}

	items := make([]*model.MediaItem, 0, len(major.Draw.Items))
	for index, pic := range major.Draw.Items {
		basename := path.Base(pic.Src)
		ext := path.Ext(basename)
		vars := map[string]string{
			"id_str":    item.IDStr,
			"index":     strconv.Itoa(index),
			"user":      item.Modules.Author.Name,
			"filename":  basename[:len(basename)-len(ext)],
			"extension": ext,
			"timestamp": time.Unix(item.Modules.Author.PubTs, 0).UTC().Format(time.RFC3339),
		}
		filename := site.ExpandTemplate(h.opts.Filename, vars) + ext
		dest := path.Join(site.ExpandTemplate(h.opts.Destination, vars), filename)

		items = append(items, model.NewImage(
			filename,
			pic.Src,
			dest,
			pic.Src+"@518w.jpg",
			// Size is in KB; sometimes the API reports a value that is
			// not in whole bytes, in which case we just ignore it.
			model.Size(pic.Size*1024),
			pic.Width,
			pic.Height,
		))
	}
	return items, nil
}

func archiveMeta(dynamicID string, item *dynamicItem) *model.ArchiveMeta {
	uid := strconv.FormatInt(item.Modules.Author.Mid, 10)
	return &model.ArchiveMeta{
		Artist: model.Artist{
			Name:       "bili_" + uid,
			OtherNames: item.Modules.Author.Name,
			URLString:  "https://space.bilibili.com/" + uid,
		},
		TagStr: "bili_dyn",
		Source: model.SourceDescription{
			SourceURL:      "https://t.bilibili.com/" + dynamicID,
			CommentaryDesc: item.Modules.Dynamic.Desc.Text,
		},
	}
}

// resolveShortLink follows a b23.tv redirect and extracts the dynamic ID
// from the target URL.
func (h *Handler) resolveShortLink(ctx context.Context, code string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.ShortLinkBase+code, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", site.ErrUpstream, err)
	}
	req.Header.Set("User-Agent", site.UserAgent)

	base := h.opts.Fetch.Client
	if base == nil {
		base = http.DefaultClient
	}
	// Only the redirect target matters, do not chase it.
	client := &http.Client{
		Transport: base.Transport,
		Timeout:   base.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: resolving b23.tv/%s: %v", site.ErrUpstream, code, err)
	}
	defer func() { _ = resp.Body.Close() }()

	target := resp.Header.Get("Location")
	if target == "" {
		target = resp.Request.URL.String()
	}
	for _, p := range patterns {
		if m := p.FindStringSubmatch(target); m != nil {
			if _, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return m[1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: no dynamic behind b23.tv/%s", site.ErrContentNotFound, code)
}
