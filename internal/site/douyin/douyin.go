package douyin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/site"
)

const (
	collection = "douyin"
	priority   = 4

	// Default endpoint of a local Douyin_TikTok_Download_API instance.
	defaultEndpoint = "http://127.0.0.1:8080/api/hybrid/video_data"
)

var patterns = []*regexp.Regexp{
	// Share links and full URLs alike, e.g.
	// https://v.douyin.com/ifwEwmBg/ or
	// https://www.douyin.com/video/7465981563767901498
	regexp.MustCompile(`(\S*\.douyin\.com/\S*)`),
}

// contentKinds maps aweme type codes to a media kind. Posts with an
// unknown code carry nothing downloadable and fall back to text.
var contentKinds = map[int]model.MediaKind{
	// common
	0: model.MediaKindVideo,
	// Douyin
	2:  model.MediaKindImage,
	4:  model.MediaKindVideo,
	68: model.MediaKindImage,
	// TikTok
	51:  model.MediaKindVideo,
	55:  model.MediaKindVideo,
	58:  model.MediaKindVideo,
	61:  model.MediaKindVideo,
	150: model.MediaKindImage,
}

// DownloadHeaders are required by the douyin CDN.
var DownloadHeaders = map[string]string{
	"Referer":         "https://www.douyin.com/",
	"Accept-Language": "zh-CN,zh;q=0.8,zh-TW;q=0.7,zh-HK;q=0.5,en-US;q=0.3,en;q=0.2",
}

// Options configure the douyin handler.
type Options struct {
	Fetch       site.FetchOptions
	Destination string
	Filename    string
	// Endpoint is the resolver service URL.
	Endpoint string
}

// Handler fetches douyin posts through a resolver service.
type Handler struct {
	opts Options
}

// compile-time check: *Handler must satisfy site.Handler
var _ site.Handler = (*Handler)(nil)

func New(opts Options) *Handler {
	if opts.Destination == "" {
		opts.Destination = "douyin"
	}
	if opts.Filename == "" {
		opts.Filename = "{id_str}_{index} - {user}"
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	return &Handler{opts: opts}
}

func (h *Handler) Name() string               { return collection }
func (h *Handler) Priority() int              { return priority }
func (h *Handler) Patterns() []*regexp.Regexp { return patterns }

func (h *Handler) Fetch(ctx context.Context, m site.Match) (*site.Result, error) {
	ref := m.Group(1)

	raw, data, err := h.getPost(ctx, ref)
	if err != nil {
		return nil, err
	}

	caption := model.Caption{
		Author:  "#" + data.Author.Nickname,
		Content: data.Desc,
		URL:     ref,
	}

	var items []*model.MediaItem
	switch contentKinds[data.AwemeType] {
	case model.MediaKindVideo:
		items, err = h.video(data)
	case model.MediaKindImage:
		items, err = h.images(data)
	default:
		return site.TextResult(caption), nil
	}
	if err != nil {
		return nil, err
	}

	content, err := model.NewContent(data.AwemeID, items, caption, raw, nil)
	if err != nil {
		return nil, err
	}
	res := site.ContentResult(content)
	res.Headers = DownloadHeaders
	return res, nil
}

type post struct {
	AwemeID    string `json:"aweme_id"`
	AwemeType  int    `json:"aweme_type"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"create_time"`
	Author     struct {
		Nickname string `json:"nickname"`
	} `json:"author"`
	AuthorUserID int64 `json:"author_user_id"`
	Video        struct {
		BitRate  []rendition `json:"bit_rate"`
		PlayAddr playAddr    `json:"play_addr"`
	} `json:"video"`
	Images []struct {
		URLList []string `json:"url_list"`
		Width   int      `json:"width"`
		Height  int      `json:"height"`
	} `json:"images"`
}

func (h *Handler) getPost(ctx context.Context, ref string) (json.RawMessage, *post, error) {
	endpoint := h.opts.Endpoint + "?url=" + url.QueryEscape(ref) + "&minimal=false"

	var resp struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := site.GetJSON(ctx, endpoint, &resp, h.opts.Fetch); err != nil {
		return nil, nil, err
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil, fmt.Errorf("%w: post %q", site.ErrContentNotFound, ref)
	}
	if resp.Code != 200 {
		return nil, nil, fmt.Errorf("%w: code %d, message %q", site.ErrUpstream, resp.Code, resp.Message)
	}

	var data post
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding post %q: %v", site.ErrUpstream, ref, err)
	}
	return resp.Data, &data, nil
}

func (h *Handler) video(data *post) ([]*model.MediaItem, error) {
	var videoURL, ext string
	if best := bestBitRate(data); best != nil {
		videoURL = best.PlayAddr.URLList[0]
		ext = "." + best.Format
	} else if urls := data.Video.PlayAddr.URLList; len(urls) > 0 {
		// Default rendition is watermarked; the un-watermarked file sits
		// behind the same path with playwm swapped for play.
		videoURL = strings.Replace(urls[0], "playwm", "play", 1)
		ext = ".mp4"
	} else {
		return nil, fmt.Errorf("%w: no playable video", site.ErrContentNotFound)
	}

	vars := h.templateVars(data, "", ext, 0)
	filename := site.ExpandTemplate(h.opts.Filename, vars) + ext
	dest := path.Join(site.ExpandTemplate(h.opts.Destination, vars), filename)
	return []*model.MediaItem{
		model.NewVideo(filename, videoURL, dest, model.Caption{}),
	}, nil
}

type playAddr struct {
	URLList []string `json:"url_list"`
}

type rendition struct {
	BitRate  int64    `json:"bit_rate"`
	Format   string   `json:"format"`
	PlayAddr playAddr `json:"play_addr"`
}

func bestBitRate(data *post) *rendition {
	var best *rendition
	for i := range data.Video.BitRate {
		v := &data.Video.BitRate[i]
		if len(v.PlayAddr.URLList) == 0 {
			continue
		}
		if best == nil || v.BitRate > best.BitRate {
			best = v
		}
	}
	return best
}

func (h *Handler) images(data *post) ([]*model.MediaItem, error) {
	if len(data.Images) == 0 {
		return nil, fmt.Errorf("%w: no image in post", site.ErrContentNotFound)
	}

	items := make([]*model.MediaItem, 0, len(data.Images))
	for index, pic := range data.Images {
		if len(pic.URLList) == 0 {
			continue
		}
		picURL := pic.URLList[0]
		basename := urlBasename(picURL)
		ext := path.Ext(basename)
		if ext == "" {
			ext = ".jpeg"
		}
		vars := h.templateVars(data, strings.TrimSuffix(basename, ext), ext, index)
		filename := site.ExpandTemplate(h.opts.Filename, vars) + ext
		dest := path.Join(site.ExpandTemplate(h.opts.Destination, vars), filename)
		items = append(items, model.NewImage(filename, picURL, dest, "", nil, pic.Width, pic.Height))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no image in post", site.ErrContentNotFound)
	}
	return items, nil
}

func (h *Handler) templateVars(data *post, filename, ext string, index int) map[string]string {
	return map[string]string{
		"id_str":    data.AwemeID,
		"index":     strconv.Itoa(index),
		"user":      strconv.FormatInt(data.AuthorUserID, 10),
		"filename":  filename,
		"extension": ext,
		"timestamp": strconv.FormatInt(data.CreateTime, 10),
	}
}

func urlBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return path.Base(raw)
	}
	return path.Base(u.Path)
}
