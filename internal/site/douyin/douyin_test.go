package douyin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fhuszti/media-pipeline-go/internal/site"
)

func newTestHandler(t *testing.T, data string) *Handler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("minimal"); got != "false" {
			t.Errorf("expected minimal=false, got %q", got)
		}
		_, _ = fmt.Fprintf(w, `{"code": 200, "message": "ok", "data": %s}`, data)
	}))
	t.Cleanup(srv.Close)

	return New(Options{Endpoint: srv.URL, Fetch: site.FetchOptions{Client: srv.Client()}})
}

func TestFetchVideoPost(t *testing.T) {
	h := newTestHandler(t, `{
		"aweme_id": "7465981563767901498",
		"aweme_type": 4,
		"desc": "dance",
		"create_time": 1700000000,
		"author": {"nickname": "dancer"},
		"author_user_id": 99,
		"video": {
			"bit_rate": [
				{"bit_rate": 1000, "format": "mp4", "play_addr": {"url_list": ["https://cdn.example/low.mp4"]}},
				{"bit_rate": 4000, "format": "mp4", "play_addr": {"url_list": ["https://cdn.example/high.mp4"]}}
			],
			"play_addr": {"url_list": ["https://cdn.example/playwm/default"]}
		}
	}`)

	res, err := h.Fetch(context.Background(), site.Match{Groups: []string{"", "www.douyin.com/video/7465981563767901498"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Kind != site.ResultContent {
		t.Fatalf("expected a content result, got kind %d", res.Kind)
	}
	if len(res.Content.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(res.Content.Items))
	}
	item := res.Content.Items[0]
	if item.SourceURL != "https://cdn.example/high.mp4" {
		t.Errorf("expected highest-bitrate rendition, got %q", item.SourceURL)
	}
	if item.Filename != "7465981563767901498_0 - 99.mp4" {
		t.Errorf("unexpected filename %q", item.Filename)
	}
	if res.Headers["Referer"] != "https://www.douyin.com/" {
		t.Errorf("expected douyin referer on download headers, got %v", res.Headers)
	}
	if res.Content.Caption.Author != "#dancer" {
		t.Errorf("unexpected caption author %q", res.Content.Caption.Author)
	}
}

func TestFetchVideoPostFallsBackToDefaultRendition(t *testing.T) {
	h := newTestHandler(t, `{
		"aweme_id": "1",
		"aweme_type": 0,
		"desc": "",
		"author": {"nickname": "a"},
		"author_user_id": 1,
		"video": {"play_addr": {"url_list": ["https://cdn.example/playwm/video123"]}}
	}`)

	res, err := h.Fetch(context.Background(), site.Match{Groups: []string{"", "v.douyin.com/abc/"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := res.Content.Items[0].SourceURL; got != "https://cdn.example/play/video123" {
		t.Errorf("expected un-watermarked URL, got %q", got)
	}
}

func TestFetchImagePost(t *testing.T) {
	h := newTestHandler(t, `{
		"aweme_id": "2",
		"aweme_type": 68,
		"desc": "pics",
		"author": {"nickname": "a"},
		"author_user_id": 1,
		"images": [
			{"url_list": ["https://cdn.example/img/a.webp"], "width": 10, "height": 20},
			{"url_list": ["https://cdn.example/img/b.webp"], "width": 30, "height": 40}
		]
	}`)

	res, err := h.Fetch(context.Background(), site.Match{Groups: []string{"", "www.douyin.com/note/2"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(res.Content.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Content.Items))
	}
	if got := res.Content.Items[1].Filename; got != "2_1 - 1.webp" {
		t.Errorf("unexpected filename %q", got)
	}
	if res.Content.Items[1].Width != 30 || res.Content.Items[1].Height != 40 {
		t.Errorf("unexpected dimensions %dx%d", res.Content.Items[1].Width, res.Content.Items[1].Height)
	}
}

func TestFetchTextOnlyPost(t *testing.T) {
	h := newTestHandler(t, `{
		"aweme_id": "3",
		"aweme_type": 999,
		"desc": "nothing to download",
		"author": {"nickname": "a"},
		"author_user_id": 1
	}`)

	res, err := h.Fetch(context.Background(), site.Match{Groups: []string{"", "www.douyin.com/other/3"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if res.Kind != site.ResultText {
		t.Fatalf("expected a text result, got kind %d", res.Kind)
	}
	if res.Text.Content != "nothing to download" {
		t.Errorf("unexpected text caption: %+v", res.Text)
	}
}

func TestFetchMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 400, "message": "invalid url"}`))
	}))
	defer srv.Close()

	h := New(Options{Endpoint: srv.URL, Fetch: site.FetchOptions{Client: srv.Client()}})
	_, err := h.Fetch(context.Background(), site.Match{Groups: []string{"", "www.douyin.com/video/0"}})
	if !errors.Is(err, site.ErrContentNotFound) {
		t.Errorf("expected ErrContentNotFound, got %v", err)
	}
}

func TestPatternsMatchKnownRefs(t *testing.T) {
	h := New(Options{})
	ref := "3.30 09/23 J@v.fo PKJ:/ some share text https://v.douyin.com/ifwEwmBg/ 复制此链接"
	var got string
	for _, p := range h.Patterns() {
		if m := p.FindStringSubmatch(ref); m != nil {
			got = m[1]
			break
		}
	}
	if got != "https://v.douyin.com/ifwEwmBg/" {
		t.Errorf("unexpected match %q", got)
	}
}
