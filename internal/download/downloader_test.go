package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhuszti/media-pipeline-go/internal/model"
	"github.com/fhuszti/media-pipeline-go/internal/site"
)

func TestDownloadAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.jpg":
			_, _ = w.Write([]byte("image-a"))
		case "/b.mp4":
			_, _ = w.Write([]byte("video-b"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	content, err := model.NewContent("1", []*model.MediaItem{
		model.NewImage("a.jpg", srv.URL+"/a.jpg", "dest/a.jpg", "", nil, 0, 0),
		model.NewVideo("b.mp4", srv.URL+"/b.mp4", "dest/b.mp4", model.Caption{}),
	}, model.Caption{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := NewDownloader(srv.Client(), 1, time.Second, 2)
	dir, err := d.DownloadAll(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	for i, want := range []string{"image-a", "video-b"} {
		item := content.Items[i]
		if !item.Downloaded() {
			t.Fatalf("expected item %d to be downloaded", i)
		}
		data, err := os.ReadFile(item.LocalPath)
		if err != nil {
			t.Fatalf("reading item %d: %v", i, err)
		}
		if string(data) != want {
			t.Errorf("expected item %d content %q, got %q", i, want, data)
		}
		if filepath.Dir(item.LocalPath) != dir {
			t.Errorf("expected item %d under %q, got %q", i, dir, item.LocalPath)
		}
	}
	if got := *content.Items[0].SizeBytes; got != int64(len("image-a")) {
		t.Errorf("expected size %d, got %d", len("image-a"), got)
	}
}

func TestDownloadAllSendsHeaders(t *testing.T) {
	var gotReferer, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	content, _ := model.NewContent("1", []*model.MediaItem{
		model.NewImage("a.jpg", srv.URL+"/a.jpg", "dest/a.jpg", "", nil, 0, 0),
	}, model.Caption{}, nil, nil)

	d := NewDownloader(srv.Client(), 1, time.Second, 1)
	dir, err := d.DownloadAll(context.Background(), content, map[string]string{"Referer": "https://example.com/"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if gotReferer != "https://example.com/" {
		t.Errorf("expected referer to be forwarded, got %q", gotReferer)
	}
	if gotUA != site.UserAgent {
		t.Errorf("expected default user agent, got %q", gotUA)
	}
}

func TestDownloadAllRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	content, _ := model.NewContent("1", []*model.MediaItem{
		model.NewImage("a.jpg", srv.URL+"/a.jpg", "dest/a.jpg", "", nil, 0, 0),
	}, model.Caption{}, nil, nil)

	d := NewDownloader(srv.Client(), 3, time.Second, 1)
	dir, err := d.DownloadAll(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
}

func TestDownloadAllFailureCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	content, _ := model.NewContent("1", []*model.MediaItem{
		model.NewImage("a.jpg", srv.URL+"/a.jpg", "dest/a.jpg", "", nil, 0, 0),
		model.NewImage("bad.jpg", srv.URL+"/bad.jpg", "dest/bad.jpg", "", nil, 0, 0),
	}, model.Caption{}, nil, nil)

	d := NewDownloader(srv.Client(), 1, time.Second, 2)
	dir, err := d.DownloadAll(context.Background(), content, nil)
	if err == nil {
		_ = os.RemoveAll(dir)
		t.Fatal("expected an error")
	}
	if !errors.Is(err, site.ErrUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
	for i, item := range content.Items {
		if item.Downloaded() {
			t.Errorf("expected item %d local path to be cleared", i)
		}
	}
}

func TestDownloadAllSkipsDownloadedItems(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	already := model.NewImage("a.jpg", srv.URL+"/a.jpg", "dest/a.jpg", "", nil, 0, 0)
	already.LocalPath = "/tmp/already-there.jpg"
	content, _ := model.NewContent("1", []*model.MediaItem{
		already,
		model.NewImage("b.jpg", srv.URL+"/b.jpg", "dest/b.jpg", "", nil, 0, 0),
	}, model.Caption{}, nil, nil)

	d := NewDownloader(srv.Client(), 1, time.Second, 2)
	dir, err := d.DownloadAll(context.Background(), content, nil)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if calls != 1 {
		t.Errorf("expected 1 request, got %d", calls)
	}
	if already.LocalPath != "/tmp/already-there.jpg" {
		t.Errorf("expected pre-downloaded item untouched, got %q", already.LocalPath)
	}
}
