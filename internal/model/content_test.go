package model

import (
	"errors"
	"testing"
)

func TestNewContent_RejectsEmptyItems(t *testing.T) {
	_, err := NewContent("42", nil, Caption{}, nil, nil)
	if !errors.Is(err, ErrNoMediaItems) {
		t.Fatalf("err = %v; want ErrNoMediaItems", err)
	}

	_, err = NewContent("42", []*MediaItem{}, Caption{}, nil, nil)
	if !errors.Is(err, ErrNoMediaItems) {
		t.Fatalf("err = %v; want ErrNoMediaItems", err)
	}
}

func TestNewContent_KeepsItemOrder(t *testing.T) {
	items := []*MediaItem{
		NewImage("a.jpg", "https://example.com/a.jpg", "site/a.jpg", "", nil, 100, 100),
		NewImage("b.jpg", "https://example.com/b.jpg", "site/b.jpg", "", nil, 100, 100),
		NewImage("c.jpg", "https://example.com/c.jpg", "site/c.jpg", "", nil, 100, 100),
	}
	c, err := NewContent("42", items, Caption{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range c.Items {
		if item != items[i] {
			t.Errorf("item %d out of order", i)
		}
	}
}

func TestContent_LocalFiles(t *testing.T) {
	downloaded := NewImage("a.jpg", "u", "d/a.jpg", "", nil, 0, 0)
	downloaded.LocalPath = "/tmp/x/a.jpg"
	pending := NewImage("b.jpg", "u", "d/b.jpg", "", nil, 0, 0)

	c, err := NewContent("1", []*MediaItem{downloaded, pending}, Caption{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	files := c.LocalFiles()
	if len(files) != 1 || files[0] != "/tmp/x/a.jpg" {
		t.Errorf("LocalFiles() = %v; want [/tmp/x/a.jpg]", files)
	}
}

func TestSize_DropsNonIntegralValues(t *testing.T) {
	if got := Size(2048); got == nil || *got != 2048 {
		t.Errorf("Size(2048) = %v; want 2048", got)
	}
	if got := Size(1536.5); got != nil {
		t.Errorf("Size(1536.5) = %v; want nil", got)
	}
}

func TestCaption_Text(t *testing.T) {
	c := Caption{Author: "#alice", Content: "hello", URL: "https://example.com/1"}
	want := "#alice\nhello\nhttps://example.com/1"
	if got := c.Text(); got != want {
		t.Errorf("Text() = %q; want %q", got, want)
	}

	if got := (Caption{}).Text(); got != "" {
		t.Errorf("empty caption Text() = %q; want empty", got)
	}
}
