package site

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("User-Agent = %q; want %q", got, UserAgent)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	var out struct {
		ID int `json:"id"`
	}
	if err := GetJSON(context.Background(), srv.URL, &out, FetchOptions{Attempts: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != 42 {
		t.Errorf("id = %d; want 42", out.ID)
	}
}

func TestGetJSON_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out map[string]bool
	if err := GetJSON(context.Background(), srv.URL, &out, FetchOptions{Attempts: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d; want 3", calls.Load())
	}
}

func TestGetJSON_ExhaustedAttemptsSurfaceUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := GetJSON(context.Background(), srv.URL, &out, FetchOptions{Attempts: 3})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v; want ErrUpstream", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d; want 3", calls.Load())
	}
}

func TestGetJSON_MalformedPayloadIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	if err := GetJSON(context.Background(), srv.URL, &out, FetchOptions{Attempts: 1}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v; want ErrUpstream", err)
	}
}

func TestPostJSON_SendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q; want application/json", ct)
		}
		_, _ = w.Write([]byte(`{"echo": true}`))
	}))
	defer srv.Close()

	var out map[string]bool
	err := PostJSON(context.Background(), srv.URL, map[string]string{"url": "x"}, &out, FetchOptions{Attempts: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out["echo"] {
		t.Error("expected echoed response")
	}
}
