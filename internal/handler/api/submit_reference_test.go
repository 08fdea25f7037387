package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockTaskDispatcher struct {
	err    error
	gotRef string
	calls  int
}

func (m *mockTaskDispatcher) EnqueueProcessReference(ctx context.Context, ref string) error {
	m.calls++
	m.gotRef = ref
	return m.err
}

func TestSubmitReferenceHandler(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		dispatchErr     error
		wantStatus      int
		wantContentType string

		wantRef          string
		wantErrorMap     map[string]string
		wantBodyContains string
		wantCalls        int
	}{
		{
			name:            "happy path",
			body:            `{"ref":"https://x.com/artist/status/123"}`,
			wantStatus:      http.StatusAccepted,
			wantContentType: "application/json",
			wantRef:         "https://x.com/artist/status/123",
			wantCalls:       1,
		},
		{
			name:             "invalid JSON",
			body:             `{"ref":`, // malformed
			wantStatus:       http.StatusBadRequest,
			wantContentType:  "application/json",
			wantBodyContains: "Invalid request",
		},
		{
			name:            "validation error: empty ref",
			body:            `{"ref":""}`,
			wantStatus:      http.StatusBadRequest,
			wantContentType: "application/json",
			wantErrorMap:    map[string]string{"ref": "required"},
		},
		{
			name:            "validation error: ref too long",
			body:            fmt.Sprintf(`{"ref":"%s"}`, strings.Repeat("a", 2049)),
			wantStatus:      http.StatusBadRequest,
			wantContentType: "application/json",
			wantErrorMap:    map[string]string{"ref": "max"},
		},
		{
			name:             "dispatch error",
			body:             `{"ref":"https://b23.tv/abc"}`,
			dispatchErr:      errors.New("boom"),
			wantStatus:       http.StatusInternalServerError,
			wantContentType:  "application/json",
			wantBodyContains: "Could not enqueue reference",
			wantCalls:        1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockDisp := &mockTaskDispatcher{err: tc.dispatchErr}
			handlerFn := SubmitReferenceHandler(mockDisp)

			req := httptest.NewRequest(http.MethodPost, "/references", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handlerFn(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tc.wantStatus)
			}

			gotCT := rec.Header().Get("Content-Type")
			if gotCT != tc.wantContentType {
				t.Errorf("Content-Type = %q; want %q", gotCT, tc.wantContentType)
			}
			if mockDisp.calls != tc.wantCalls {
				t.Errorf("dispatcher calls = %d; want %d", mockDisp.calls, tc.wantCalls)
			}

			data := rec.Body.Bytes()

			switch {
			case tc.wantRef != "":
				var out SubmitReferenceResponse
				if err := json.Unmarshal(data, &out); err != nil {
					t.Fatalf("JSON decode = %v (body=%q)", err, string(data))
				}
				if out.Ref != tc.wantRef {
					t.Errorf("ref = %q; want %q", out.Ref, tc.wantRef)
				}
				if mockDisp.gotRef != tc.wantRef {
					t.Errorf("enqueued ref = %q; want %q", mockDisp.gotRef, tc.wantRef)
				}

			case tc.wantErrorMap != nil:
				var errs map[string]string
				if err := json.Unmarshal(data, &errs); err != nil {
					t.Fatalf("error JSON: %v; body=%q", err, string(data))
				}
				for k, want := range tc.wantErrorMap {
					if got, ok := errs[k]; !ok {
						t.Errorf("missing key %q in error response: %v", k, errs)
					} else if got != want {
						t.Errorf("errs[%q] = %q; want %q", k, got, want)
					}
				}

			case tc.wantBodyContains != "":
				if !strings.Contains(string(data), tc.wantBodyContains) {
					t.Errorf("body = %q; want to contain %q", string(data), tc.wantBodyContains)
				}

			default:
				t.Fatal("test case has no assertion target!")
			}
		})
	}
}
