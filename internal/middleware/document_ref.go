package middleware

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/fhuszti/media-pipeline-go/internal/api_context"
	"github.com/fhuszti/media-pipeline-go/internal/handler/api"
	"github.com/go-chi/chi/v5"
)

var collectionRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func WithDocumentRef() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			collection := chi.URLParam(r, "collection")
			if collection == "" {
				api.WriteError(w, http.StatusBadRequest, "collection is required", nil)
				return
			}
			if !collectionRe.MatchString(collection) {
				api.WriteError(w, http.StatusBadRequest, fmt.Sprintf("collection %q is not a valid collection name", collection), nil)
				return
			}
			id := chi.URLParam(r, "id")
			if id == "" {
				api.WriteError(w, http.StatusBadRequest, "ID is required", nil)
				return
			}

			// stash it in context and call the real handler
			ref := api_context.DocumentRef{Collection: collection, ID: id}
			ctx := context.WithValue(r.Context(), api_context.DocumentRefKey, ref)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
