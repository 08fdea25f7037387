package api

import (
	"errors"
	"net/http"

	"github.com/fhuszti/media-pipeline-go/internal/api_context"
	"github.com/fhuszti/media-pipeline-go/internal/logger"
	"github.com/fhuszti/media-pipeline-go/internal/port"
	"github.com/fhuszti/media-pipeline-go/internal/repository/mariadb"
)

func GetDocumentHandler(repo port.DocumentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := api_context.DocumentRefFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusBadRequest, "document reference is required", nil)
			return
		}

		doc, err := repo.GetByID(r.Context(), ref.Collection, ref.ID)
		if err != nil {
			if errors.Is(err, mariadb.ErrDocumentNotFound) {
				WriteError(w, http.StatusNotFound, "Document not found", nil)
				return
			}
			WriteError(w, http.StatusInternalServerError, "Could not get document", err)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=300")
		RespondRawJSON(w, http.StatusOK, []byte(doc.Data))
		logger.Infof(r.Context(), "✅  Successfully returned document %s/%s", ref.Collection, ref.ID)
	}
}
