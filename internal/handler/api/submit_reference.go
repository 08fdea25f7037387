package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fhuszti/media-pipeline-go/internal/port"
	"github.com/fhuszti/media-pipeline-go/internal/validation"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
)

type SubmitReferenceRequest struct {
	Ref string `json:"ref" validate:"required,max=2048"`
}

type SubmitReferenceResponse struct {
	Ref string `json:"ref"`
}

func SubmitReferenceHandler(dispatcher port.TaskDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitReferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request", fmt.Errorf("invalid JSON: %w", err))
			return
		}

		if errs := validation.ValidateStruct(req); errs != nil {
			errsJSON, err := validation.ErrorsToJson(errs)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "Validation error (could not encode details)", fmt.Errorf("encoding validation errors: %w", err))
				return
			}

			// return the validation errors payload directly
			RespondRawJSON(w, http.StatusBadRequest, []byte(errsJSON))
			logger.Warnf(r.Context(), "❌  Validation failed: %s", errsJSON)
			return
		}

		if err := dispatcher.EnqueueProcessReference(r.Context(), req.Ref); err != nil {
			WriteError(w, http.StatusInternalServerError, "Could not enqueue reference", err)
			return
		}

		RespondJSON(w, http.StatusAccepted, SubmitReferenceResponse{Ref: req.Ref})
		logger.Infof(r.Context(), "✅  Successfully enqueued reference %q", req.Ref)
	}
}
