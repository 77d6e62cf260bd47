package httptransport

import (
	"net/http"

	"kycd/internal/kyc/models"
	dErrors "kycd/pkg/domain-errors"
)

func (h *Handler) handleListPendingDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := h.documents.PendingReview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     len(items),
	})
}

func (h *Handler) handleTriggerSweep(w http.ResponseWriter, r *http.Request) {
	h.sweeper.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "retention sweep completed"})
}

func (h *Handler) handleReviewDocument(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DocumentID == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "document_id is required"))
		return
	}

	res, err := h.documents.Review(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
