package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycd/internal/kyc/models"
	"kycd/internal/platform/middleware"
	dErrors "kycd/pkg/domain-errors"
)

type uploadResponse struct {
	Message  string                `json:"message"`
	ID       string                `json:"id"`
	Type     models.DocumentType   `json:"document_type"`
	FileName string                `json:"file_name"`
	FileSize int64                 `json:"file_size"`
	Status   models.DocumentStatus `json:"status"`
}

// handleUploadDocument accepts a multipart form with a "document_type"
// field and a "file" part. Verification of the freshly stored document
// runs off the request path.
func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// The form overhead rides on top of the file size cap; the service
	// enforces the exact per-file limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "multipart form too large or malformed"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	docType := r.FormValue("document_type")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer func() { _ = file.Close() }()

	doc, err := h.documents.Upload(r.Context(), userID, docType, header.Filename,
		header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	// Auto-verification outlives the request but keeps its values
	// (request ID, pinned time) for correlated logs.
	bgCtx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.documents.AutoVerify(bgCtx, doc.ID); err != nil {
			h.logger.ErrorContext(bgCtx, "document auto-verify",
				"document_id", doc.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:  "Document uploaded successfully. Pending review.",
		ID:       doc.ID,
		Type:     doc.Type,
		FileName: doc.FileName,
		FileSize: doc.FileSize,
		Status:   doc.Status,
	})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	listing, err := h.documents.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	if err := h.documents.Delete(r.Context(), middleware.GetUserID(r.Context()), documentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Document deleted successfully",
		"document_id": documentID,
	})
}
