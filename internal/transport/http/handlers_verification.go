package httptransport

import (
	"net/http"

	"kycd/internal/kyc/models"
	"kycd/internal/platform/middleware"
	dErrors "kycd/pkg/domain-errors"
)

func (h *Handler) handleVerifyPAN(w http.ResponseWriter, r *http.Request) {
	res, err := h.verification.VerifyTaxID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleInitiateAadhaar(w http.ResponseWriter, r *http.Request) {
	res, err := h.verification.InitiateNationalID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVerifyAadhaar(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyNationalIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.SessionToken == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "session_token is required"))
		return
	}

	res, err := h.verification.VerifyNationalID(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleVerifyBank(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyBankRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.verification.VerifyBank(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
