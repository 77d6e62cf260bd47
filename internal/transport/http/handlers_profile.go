package httptransport

import (
	"net/http"
	"time"

	"kycd/internal/kyc/models"
	"kycd/internal/platform/middleware"
	dErrors "kycd/pkg/domain-errors"
)

const accessTokenTTL = 24 * time.Hour

type registerResponse struct {
	Message     string          `json:"message"`
	Profile     *models.Profile `json:"profile"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.profiles.Register(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.GenerateToken(p.UserID, p.Email, accessTokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:     "KYC profile created. Proceed to PAN verification.",
		Profile:     p,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
	})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.profiles.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type statusResponse struct {
	UserID         int64                          `json:"user_id"`
	Email          string                         `json:"email"`
	PANStatus      models.VerificationStatus      `json:"pan_status"`
	AadhaarStatus  models.VerificationStatus      `json:"aadhaar_status"`
	BankStatus     models.VerificationStatus      `json:"bank_status"`
	IdentityStatus models.IdentityStatus          `json:"identity_status"`
	DocumentStatus models.DocumentAggregateStatus `json:"document_status"`
	KYCStatus      models.KYCStatus               `json:"kyc_status"`
	NextStep       string                         `json:"next_step,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.verification.Status(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		UserID:         p.UserID,
		Email:          p.Email,
		PANStatus:      p.PANStatus,
		AadhaarStatus:  p.AadhaarStatus,
		BankStatus:     p.BankStatus,
		IdentityStatus: p.IdentityStatus,
		DocumentStatus: p.DocumentStatus,
		KYCStatus:      p.KYCStatus,
		NextStep:       nextStep(p),
	})
}

// nextStep tells the client where it is in the staged flow.
func nextStep(p *models.Profile) string {
	switch {
	case p.KYCStatus == models.KYCCompleted:
		return ""
	case p.PANStatus != models.StatusVerified:
		return "Complete PAN verification"
	case p.AadhaarStatus != models.StatusVerified:
		return "Complete Aadhaar verification"
	case p.BankStatus != models.StatusVerified:
		return "Complete bank account verification"
	case p.DocumentStatus != models.DocumentsApproved:
		return "Upload documents and await review"
	default:
		return ""
	}
}
