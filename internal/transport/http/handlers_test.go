package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	jwttoken "kycd/internal/jwt_token"
	"kycd/internal/kyc/blob"
	kycconfig "kycd/internal/kyc/config"
	"kycd/internal/kyc/models"
	"kycd/internal/kyc/providers"
	documentsvc "kycd/internal/kyc/service/document"
	profilesvc "kycd/internal/kyc/service/profile"
	verificationsvc "kycd/internal/kyc/service/verification"
	documentstore "kycd/internal/kyc/store/document"
	profilestore "kycd/internal/kyc/store/profile"
	trackerstore "kycd/internal/kyc/store/tracker"
	logstore "kycd/internal/kyc/store/verificationlog"
	"kycd/internal/kyc/sweeper"
	"kycd/internal/refdata"
)

// The API tests drive the real router with in-memory stores and the
// local providers, token to token, exactly as a client would.

const (
	adminToken  = "test-admin-token"
	seedPAN     = "ABCPE1234F"
	seedAadhaar = "123456789012"
	seedName    = "Ravi Kumar"
)

type APISuite struct {
	suite.Suite
	server *httptest.Server
	docs   *documentstore.InMemoryStore
	token  string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	profiles := profilestore.NewInMemory()
	trackers := trackerstore.NewInMemory()
	logs := logstore.NewInMemory()
	s.docs = documentstore.NewInMemory()
	registry := refdata.NewInMemory()

	ctx := context.Background()
	s.Require().NoError(registry.PutPAN(ctx, &refdata.PANRecord{
		PANNumber:     seedPAN,
		AadhaarNumber: seedAadhaar,
		FullName:      seedName,
		DOB:           time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC),
	}))
	s.Require().NoError(registry.PutBankAccount(ctx, &refdata.BankAccountRecord{
		AccountNumber:     "0011234567",
		IFSC:              "SBIN0123456",
		BankName:          "State Bank of India",
		AccountHolderName: seedName,
		IsActive:          true,
	}))

	blobs, err := blob.NewFilesystem(s.T().TempDir())
	s.Require().NoError(err)

	cfg := kycconfig.DefaultConfig()
	providerSet := &providers.Set{
		PAN:      providers.NewLocalPAN(registry, cfg.PAN.NameMatchThreshold),
		Aadhaar:  providers.NewLocalAadhaar(registry),
		Bank:     providers.NewLocalBank(registry, cfg.Bank.NameMatchThreshold),
		Document: providers.NewLocalDocument(),
	}

	verification, err := verificationsvc.New(profiles, trackers, logs, providerSet, verificationsvc.WithConfig(&cfg))
	s.Require().NoError(err)
	documents, err := documentsvc.New(profiles, s.docs, blobs, providerSet.Document, documentsvc.WithConfig(&cfg))
	s.Require().NoError(err)
	profileSvc, err := profilesvc.New(profiles)
	s.Require().NoError(err)

	tokens := jwttoken.NewService("test-signing-key", "kycd", "kycd-api")

	sweep, err := sweeper.New(trackers, logs, s.docs, blobs, time.Hour, sweeper.WithRetention(cfg.Retention))
	s.Require().NoError(err)

	handlerCfg := Config{
		Profiles:       profileSvc,
		Verification:   verification,
		Documents:      documents,
		Tokens:         tokens,
		Sweeper:        sweep,
		AdminToken:     adminToken,
		MaxUploadBytes: cfg.Upload.MaxFileSize,
	}
	s.server = httptest.NewServer(NewRouter(NewHandler(handlerCfg), handlerCfg))
	s.T().Cleanup(s.server.Close)

	s.token = s.register(1, "ravi.kumar@example.com", seedPAN)
}

func (s *APISuite) register(userID int64, email, pan string) string {
	body := map[string]any{
		"user_id":        userID,
		"full_name":      seedName,
		"dob":            "1990-03-12T00:00:00Z",
		"email":          email,
		"pan_number":     pan,
		"aadhaar_number": seedAadhaar,
	}
	resp := s.do(http.MethodPost, "/api/v1/register", "", body)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out registerResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Require().NotEmpty(out.AccessToken)
	return out.AccessToken
}

func (s *APISuite) do(method, path, token string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *APISuite) decode(resp *http.Response, dst any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *APISuite) upload(docType models.DocumentType, fileName string) string {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	s.Require().NoError(mw.WriteField("document_type", string(docType)))
	part, err := mw.CreateFormFile("file", fileName)
	s.Require().NoError(err)
	_, err = part.Write([]byte("scan bytes"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/v1/documents/upload", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	var out uploadResponse
	s.decode(resp, &out)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(out.ID)
	return out.ID
}

// verifyAll walks the profile through PAN, Aadhaar and bank.
func (s *APISuite) verifyAll() {
	s.verifyIdentity()

	resp := s.do(http.MethodPost, "/api/v1/verify/bank", s.token, map[string]any{
		"account_number":      "0011234567",
		"account_holder_name": seedName,
		"bank_name":           "State Bank of India",
		"ifsc":                "SBIN0123456",
	})
	var bankRes models.VerificationResult
	s.decode(resp, &bankRes)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal(models.StatusVerified, bankRes.Status)
}

// verifyIdentity clears the PAN and Aadhaar stages only.
func (s *APISuite) verifyIdentity() {
	resp := s.do(http.MethodPost, "/api/v1/verify/pan", s.token, nil)
	var panRes models.VerificationResult
	s.decode(resp, &panRes)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal(models.StatusVerified, panRes.Status)

	resp = s.do(http.MethodPost, "/api/v1/verify/aadhaar/initiate", s.token, nil)
	var session models.SessionStart
	s.decode(resp, &session)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NotEmpty(session.SessionToken)

	resp = s.do(http.MethodPost, "/api/v1/verify/aadhaar", s.token, map[string]any{
		"session_token": session.SessionToken,
	})
	var aadhaarRes models.VerificationResult
	s.decode(resp, &aadhaarRes)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal(models.IdentityVerified, aadhaarRes.IdentityStatus)
}

func (s *APISuite) TestFullOnboardingFlow() {
	s.verifyAll()

	kinds := []models.DocumentType{
		models.DocAadhaarFront, models.DocAadhaarBack,
		models.DocPANCard, models.DocSalarySlip,
	}
	ids := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		name := strings.ToLower(string(kind)) + ".jpg"
		if kind.IsIncomeProof() {
			name = strings.ToLower(string(kind)) + ".pdf"
		}
		ids = append(ids, s.upload(kind, name))
	}

	// Background auto-verification accepts each local-mode upload.
	for _, id := range ids {
		s.Require().Eventually(func() bool {
			doc, err := s.docs.GetByID(context.Background(), id)
			return err == nil && doc.Status.IsAccepted()
		}, 2*time.Second, 10*time.Millisecond)
	}

	for _, id := range ids {
		req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/v1/admin/documents/review",
			bytes.NewReader(s.reviewBody(id, "APPROVE", "")))
		s.Require().NoError(err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-Token", adminToken)
		resp, err := s.server.Client().Do(req)
		s.Require().NoError(err)
		var out models.ReviewResult
		s.decode(resp, &out)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Require().Equal(models.DocApproved, out.Status)
	}

	resp := s.do(http.MethodGet, "/api/v1/status", s.token, nil)
	var status statusResponse
	s.decode(resp, &status)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(models.KYCCompleted, status.KYCStatus)
	s.Equal(models.DocumentsApproved, status.DocumentStatus)
	s.Empty(status.NextStep)
}

func (s *APISuite) reviewBody(documentID, action, remarks string) []byte {
	raw, err := json.Marshal(models.ReviewDocumentRequest{
		DocumentID:   documentID,
		Action:       action,
		AdminRemarks: remarks,
		ReviewedBy:   "admin@example.com",
	})
	s.Require().NoError(err)
	return raw
}

func (s *APISuite) adminDo(method, path string, body []byte) *http.Response {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Admin-Token", adminToken)
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *APISuite) TestAdminPendingListAndSweep() {
	s.verifyAll()
	id := s.upload(models.DocAadhaarFront, "front.jpg")

	resp := s.adminDo(http.MethodGet, "/api/v1/admin/documents/pending", nil)
	var pending struct {
		Documents []models.PendingReviewItem `json:"documents"`
		Total     int                        `json:"total"`
	}
	s.decode(resp, &pending)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Equal(1, pending.Total)
	s.Equal(id, pending.Documents[0].ID)
	s.Equal(int64(1), pending.Documents[0].UserID)

	resp = s.adminDo(http.MethodPost, "/api/v1/admin/sweep", nil)
	var sweepOut map[string]string
	s.decode(resp, &sweepOut)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("retention sweep completed", sweepOut["message"])

	// An in-flight onboarding survives the sweep untouched.
	resp = s.adminDo(http.MethodGet, "/api/v1/admin/documents/pending", nil)
	s.decode(resp, &pending)
	s.Equal(1, pending.Total)
}

func (s *APISuite) TestErrorMapping() {
	// No token.
	resp := s.do(http.MethodGet, "/api/v1/profile", "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Duplicate registration conflicts.
	body := map[string]any{
		"user_id": 1, "full_name": seedName, "dob": "1990-03-12T00:00:00Z",
		"email": "ravi.kumar@example.com", "pan_number": seedPAN, "aadhaar_number": seedAadhaar,
	}
	resp = s.do(http.MethodPost, "/api/v1/register", "", body)
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)

	// Aadhaar before PAN is a precondition failure.
	resp = s.do(http.MethodPost, "/api/v1/verify/aadhaar/initiate", s.token, nil)
	var errOut errorBody
	s.decode(resp, &errOut)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(errOut.Message, "PAN verification")

	// Upload before verification is gated too.
	resp = s.do(http.MethodGet, "/api/v1/documents", s.token, nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// Admin route without the shared token.
	resp = s.do(http.MethodPost, "/api/v1/admin/documents/review", "", map[string]any{
		"document_id": "x", "action": "APPROVE",
	})
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *APISuite) TestBankFailureBudgetOverHTTP() {
	s.verifyIdentity()

	badBank := map[string]any{
		"account_number":      "9999999999",
		"account_holder_name": seedName,
		"bank_name":           "State Bank of India",
		"ifsc":                "SBIN0123456",
	}
	for i := 1; i <= 2; i++ {
		resp := s.do(http.MethodPost, "/api/v1/verify/bank", s.token, badBank)
		var out errorBody
		s.decode(resp, &out)
		s.Require().Equal(http.StatusBadRequest, resp.StatusCode)
		s.Contains(out.Message, fmt.Sprintf("%d attempt(s) remaining", 3-i))
	}

	resp := s.do(http.MethodPost, "/api/v1/verify/bank", s.token, badBank)
	var out errorBody
	s.decode(resp, &out)
	s.Equal(http.StatusLocked, resp.StatusCode)
	s.Contains(out.Message, "Maximum attempts (3) reached")

	resp = s.do(http.MethodPost, "/api/v1/verify/bank", s.token, badBank)
	resp.Body.Close()
	s.Equal(http.StatusLocked, resp.StatusCode)
}

func (s *APISuite) TestUpdateProfileLockAfterPAN() {
	resp := s.do(http.MethodPost, "/api/v1/verify/pan", s.token, nil)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPatch, "/api/v1/profile", s.token, map[string]any{
		"full_name": "Someone Else",
	})
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)

	resp = s.do(http.MethodPatch, "/api/v1/profile", s.token, map[string]any{
		"address": "Bengaluru, India",
	})
	var out models.ProfileUpdateResult
	s.decode(resp, &out)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal([]string{"address"}, out.UpdatedFields)
}
