package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kycd/internal/kyc/models"
	"kycd/internal/kyc/namematch"
	"kycd/pkg/platform/sentinel"
)

// ExternalConfig carries the credentials and endpoints for the real
// verification APIs. Populated from the environment in api mode.
type ExternalConfig struct {
	PANAPIURL string
	PANAPIKey string

	BankAPIURL       string
	BankClientID     string
	BankClientSecret string

	AadhaarAuthURL     string
	AadhaarTokenURL    string
	AadhaarDataURL     string
	AadhaarClientID    string
	AadhaarSecret      string
	AadhaarRedirectURI string

	DocumentAPIURL string
	DocumentAppID  string
	DocumentAppKey string
}

// unavailable wraps a transport failure so callers can distinguish "the
// provider could not be reached" from "the provider said no".
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, sentinel.ErrUnavailable, err)
}

// APIPANProvider verifies tax IDs against the external PAN registry API.
type APIPANProvider struct {
	cfg       ExternalConfig
	threshold float64
	client    *http.Client
}

func NewAPIPAN(cfg ExternalConfig, threshold float64) *APIPANProvider {
	return &APIPANProvider{
		cfg:       cfg,
		threshold: threshold,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *APIPANProvider) Verify(ctx context.Context, panNumber, fullName string) (*PANResult, error) {
	body, err := json.Marshal(map[string]string{"pan": panNumber, "consent": "Y"})
	if err != nil {
		return nil, fmt.Errorf("marshal pan request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PANAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build pan request: %w", err)
	}
	req.Header.Set("x-karza-key", p.cfg.PANAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, unavailable("pan api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, unavailable("pan api", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload struct {
		StatusCode int    `json:"statusCode"`
		Error      string `json:"error"`
		Result     struct {
			Name string `json:"name"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, unavailable("pan api decode", err)
	}
	if payload.StatusCode != 101 {
		reason := payload.Error
		if reason == "" {
			reason = "PAN verification failed"
		}
		return &PANResult{FailureReason: reason}, nil
	}

	score := namematch.Score(fullName, payload.Result.Name)
	if score < p.threshold {
		return &PANResult{VerifiedName: payload.Result.Name, MatchScore: score, FailureReason: "Name mismatch"}, nil
	}
	return &PANResult{Success: true, VerifiedName: payload.Result.Name, MatchScore: score}, nil
}

// APIAadhaarProvider verifies national IDs via the consent-based locker
// flow: the subject authorizes access, the auth code is exchanged for a
// token, and the locker returns the registered date of birth.
type APIAadhaarProvider struct {
	cfg    ExternalConfig
	client *http.Client
}

func NewAPIAadhaar(cfg ExternalConfig) *APIAadhaarProvider {
	return &APIAadhaarProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *APIAadhaarProvider) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.AadhaarClientID)
	q.Set("redirect_uri", p.cfg.AadhaarRedirectURI)
	q.Set("state", state)
	q.Set("scope", "openid")
	return p.cfg.AadhaarAuthURL + "?" + q.Encode()
}

func (p *APIAadhaarProvider) Verify(ctx context.Context, _ string, dob time.Time, authCode string) (*AadhaarResult, error) {
	if authCode == "" {
		return &AadhaarResult{FailureReason: "consent auth code is required"}, nil
	}

	token, err := p.exchangeCode(ctx, authCode)
	if err != nil {
		return nil, err
	}
	verifiedDOB, err := p.fetchDOB(ctx, token)
	if err != nil {
		return nil, err
	}
	if verifiedDOB == "" {
		return &AadhaarResult{FailureReason: "could not extract date of birth from locker data"}, nil
	}

	if verifiedDOB != dob.Format("2006-01-02") {
		return &AadhaarResult{VerifiedDOB: verifiedDOB, FailureReason: "Date of birth does not match Aadhaar records"}, nil
	}
	return &AadhaarResult{Success: true, VerifiedDOB: verifiedDOB}, nil
}

func (p *APIAadhaarProvider) exchangeCode(ctx context.Context, authCode string) (string, error) {
	form := url.Values{}
	form.Set("code", authCode)
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", p.cfg.AadhaarClientID)
	form.Set("client_secret", p.cfg.AadhaarSecret)
	form.Set("redirect_uri", p.cfg.AadhaarRedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.AadhaarTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", unavailable("aadhaar token exchange", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", unavailable("aadhaar token exchange", fmt.Errorf("status %d", resp.StatusCode))
	}
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", unavailable("aadhaar token decode", err)
	}
	return payload.AccessToken, nil
}

func (p *APIAadhaarProvider) fetchDOB(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.AadhaarDataURL, nil)
	if err != nil {
		return "", fmt.Errorf("build data request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", unavailable("aadhaar data fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", unavailable("aadhaar data fetch", fmt.Errorf("status %d", resp.StatusCode))
	}
	var payload struct {
		DOB string `json:"dob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", unavailable("aadhaar data decode", err)
	}
	return payload.DOB, nil
}

// APIBankProvider verifies accounts via the penny-drop API.
type APIBankProvider struct {
	cfg       ExternalConfig
	threshold float64
	client    *http.Client
}

func NewAPIBank(cfg ExternalConfig, threshold float64) *APIBankProvider {
	return &APIBankProvider{
		cfg:       cfg,
		threshold: threshold,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *APIBankProvider) Verify(ctx context.Context, accountNumber, holderName, _, ifsc string) (*BankResult, error) {
	body, err := json.Marshal(map[string]string{
		"bank_account": accountNumber,
		"ifsc":         ifsc,
		"name":         holderName,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal bank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BankAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build bank request: %w", err)
	}
	req.Header.Set("x-client-id", p.cfg.BankClientID)
	req.Header.Set("x-client-secret", p.cfg.BankClientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, unavailable("bank api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, unavailable("bank api", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload struct {
		AccountStatus     string `json:"account_status"`
		AccountStatusCode string `json:"account_status_code"`
		NameAtBank        string `json:"name_at_bank"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, unavailable("bank api decode", err)
	}
	if payload.AccountStatus != "VALID" {
		reason := payload.AccountStatusCode
		if reason == "" {
			reason = "Bank account verification failed"
		}
		return &BankResult{VerifiedName: payload.NameAtBank, FailureReason: reason}, nil
	}

	score := namematch.Score(holderName, payload.NameAtBank)
	if score < p.threshold {
		return &BankResult{
			VerifiedName:  payload.NameAtBank,
			MatchScore:    score,
			IsActive:      true,
			FailureReason: "Account holder name mismatch",
		}, nil
	}
	return &BankResult{Success: true, VerifiedName: payload.NameAtBank, MatchScore: score, IsActive: true}, nil
}

// APIDocumentProvider runs uploaded documents through the external OCR
// API and scores the extracted name against the registered one.
type APIDocumentProvider struct {
	cfg    ExternalConfig
	client *http.Client
}

func NewAPIDocument(cfg ExternalConfig) *APIDocumentProvider {
	return &APIDocumentProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

var documentEndpoints = map[models.DocumentType]string{
	models.DocPANCard:       "/readPAN",
	models.DocAadhaarFront:  "/readAadhaarFront",
	models.DocAadhaarBack:   "/readAadhaarBack",
	models.DocSalarySlip:    "/readSalarySlip",
	models.DocBankStatement: "/readBankStatement",
}

func (p *APIDocumentProvider) Verify(ctx context.Context, docType models.DocumentType, blobPath, registeredName string) (*DocumentResult, error) {
	f, err := os.Open(blobPath)
	if err != nil {
		return nil, fmt.Errorf("open document blob: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(blobPath))
	if err != nil {
		return nil, fmt.Errorf("build document form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy document blob: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close document form: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.DocumentAPIURL, "/") + documentEndpoints[docType]
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build document request: %w", err)
	}
	req.Header.Set("appId", p.cfg.DocumentAppID)
	req.Header.Set("appKey", p.cfg.DocumentAppKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, unavailable("document api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, unavailable("document api", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Result struct {
			Name     string `json:"name"`
			IDNumber string `json:"idNumber"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, unavailable("document api decode", err)
	}
	if payload.Status != "success" {
		remarks := payload.Error
		if remarks == "" {
			remarks = "Document verification failed"
		}
		return &DocumentResult{Remarks: remarks}, nil
	}

	result := &DocumentResult{
		Success:           true,
		ExtractedName:     payload.Result.Name,
		ExtractedIDNumber: payload.Result.IDNumber,
	}
	if result.ExtractedName != "" && registeredName != "" {
		score := namematch.Score(result.ExtractedName, registeredName)
		result.MatchScore = &score
	}
	return result, nil
}
