// Package document implements the per-document upload/review workflow
// and the aggregate document status it feeds. Uploads are gated on the
// identity and bank checks; each document is auto-verified where the
// provider supports it or left for a manual admin decision.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kycd/internal/kyc/config"
	"kycd/internal/kyc/models"
	"kycd/internal/kyc/ports"
	"kycd/internal/kyc/providers"
	"kycd/internal/platform/metrics"
	dErrors "kycd/pkg/domain-errors"
	"kycd/pkg/platform/sentinel"
	"kycd/pkg/requestcontext"
)

type Service struct {
	profiles  ports.ProfileStore
	documents ports.DocumentStore
	blobs     ports.BlobStore
	provider  providers.DocumentProvider

	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(profiles ports.ProfileStore, documents ports.DocumentStore, blobs ports.BlobStore, provider providers.DocumentProvider, opts ...Option) (*Service, error) {
	if profiles == nil || documents == nil || blobs == nil || provider == nil {
		return nil, errors.New("profile store, document store, blob store and provider are required")
	}

	defaultCfg := config.DefaultConfig()
	svc := &Service{
		profiles:  profiles,
		documents: documents,
		blobs:     blobs,
		provider:  provider,
		cfg:       &defaultCfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) loadProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	return p, nil
}

// Upload stores one document file for a profile. A REJECTED document of
// the same kind is replaced in place; an accepted one cannot be
// re-uploaded. The upload phase of the flow only opens once identity
// and bank verification are done.
func (s *Service) Upload(ctx context.Context, userID int64, docType string, fileName, mimeType string, r io.Reader) (*models.Document, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.IdentityStatus != models.IdentityVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "complete identity verification (PAN and Aadhaar) first")
	}
	if p.BankStatus != models.StatusVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "complete bank verification first")
	}

	kind := models.DocumentType(docType)
	if !kind.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"invalid document type %q, valid types: %s", docType, validTypeList())
	}
	if err := s.validateFileName(kind, fileName); err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	existing, err := s.documents.GetByUserAndType(ctx, userID, kind)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "look up existing document")
	}
	if existing != nil && existing.Status.IsAccepted() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"%s already %s", kind, strings.ToLower(string(existing.Status)))
	}

	now := requestcontext.Now(ctx)
	path, size, err := s.blobs.Save(ctx, userID, kind, fileName, io.LimitReader(r, s.cfg.Upload.MaxFileSize+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store document file")
	}
	if size > s.cfg.Upload.MaxFileSize {
		if derr := s.blobs.Delete(ctx, path); derr != nil {
			s.logger.Warn("remove oversized upload", "path", path, "error", derr)
		}
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"file exceeds the %d byte limit", s.cfg.Upload.MaxFileSize)
	}

	var doc *models.Document
	if existing != nil {
		// Only REJECTED survives the accepted check above; Replace resets
		// the row and clears the prior review verdict.
		doc = existing
		oldPath := doc.BlobPath
		if err := doc.Replace(fileName, path, size, mimeType, now); err != nil {
			return nil, err
		}
		if err := s.documents.Update(ctx, doc); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "replace document")
		}
		if oldPath != "" && oldPath != path {
			if derr := s.blobs.Delete(ctx, oldPath); derr != nil {
				s.logger.Warn("remove replaced blob", "path", oldPath, "error", derr)
			}
		}
	} else {
		doc, err = models.NewDocument(userID, p.Email, kind, fileName, path, size, mimeType, now)
		if err != nil {
			return nil, err
		}
		if err := s.documents.Create(ctx, doc); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create document")
		}
	}

	s.metrics.IncrementDocumentsUploaded()
	s.logger.Info("document uploaded", "user_id", userID, "document_type", kind, "size", size)
	return doc, nil
}

// AutoVerify runs the provider's document check for a freshly uploaded
// document. It is called off the request path; a document the provider
// cannot reach stays UPLOADED and falls through to manual review.
func (s *Service) AutoVerify(ctx context.Context, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}
	if doc.Status != models.DocUploaded {
		return nil
	}

	p, err := s.profiles.GetByUserID(ctx, doc.UserID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load profile for document check")
	}

	res, err := s.provider.Verify(ctx, doc.Type, doc.BlobPath, p.FullName)
	if err != nil {
		s.logger.Warn("document provider unreachable, leaving for manual review",
			"document_id", doc.ID, "error", err)
		return nil
	}

	now := requestcontext.Now(ctx)
	if res.Success {
		if err := doc.Transition(models.DocVerified); err != nil {
			return err
		}
		verifiedAt := now
		doc.VerifiedAt = &verifiedAt
		doc.ExtractedName = res.ExtractedName
		doc.ExtractedIDNumber = res.ExtractedIDNumber
		doc.MatchScore = res.MatchScore
		doc.VerificationRemarks = ""
	} else {
		if err := doc.Transition(models.DocRejected); err != nil {
			return err
		}
		doc.VerificationRemarks = res.Remarks
		doc.MatchScore = res.MatchScore
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist document verdict")
	}
	s.logger.Info("document auto-verified",
		"document_id", doc.ID, "status", doc.Status, "remarks", doc.VerificationRemarks)

	return s.recomputeAggregate(ctx, p, now)
}

// List returns the full document surface for one profile, including
// what is still missing for approval.
func (s *Service) List(ctx context.Context, userID int64) (*models.DocumentListing, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}

	summaries := make([]models.DocumentSummary, 0, len(docs))
	hasIncome := false
	allAccepted := len(docs) > 0
	for _, doc := range docs {
		summaries = append(summaries, summarize(doc))
		if doc.Type.IsIncomeProof() {
			hasIncome = true
		}
		if !doc.Status.IsAccepted() {
			allAccepted = false
		}
	}

	required := make([]string, 0, len(models.RequiredIdentityDocuments)+1)
	for _, req := range models.RequiredIdentityDocuments {
		required = append(required, string(req))
	}
	if !hasIncome {
		required = append(required, "SALARY_SLIP or BANK_STATEMENT")
	}

	return &models.DocumentListing{
		UserID:            p.UserID,
		Email:             p.Email,
		Documents:         summaries,
		TotalDocuments:    len(docs),
		RequiredDocuments: required,
		MissingDocuments:  models.MissingDocuments(docs),
		AllApproved:       allAccepted && models.DeriveDocumentStatus(docs) == models.DocumentsApproved,
	}, nil
}

// Delete removes the caller's own document. Accepted documents are part
// of the approval trail and cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID int64, documentID string) error {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}
	if doc.UserID != userID {
		return dErrors.New(dErrors.CodeForbidden, "document belongs to another account")
	}
	if doc.Status.IsAccepted() {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"cannot delete %s document", strings.ToLower(string(doc.Status)))
	}

	if derr := s.blobs.Delete(ctx, doc.BlobPath); derr != nil {
		s.logger.Warn("remove blob on delete", "path", doc.BlobPath, "error", derr)
	}
	if err := s.documents.Delete(ctx, documentID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete document")
	}
	s.logger.Info("document deleted", "user_id", userID, "document_id", documentID)
	return nil
}

// Review applies an admin APPROVE/REJECT decision. Rejection requires
// remarks; a decision on an already decided document is rejected so the
// audit fields are written exactly once per upload.
// PendingReview lists every document still awaiting an admin decision,
// oldest upload first.
func (s *Service) PendingReview(ctx context.Context) ([]models.PendingReviewItem, error) {
	items := make([]models.PendingReviewItem, 0)
	for _, status := range []models.DocumentStatus{models.DocUploaded, models.DocUnderReview, models.DocVerified} {
		docs, err := s.documents.ListByStatus(ctx, status)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents for review")
		}
		for _, doc := range docs {
			items = append(items, models.PendingReviewItem{UserID: doc.UserID, DocumentSummary: summarize(doc)})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UploadedAt < items[j].UploadedAt })
	return items, nil
}

func (s *Service) Review(ctx context.Context, req models.ReviewDocumentRequest) (*models.ReviewResult, error) {
	if req.Action != "APPROVE" && req.Action != "REJECT" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid action, must be APPROVE or REJECT")
	}

	doc, err := s.documents.GetByID(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "document %s not found", req.DocumentID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document")
	}
	switch doc.Status {
	case models.DocApproved:
		return nil, dErrors.New(dErrors.CodeBadRequest, "document is already approved")
	case models.DocRejected:
		return nil, dErrors.New(dErrors.CodeBadRequest, "document is already rejected, user must re-upload first")
	}

	now := requestcontext.Now(ctx)
	var message string
	if req.Action == "REJECT" {
		if strings.TrimSpace(req.AdminRemarks) == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "admin remarks are required when rejecting a document")
		}
		if err := doc.Transition(models.DocRejected); err != nil {
			return nil, err
		}
		message = fmt.Sprintf("Document rejected: %s", req.AdminRemarks)
	} else {
		if err := doc.Transition(models.DocApproved); err != nil {
			return nil, err
		}
		message = "Document approved successfully"
	}
	doc.AdminRemarks = req.AdminRemarks
	doc.ReviewedAt = &now
	doc.ReviewedBy = req.ReviewedBy

	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist review decision")
	}

	completed := false
	p, err := s.profiles.GetByUserID(ctx, doc.UserID)
	if err == nil {
		wasCompleted := p.KYCStatus == models.KYCCompleted
		if err := s.recomputeAggregate(ctx, p, now); err != nil {
			return nil, err
		}
		completed = !wasCompleted && p.KYCStatus == models.KYCCompleted
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile after review")
	}

	s.logger.Info("document reviewed",
		"document_id", doc.ID, "action", req.Action, "reviewed_by", req.ReviewedBy, "kyc_completed", completed)

	return &models.ReviewResult{
		DocumentID:   doc.ID,
		Type:         doc.Type,
		UserEmail:    doc.Email,
		Status:       doc.Status,
		Message:      message,
		KYCCompleted: completed,
	}, nil
}

// recomputeAggregate re-derives document_status from the current
// document set and re-evaluates the terminal KYC flip. Called after
// every mutation that could complete the flow.
func (s *Service) recomputeAggregate(ctx context.Context, p *models.Profile, now time.Time) error {
	docs, err := s.documents.ListByUser(ctx, p.UserID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list documents for aggregate")
	}

	agg := models.DeriveDocumentStatus(docs)
	if agg == models.DocumentsPending {
		return nil
	}
	p.DocumentStatus = agg
	completed := p.RecomputeKYCStatus()

	p.UpdatedAt = now
	if err := s.profiles.Update(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist aggregate document status")
	}
	if completed {
		s.metrics.IncrementKYCCompleted()
		s.logger.Info("kyc completed", "user_id", p.UserID, "email", p.Email)
	}
	return nil
}

func (s *Service) validateFileName(kind models.DocumentType, fileName string) error {
	if fileName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "no file selected")
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	allowed := s.cfg.Upload.DocumentExtensions
	if kind.IsIdentityProof() {
		allowed = s.cfg.Upload.ImageExtensions
	}
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeBadRequest,
		"invalid file format %q for %s, allowed: %s", ext, kind, strings.Join(allowed, ", "))
}

func validTypeList() string {
	kinds := make([]string, 0, len(models.RequiredIdentityDocuments)+len(models.IncomeProofDocuments))
	for _, k := range models.RequiredIdentityDocuments {
		kinds = append(kinds, string(k))
	}
	for _, k := range models.IncomeProofDocuments {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}

func summarize(doc *models.Document) models.DocumentSummary {
	s := models.DocumentSummary{
		ID:                doc.ID,
		Type:              doc.Type,
		FileName:          doc.FileName,
		FileSize:          doc.FileSize,
		Status:            doc.Status,
		UploadedAt:        doc.UploadedAt.Format(time.RFC3339),
		ExtractedName:     doc.ExtractedName,
		ExtractedIDNumber: doc.ExtractedIDNumber,
		MatchScore:        doc.MatchScore,
		AdminRemarks:      doc.AdminRemarks,
	}
	if doc.VerifiedAt != nil {
		s.VerifiedAt = doc.VerifiedAt.Format(time.RFC3339)
	}
	if doc.ReviewedAt != nil {
		s.ReviewedAt = doc.ReviewedAt.Format(time.RFC3339)
	}
	return s
}
