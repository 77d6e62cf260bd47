package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/circuit"
	"kycd/pkg/platform/sentinel"
)

// The guarded wrappers track the health of each external API with a
// circuit breaker. The breaker is observational only: every call still
// reaches the upstream provider, even while the circuit is open.
// Unreachable providers already map to an attempt refund upstream, so
// short-circuiting would only hide recovery; instead operators get a
// transition log when an API goes down and comes back.

func observeOutcome(br *circuit.Breaker, logger *slog.Logger, err error) {
	if errors.Is(err, sentinel.ErrUnavailable) {
		if _, change := br.RecordFailure(); change.Opened {
			logger.Warn("provider circuit opened", "provider", br.Name())
		}
		return
	}
	if err == nil {
		if _, change := br.RecordSuccess(); change.Closed {
			logger.Info("provider circuit closed", "provider", br.Name())
		}
	}
}

// guardedPAN observes call outcomes without gating them.
type guardedPAN struct {
	next    PANProvider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func guardPAN(next PANProvider, logger *slog.Logger) PANProvider {
	return &guardedPAN{next: next, breaker: circuit.New("pan-api", circuit.WithFailureThreshold(3)), logger: logger}
}

func (g *guardedPAN) Verify(ctx context.Context, panNumber, fullName string) (*PANResult, error) {
	res, err := g.next.Verify(ctx, panNumber, fullName)
	observeOutcome(g.breaker, g.logger, err)
	return res, err
}

type guardedAadhaar struct {
	next    AadhaarProvider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func guardAadhaar(next AadhaarProvider, logger *slog.Logger) AadhaarProvider {
	return &guardedAadhaar{next: next, breaker: circuit.New("aadhaar-api", circuit.WithFailureThreshold(3)), logger: logger}
}

func (g *guardedAadhaar) AuthURL(state string) string {
	return g.next.AuthURL(state)
}

func (g *guardedAadhaar) Verify(ctx context.Context, aadhaarNumber string, dob time.Time, authCode string) (*AadhaarResult, error) {
	res, err := g.next.Verify(ctx, aadhaarNumber, dob, authCode)
	observeOutcome(g.breaker, g.logger, err)
	return res, err
}

type guardedBank struct {
	next    BankProvider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func guardBank(next BankProvider, logger *slog.Logger) BankProvider {
	return &guardedBank{next: next, breaker: circuit.New("bank-api", circuit.WithFailureThreshold(3)), logger: logger}
}

func (g *guardedBank) Verify(ctx context.Context, accountNumber, holderName, bankName, ifsc string) (*BankResult, error) {
	res, err := g.next.Verify(ctx, accountNumber, holderName, bankName, ifsc)
	observeOutcome(g.breaker, g.logger, err)
	return res, err
}

type guardedDocument struct {
	next    DocumentProvider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func guardDocument(next DocumentProvider, logger *slog.Logger) DocumentProvider {
	return &guardedDocument{next: next, breaker: circuit.New("ocr-api", circuit.WithFailureThreshold(3)), logger: logger}
}

func (g *guardedDocument) Verify(ctx context.Context, docType models.DocumentType, blobPath, registeredName string) (*DocumentResult, error) {
	res, err := g.next.Verify(ctx, docType, blobPath, registeredName)
	observeOutcome(g.breaker, g.logger, err)
	return res, err
}
