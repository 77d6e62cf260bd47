// Package ports defines the store and capability interfaces the services
// consume. Stores come in memory and PostgreSQL variants; both return
// sentinel errors for infrastructure facts and stay free of domain policy.
package ports

import (
	"context"
	"io"
	"time"

	"kycd/internal/kyc/models"
)

// ProfileStore persists the subject aggregate.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetByPANNumber(ctx context.Context, panNumber string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error

	// ConsumeSession clears the session iff the stored token matches,
	// as one conditional mutation, so a token is spent at most once.
	// Returns false when the token did not match a live session.
	ConsumeSession(ctx context.Context, userID int64, token string) (bool, error)
}

// TrackerStore persists attempt trackers and provides the atomic
// primitives the lockout state machine depends on.
type TrackerStore interface {
	// Get returns the tracker or sentinel.ErrNotFound.
	Get(ctx context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error)

	// GetOrCreate returns the existing tracker or a fresh zero-count one.
	GetOrCreate(ctx context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error)

	// BeginAttempt executes the lock-check → reset-if-expired → increment
	// sequence as one atomic unit per (email, type):
	//   - an active lock leaves the row untouched (callers detect it via
	//     IsLockedAt on the returned tracker);
	//   - an expired lock is cleared and the count restarts at 1;
	//   - otherwise the count is incremented and last_attempt_at updated.
	// Two concurrent calls can never both observe an unlocked tracker and
	// increment past the budget.
	BeginAttempt(ctx context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error)

	// Decrement refunds one attempt (floor zero), used when the provider
	// itself was unavailable.
	Decrement(ctx context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error)

	// Reset sets the count to zero and clears any lock.
	Reset(ctx context.Context, email string, verificationType models.VerificationType) error

	// Lock sets locked_until.
	Lock(ctx context.Context, email string, verificationType models.VerificationType, until time.Time) error

	// DeleteExpiredLocked removes rows whose lock expired before cutoff.
	// The predicate is evaluated in the delete itself so a concurrently
	// revived tracker survives.
	DeleteExpiredLocked(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteIdle removes rows with zero attempts and no lock.
	DeleteIdle(ctx context.Context) (int64, error)
}

// VerificationLogStore persists the append-only attempt audit trail.
type VerificationLogStore interface {
	Append(ctx context.Context, log *models.VerificationLog) error

	// GetVerifiedByIdentifier returns the VERIFIED row claiming the given
	// external identifier, or sentinel.ErrNotFound. This is the
	// uniqueness check: verification-log level, not profile level.
	GetVerifiedByIdentifier(ctx context.Context, verificationType models.VerificationType, identifier string) (*models.VerificationLog, error)

	ListByUser(ctx context.Context, userID int64, verificationType models.VerificationType) ([]*models.VerificationLog, error)

	// DeletePrunableBefore removes FAILED/BLOCKED rows older than cutoff,
	// with the status and age predicates in the delete itself.
	DeletePrunableBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentStore persists per-document workflow state.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByUserAndType(ctx context.Context, userID int64, docType models.DocumentType) (*models.Document, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Document, error)
	ListByStatus(ctx context.Context, status models.DocumentStatus) ([]*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error

	// ListRejectedBefore returns REJECTED rows older than cutoff for the
	// sweeper to remove blobs for.
	ListRejectedBefore(ctx context.Context, cutoff time.Time) ([]*models.Document, error)

	// DeleteIfRejectedBefore conditionally deletes one row, re-evaluating
	// the status and age predicate at delete time. Returns false when the
	// row was revived (re-uploaded) in the meantime.
	DeleteIfRejectedBefore(ctx context.Context, id string, cutoff time.Time) (bool, error)
}

// BlobStore stores uploaded document files with path-based addressing.
type BlobStore interface {
	Save(ctx context.Context, userID int64, docType models.DocumentType, fileName string, r io.Reader) (path string, size int64, err error)
	Delete(ctx context.Context, path string) error
}
