package sweeper

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycd/internal/kyc/blob"
	"kycd/internal/kyc/config"
	"kycd/internal/kyc/models"
	documentstore "kycd/internal/kyc/store/document"
	trackerstore "kycd/internal/kyc/store/tracker"
	logstore "kycd/internal/kyc/store/verificationlog"
	"kycd/pkg/platform/sentinel"
	"kycd/pkg/requestcontext"
)

type SweeperSuite struct {
	suite.Suite
	trackers *trackerstore.InMemoryStore
	logs     *logstore.InMemoryStore
	docs     *documentstore.InMemoryStore
	blobs    *blob.FilesystemStore
	sw       *Sweeper
	now      time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.trackers = trackerstore.NewInMemory()
	s.logs = logstore.NewInMemory()
	s.docs = documentstore.NewInMemory()

	blobs, err := blob.NewFilesystem(s.T().TempDir())
	s.Require().NoError(err)
	s.blobs = blobs

	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	sw, err := New(s.trackers, s.logs, s.docs, s.blobs, time.Hour,
		WithRetention(config.DefaultConfig().Retention))
	s.Require().NoError(err)
	s.sw = sw
}

func (s *SweeperSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// lockTracker creates a tracker with one attempt and the given lock.
func (s *SweeperSuite) lockTracker(email string, until time.Time) {
	ctx := context.Background()
	_, err := s.trackers.BeginAttempt(ctx, email, models.TypePAN, s.now.Add(-72*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.trackers.Lock(ctx, email, models.TypePAN, until))
}

func (s *SweeperSuite) appendLog(userID int64, status models.VerificationStatus, at time.Time) {
	row, err := models.NewVerificationLog(userID, models.TypePAN, "ABCPE1234F", status, 1, at)
	s.Require().NoError(err)
	s.Require().NoError(s.logs.Append(context.Background(), row))
}

func (s *SweeperSuite) seedDocument(userID int64, status models.DocumentStatus, reviewedAt time.Time) *models.Document {
	ctx := context.Background()
	path, _, err := s.blobs.Save(ctx, userID, models.DocPANCard, "pan.jpg", strings.NewReader("scan"))
	s.Require().NoError(err)

	doc, err := models.NewDocument(userID, "user@example.com", models.DocPANCard, "pan.jpg", path, 4, "image/jpeg", reviewedAt)
	s.Require().NoError(err)
	if status != models.DocUploaded {
		s.Require().NoError(doc.Transition(status))
		doc.ReviewedAt = &reviewedAt
	}
	s.Require().NoError(s.docs.Create(ctx, doc))
	return doc
}

func (s *SweeperSuite) TestSweep_TrackerPass() {
	ctx := context.Background()

	// Lock expired 49h ago, past the 48h grace window.
	s.lockTracker("stale@example.com", s.now.Add(-49*time.Hour))
	// Lock expired 1h ago, still inside the grace window.
	s.lockTracker("recent@example.com", s.now.Add(-time.Hour))
	// Active lock.
	s.lockTracker("locked@example.com", s.now.Add(time.Hour))
	// Idle tracker: zero attempts, no lock.
	_, err := s.trackers.GetOrCreate(ctx, "idle@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)
	// In-flight tracker: attempts but no lock.
	_, err = s.trackers.BeginAttempt(ctx, "active@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)

	s.sw.Sweep(s.ctxAt(s.now))

	_, err = s.trackers.Get(ctx, "stale@example.com", models.TypePAN)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.trackers.Get(ctx, "idle@example.com", models.TypePAN)
	s.ErrorIs(err, sentinel.ErrNotFound)

	for _, email := range []string{"recent@example.com", "locked@example.com", "active@example.com"} {
		_, err = s.trackers.Get(ctx, email, models.TypePAN)
		s.NoError(err, email)
	}
}

func (s *SweeperSuite) TestSweep_FailedLogPass() {
	s.appendLog(1, models.StatusFailed, s.now.Add(-91*24*time.Hour))
	s.appendLog(1, models.StatusBlocked, s.now.Add(-91*24*time.Hour))
	s.appendLog(1, models.StatusFailed, s.now.Add(-89*24*time.Hour))
	s.appendLog(1, models.StatusVerified, s.now.Add(-91*24*time.Hour))

	s.sw.Sweep(s.ctxAt(s.now))

	remaining, err := s.logs.ListByUser(context.Background(), 1, models.TypePAN)
	s.Require().NoError(err)
	s.Len(remaining, 2)
	for _, row := range remaining {
		if row.Status == models.StatusVerified {
			continue
		}
		s.Equal(models.StatusFailed, row.Status)
		s.True(row.CreatedAt.After(s.now.Add(-90*24*time.Hour)), "recent failed row retained")
	}
}

func (s *SweeperSuite) TestSweep_RejectedDocumentPass() {
	ctx := context.Background()

	aged := s.seedDocument(1, models.DocRejected, s.now.Add(-91*24*time.Hour))
	recent := s.seedDocument(2, models.DocRejected, s.now.Add(-89*24*time.Hour))
	pending := s.seedDocument(3, models.DocUploaded, s.now.Add(-91*24*time.Hour))

	s.sw.Sweep(s.ctxAt(s.now))

	_, err := s.docs.GetByID(ctx, aged.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = os.Stat(aged.BlobPath)
	s.True(os.IsNotExist(err), "aged blob removed")

	for _, doc := range []*models.Document{recent, pending} {
		_, err = s.docs.GetByID(ctx, doc.ID)
		s.NoError(err)
		_, err = os.Stat(doc.BlobPath)
		s.NoError(err)
	}
}

func (s *SweeperSuite) TestSweep_PassesAreIsolated() {
	failing, err := New(&failingTrackerStore{s.trackers}, s.logs, s.docs, s.blobs, time.Hour)
	s.Require().NoError(err)

	aged := s.seedDocument(1, models.DocRejected, s.now.Add(-91*24*time.Hour))
	s.appendLog(1, models.StatusFailed, s.now.Add(-91*24*time.Hour))

	failing.Sweep(s.ctxAt(s.now))

	_, err = s.docs.GetByID(context.Background(), aged.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "document pass still ran")
	remaining, err := s.logs.ListByUser(context.Background(), 1, models.TypePAN)
	s.Require().NoError(err)
	s.Empty(remaining, "log pass still ran")
}

func (s *SweeperSuite) TestStartStop() {
	s.sw.Start(context.Background())
	s.sw.Start(context.Background()) // second start is a no-op
	s.sw.Stop()
	s.sw.Stop() // second stop is a no-op
}

// failingTrackerStore breaks the sweep-facing deletes only.
type failingTrackerStore struct {
	*trackerstore.InMemoryStore
}

func (f *failingTrackerStore) DeleteExpiredLocked(context.Context, time.Time) (int64, error) {
	return 0, errors.New("tracker store down")
}

func (f *failingTrackerStore) DeleteIdle(context.Context) (int64, error) {
	return 0, errors.New("tracker store down")
}
