// Package sweeper runs the background retention passes: expired lock
// rows, aged failed-verification logs, and aged rejected documents with
// their blobs. One long-lived task per process; every delete re-checks
// its predicate at delete time so a row a live request just revived is
// left alone.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"kycd/internal/kyc/config"
	"kycd/internal/kyc/ports"
	"kycd/internal/platform/metrics"
	"kycd/pkg/requestcontext"
)

const (
	passTrackers     = "trackers"
	passFailedLogs   = "failed_logs"
	passRejectedDocs = "rejected_documents"
)

type Sweeper struct {
	trackers ports.TrackerStore
	logs     ports.VerificationLogStore
	docs     ports.DocumentStore
	blobs    ports.BlobStore

	retention config.Retention
	interval  time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func WithRetention(r config.Retention) Option {
	return func(s *Sweeper) { s.retention = r }
}

func New(trackers ports.TrackerStore, logs ports.VerificationLogStore, docs ports.DocumentStore, blobs ports.BlobStore, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if trackers == nil || logs == nil || docs == nil || blobs == nil {
		return nil, errors.New("tracker, log, document and blob stores are required")
	}
	if interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}

	s := &Sweeper{
		trackers:  trackers,
		logs:      logs,
		docs:      docs,
		blobs:     blobs,
		retention: config.DefaultConfig().Retention,
		interval:  interval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background loop: one sweep immediately, then one
// per interval. Calling Start on a running sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.logger.Warn("sweeper already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	s.logger.Info("sweeper started", "interval", s.interval)
}

// Stop cancels the loop and waits for the in-flight sweep, bounded so
// shutdown never hangs on a stuck store.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warn("sweeper did not stop within 5s")
	}
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs the three retention passes once. Passes are isolated: a
// failing pass is counted and logged, the others still run.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, span := otel.Tracer("kycd/sweeper").Start(ctx, "sweeper.Sweep")
	defer span.End()

	now := requestcontext.Now(ctx)

	trackers := s.sweepTrackers(ctx, now)
	logs := s.sweepFailedLogs(ctx, now)
	docs := s.sweepRejectedDocuments(ctx, now)

	s.logger.Info("sweep completed",
		"trackers_deleted", trackers,
		"failed_logs_deleted", logs,
		"rejected_documents_deleted", docs)
}

// sweepTrackers removes lock rows whose cooldown expired longer than
// the grace window ago, plus idle rows carrying no state at all.
func (s *Sweeper) sweepTrackers(ctx context.Context, now time.Time) int64 {
	cutoff := now.Add(-s.retention.TrackerGrace)

	expired, err := s.trackers.DeleteExpiredLocked(ctx, cutoff)
	if err != nil {
		s.fail(passTrackers, "delete expired locked trackers", err)
		return 0
	}
	idle, err := s.trackers.DeleteIdle(ctx)
	if err != nil {
		s.fail(passTrackers, "delete idle trackers", err)
		return expired
	}

	total := expired + idle
	s.metrics.AddSweeperDeletions(passTrackers, total)
	if total > 0 {
		s.logger.Info("trackers swept", "expired", expired, "idle", idle)
	}
	return total
}

func (s *Sweeper) sweepFailedLogs(ctx context.Context, now time.Time) int64 {
	cutoff := now.Add(-s.retention.FailedLogs)

	deleted, err := s.logs.DeletePrunableBefore(ctx, cutoff)
	if err != nil {
		s.fail(passFailedLogs, "delete aged failed logs", err)
		return 0
	}
	s.metrics.AddSweeperDeletions(passFailedLogs, deleted)
	if deleted > 0 {
		s.logger.Info("failed verification logs swept", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted
}

// sweepRejectedDocuments deletes aged rejected rows and their blobs.
// The row delete re-checks status and age, so a document re-uploaded
// between the listing and the delete survives; blob removal failures
// never block the row delete.
func (s *Sweeper) sweepRejectedDocuments(ctx context.Context, now time.Time) int64 {
	cutoff := now.Add(-s.retention.RejectedDocuments)

	candidates, err := s.docs.ListRejectedBefore(ctx, cutoff)
	if err != nil {
		s.fail(passRejectedDocs, "list aged rejected documents", err)
		return 0
	}

	var deleted int64
	for _, doc := range candidates {
		if err := s.blobs.Delete(ctx, doc.BlobPath); err != nil {
			s.logger.Warn("delete rejected document blob", "document_id", doc.ID, "path", doc.BlobPath, "error", err)
		}
		ok, err := s.docs.DeleteIfRejectedBefore(ctx, doc.ID, cutoff)
		if err != nil {
			s.fail(passRejectedDocs, "delete rejected document row", err)
			continue
		}
		if ok {
			deleted++
		}
	}
	s.metrics.AddSweeperDeletions(passRejectedDocs, deleted)
	if deleted > 0 {
		s.logger.Info("rejected documents swept", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted
}

func (s *Sweeper) fail(pass, op string, err error) {
	s.metrics.IncrementSweeperFailure(pass)
	s.logger.Error("sweep pass failed", "pass", pass, "op", op, "error", err)
}
