// Package config holds the tunable policy for the verification pipeline:
// attempt budgets, cooldowns, name-match thresholds, session TTL, upload
// rules, and retention windows for the sweeper.
package config

import "time"

// AttemptPolicy governs one verification type's retry budget.
type AttemptPolicy struct {
	MaxAttempts        int
	Cooldown           time.Duration
	NameMatchThreshold float64 // percentage, 0-100
}

// Retention controls what the sweeper is allowed to delete.
type Retention struct {
	// TrackerGrace: locked trackers are deleted once the lock expired at
	// least this long ago. Idle trackers (zero attempts, no lock) are
	// deleted regardless of age.
	TrackerGrace time.Duration
	// FailedLogs: FAILED/BLOCKED verification log rows older than this are
	// deleted. VERIFIED rows are never deleted.
	FailedLogs time.Duration
	// RejectedDocuments: REJECTED document rows (and their blobs) older
	// than this are deleted.
	RejectedDocuments time.Duration
}

// Upload constrains document files.
type Upload struct {
	MaxFileSize        int64
	ImageExtensions    []string
	DocumentExtensions []string
}

// Config is the full domain policy surface.
type Config struct {
	PAN     AttemptPolicy
	Aadhaar AttemptPolicy
	Bank    AttemptPolicy

	// SessionTokenTTL bounds the initiate → verify window for Aadhaar.
	SessionTokenTTL time.Duration

	DocumentMatchThreshold float64

	Upload    Upload
	Retention Retention
}

// DefaultConfig returns production defaults. Values mirror the policy the
// service has always run with: 3 attempts, 24h cooldown, 80% name match.
func DefaultConfig() Config {
	policy := AttemptPolicy{
		MaxAttempts:        3,
		Cooldown:           24 * time.Hour,
		NameMatchThreshold: 80.0,
	}
	return Config{
		PAN:     policy,
		Aadhaar: policy,
		Bank:    policy,

		SessionTokenTTL: 10 * time.Minute,

		DocumentMatchThreshold: 75.0,

		Upload: Upload{
			MaxFileSize:        2 << 20, // 2 MiB
			ImageExtensions:    []string{".jpg", ".jpeg", ".png"},
			DocumentExtensions: []string{".pdf"},
		},
		Retention: Retention{
			TrackerGrace:      48 * time.Hour,
			FailedLogs:        90 * 24 * time.Hour,
			RejectedDocuments: 90 * 24 * time.Hour,
		},
	}
}
