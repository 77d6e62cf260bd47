package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the blob store, and
// provider transports return these (optionally wrapped) so services can
// translate them into domain errors.
//
// These represent factual states about resources, not policy decisions:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: a uniqueness constraint would be violated
// - ErrUnavailable: provider or resource temporarily unreachable
//
// For validation and policy failures, use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
