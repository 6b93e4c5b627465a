package models

import (
	"errors"
)

// Sentinel errors forming the engine's error taxonomy. The repository layer
// translates driver errors into these; handlers map them onto HTTP statuses.
var (
	// ErrNotFound means a referenced user, target, or badge does not exist.
	// The operation is aborted with no partial write.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a storage uniqueness constraint rejected the write.
	// Under a lost-update race on the like toggle the caller should retry
	// the read-then-toggle sequence once.
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable means the durable store is unreachable. It is
	// propagated as-is; retry policy belongs to the calling layer.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
