package exception

import "errors"

// Storage errors. ErrStorageUnavailable is transient: the core keeps running
// in memory, skips the write, and lets the gateway retry.
var (
	ErrStorageUnavailable = errors.New("storage: unavailable")
	ErrNotFound           = errors.New("storage: record not found")
)
