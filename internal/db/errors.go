package db

import "errors"

// Failure kinds of a run. Every error returned by the loader, the
// repositories and the pipeline wraps exactly one of these.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrWriteFailure      = errors.New("write failure")
)
