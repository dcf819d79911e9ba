package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown stream or replication method.
	ErrUnsupportedType = errors.New("unsupported type")

	// Upstream Errors.

	// ErrRateLimited indicates the API kept throttling after every retry attempt.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream indicates the API answered with a non-retryable status.
	ErrUpstream = errors.New("upstream error")

	// ErrMalformedResponse indicates a response body did not match the
	// expected envelope.
	ErrMalformedResponse = errors.New("malformed response")

	// Data Errors.

	// ErrSchemaMismatch indicates a row could not be converted to its schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrBookmarkMissing indicates an incremental row carried no usable
	// replication key value.
	ErrBookmarkMissing = errors.New("bookmark value missing")
)
