package domain

import "errors"

var (
	// ErrInvalidXPDelta is returned for a negative XP award. XP never
	// decreases, so a negative delta is a programmer error and fails loudly.
	ErrInvalidXPDelta = errors.New("xp delta must be non-negative")
	// ErrProfileNotFound is returned when no profile exists for a user id.
	// Callers treat it as "needs initialization" on the award path.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrGroupNotFound is returned when no live group has the given code.
	ErrGroupNotFound = errors.New("group not found")
	// ErrCodeExhausted is returned when group-code generation hits the retry
	// bound without finding a free code. Rare and retryable.
	ErrCodeExhausted = errors.New("group code allocation exhausted")
	// ErrStoreUnavailable wraps transient document-store failures.
	ErrStoreUnavailable = errors.New("profile store unavailable")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
)
