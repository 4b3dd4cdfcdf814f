package services

import "errors"

// Service-level error taxonomy. Handlers translate these to HTTP statuses;
// anything else bubbles up as a 500.
var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")

	// ErrDuplicateRecipient fails the whole proposal creation transaction when
	// the same email appears twice in one proposal.
	ErrDuplicateRecipient = errors.New("duplicate recipient")

	// ErrCredentialUnavailable means a stored secret could not be decrypted
	// (typically a rotated key). The caller should prompt re-authentication
	// instead of treating it as a hard crypto failure.
	ErrCredentialUnavailable = errors.New("credential unavailable")
)
