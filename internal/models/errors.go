package models

import "errors"

// Sentinel errors forming the error taxonomy of the core. Services wrap
// these with context via fmt.Errorf("...: %w", err); handlers translate
// them to HTTP statuses with errors.Is.
var (
	// ErrUnauthenticated means no valid actor could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the actor lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the referenced complaint or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput covers malformed fields: empty title, empty comment.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition means the status change is not permitted from
	// the complaint's current state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidAssignee means the assignee's role is unsuitable.
	ErrInvalidAssignee = errors.New("invalid assignee")
	// ErrTooManyPhotos means the draft exceeds the photo limit.
	ErrTooManyPhotos = errors.New("too many photos")
	// ErrStoreUnavailable means the underlying persistence failed
	// transiently. The core never retries; callers may.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateEmail means registration hit an already-used email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials means login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
