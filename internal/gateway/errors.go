package gateway

import "errors"

// Per-event denials. These never tear down the connection; the caller answers
// the single event with an error and keeps serving.
var (
	ErrAuthRequired            = errors.New("authentication required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrAccessDenied            = errors.New("access denied")
	ErrRateLimitExceeded       = errors.New("rate limit exceeded")
)
