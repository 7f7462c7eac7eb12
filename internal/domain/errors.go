package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrCredentialsNotFound is the explicit "absent" signal from the
	// secret store; batch operations skip the account instead of failing.
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrMissingRecordRef is raised before any network call when a
	// Bluesky interaction lacks the record's cid or uri.
	ErrMissingRecordRef = errors.New("post is missing cid/uri record reference")
)

// RequestError is a non-success response from a backend, carrying the
// backend's own error text. Transport failures (DNS, timeout, TLS) are
// returned as plain wrapped errors instead, so callers can tell the two
// apart with errors.As.
type RequestError struct {
	Network Network
	Status  int
	Body    string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Network, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Network, e.Status, e.Body)
}
