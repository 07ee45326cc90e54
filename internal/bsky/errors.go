package bsky

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRateLimited marks a request rejected by the server's rate limiter.
	ErrRateLimited = errors.New("bsky: rate limited")
	// ErrSessionExpired marks a request rejected because the access token expired.
	ErrSessionExpired = errors.New("bsky: session expired")
	// ErrRetriesExhausted is returned when every rate-limit retry failed.
	ErrRetriesExhausted = errors.New("bsky: retries exhausted")
	// ErrNotLoggedIn is returned by CreatePost before CreateSession succeeded.
	ErrNotLoggedIn = errors.New("bsky: not logged in")
)

// rateLimitMessage is what the PDS puts in the error body when throttling.
const rateLimitMessage = "Rate Limit Exceeded"

// IsRateLimited reports whether err is a retryable rate-limit failure.
//
// Adapters are expected to wrap ErrRateLimited; the message check covers
// errors that reach us without going through an adapter.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return strings.Contains(err.Error(), rateLimitMessage)
}

// classified attaches a sentinel kind to an underlying transport error.
type classified struct {
	kind error
	err  error
}

func (e *classified) Error() string { return fmt.Sprintf("%v: %v", e.kind, e.err) }

func (e *classified) Unwrap() []error { return []error{e.kind, e.err} }

func classify(kind, err error) error {
	return &classified{kind: kind, err: err}
}
