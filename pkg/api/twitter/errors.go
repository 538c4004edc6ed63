package twitter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a tweet is deleted, withheld or never existed.
	ErrNotFound = errors.New("twitter: not found")
	// ErrUnauthorized means the session is missing or has been revoked.
	ErrUnauthorized = errors.New("twitter: unauthorized")
)

// HTTPError is a non-2xx response, or a 2xx GraphQL response carrying errors.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("twitter: http status=%d body=%s", e.Status, body)
}

// DecodeError reports a timeline entry that claims to be a tweet but lacks a
// required field.
type DecodeError struct {
	EntryID string
	Field   string
}

func (e *DecodeError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("twitter: decode tweet: missing %s", e.Field)
	}
	return fmt.Sprintf("twitter: decode tweet entry %s: missing %s", e.EntryID, e.Field)
}
