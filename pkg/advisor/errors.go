package advisor

import "fmt"

// SessionNotFoundError reports a chat request against an identifier the store
// has no document for.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.SessionID)
}

// UpstreamError reports a failed or unusable provider response. Nothing is
// persisted when it occurs, so the stored session remains a safe retry point.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s call failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a save failure after a successful provider call.
// Reply carries the generated text, which is not durably recorded.
type PersistenceError struct {
	SessionID string
	Reply     string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist session %q after model reply: %v", e.SessionID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
