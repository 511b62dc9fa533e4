package billing

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions the provider's retry mechanism cannot fix.
// These are recorded on the event ledger and acknowledged with 2xx.
var (
	ErrUnhandledEventType = errors.New("unhandled event type")
	ErrMalformedPayload   = errors.New("malformed webhook payload")
	ErrNoSubscription     = errors.New("no subscription on record for tenant")
)

// ErrConcurrentUpdate signals that the optimistic guard on
// last_applied_event_id rejected a commit because another writer advanced
// the subscription first. The service retries once with refreshed state.
var ErrConcurrentUpdate = errors.New("concurrent subscription update")

// TransientError wraps storage failures that should surface as a retriable
// HTTP status so the provider redelivers the event.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err should map to a retriable response.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
