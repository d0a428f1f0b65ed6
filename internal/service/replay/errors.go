package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyEvents rejects a bulk request whose resolved unit count
	// exceeds the configured max_events_per_run.
	ErrTooManyEvents = errors.New("bulk replay exceeds max events per run")

	// ErrInvalidFilter rejects a listing with an unrecognized filter value.
	ErrInvalidFilter = errors.New("invalid replay filter")

	// ErrEmptyRequest rejects a bulk request with neither keys nor a query.
	ErrEmptyRequest = errors.New("bulk replay requires event keys or a query")
)

// Error reports one failed replay attempt. Retryable mirrors the projection
// failure classification so operators know whether another attempt can help.
type Error struct {
	Provider  string
	EventKey  string
	Reason    string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("replay %s/%s failed (%s): %v", e.Provider, e.EventKey, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
