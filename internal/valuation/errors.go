package valuation

import (
	"errors"
	"fmt"
)

// ErrNotFound means the provider had no record for the query. Reported
// to the user plainly, never retried.
var ErrNotFound = errors.New("no valuation data found")

// ProviderError wraps any non-404 provider failure (timeout, connection
// failure, malformed response, non-success HTTP status). Downstream code
// treats all of these the same: log the detail, tell the user to try
// again later, do not retry.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("valuation provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
