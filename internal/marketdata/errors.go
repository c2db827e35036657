package marketdata

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the upstream has no data for the requested ticker.
var ErrNotFound = errors.New("ticker not found")

// StatusError reports an unexpected upstream HTTP status.
type StatusError struct {
	Code   int
	Ticker string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d for %s", e.Code, e.Ticker)
}

// IsRetryable reports whether the error is worth retrying on the next cycle.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return !errors.Is(err, ErrNotFound)
}
