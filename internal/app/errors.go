package app

import (
	"errors"
	"fmt"
)

// Service error codes the run reacts to by name.
const (
	CodeNotInChannel = "not_in_channel"
	CodeRateLimited  = "rate_limited"
)

// RemoteError is a failed workspace API call. Code carries the service error
// string ("channel_not_found", "missing_scope", ...) when the service sent
// one, or CodeRateLimited when the backoff gave up.
type RemoteError struct {
	Op   string
	Code string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// HasCode reports whether err carries the given service error code.
func HasCode(err error, code string) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Code == code
}
