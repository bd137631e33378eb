package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks input the caller must fix. Never retried.
	ErrInvalidRequest = errors.New("invalid request")

	ErrMissingUserID = fmt.Errorf("%w: user id required", ErrInvalidRequest)
	ErrInvalidScope  = fmt.Errorf("%w: invalid delete scope", ErrInvalidRequest)
)

// UpstreamFailure is a failed write against the store. Its message is the
// store's own message so it can be surfaced to the caller unchanged.
type UpstreamFailure struct {
	Op  string
	Err error
}

func (e *UpstreamFailure) Error() string {
	return e.Err.Error()
}

func (e *UpstreamFailure) Unwrap() error {
	return e.Err
}
