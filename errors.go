package sdk

import "errors"

var (
	// ErrHostCall indicates that a waPC call into the sidecar failed before a response was produced.
	ErrHostCall = errors.New("host call failed")

	// ErrHostResponseInvalid signals that the sidecar returned an invalid or unexpected payload.
	ErrHostResponseInvalid = errors.New("host response is invalid or unexpected")

	// ErrHostError means the sidecar completed the call but reported a failure status.
	ErrHostError = errors.New("host returned an error status")
)
