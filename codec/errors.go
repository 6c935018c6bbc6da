package codec

import "errors"

var (
	// ErrEncoding indicates a value could not be converted to bytes.
	ErrEncoding = errors.New("failed to encode value")

	// ErrDecoding indicates bytes could not be converted to the requested type.
	ErrDecoding = errors.New("failed to decode value")
)
