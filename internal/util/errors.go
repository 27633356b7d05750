package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrMalformedRecord indicates a stored row could not be parsed
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidRecord indicates a record is missing a required field
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidRange indicates a Range header that cannot be parsed
	ErrInvalidRange = errors.New("invalid range")

	// ErrUnsatisfiableRange indicates a well-formed range outside the blob
	ErrUnsatisfiableRange = errors.New("unsatisfiable range")

	// ErrInvalidBlobID indicates a blob identifier that would escape the blob directory
	ErrInvalidBlobID = errors.New("invalid blob id")

	// ErrUnsupported indicates a file format or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
