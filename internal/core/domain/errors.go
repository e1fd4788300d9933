package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrapped by the typed errors below; match with errors.Is.
var (
	// ErrTruncatedElement indicates an information element whose declared
	// length runs past the end of the frame body.
	ErrTruncatedElement = errors.New("truncated information element")

	// ErrTruncatedAttribute indicates a WPS attribute whose declared length
	// runs past the end of the vendor-specific payload.
	ErrTruncatedAttribute = errors.New("truncated wps attribute")

	// ErrMalformedFrame indicates a frame too short for its mandatory fields.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnsupportedLinkType indicates a capture source whose datalink is
	// neither radiotap nor bare 802.11.
	ErrUnsupportedLinkType = errors.New("unsupported link type")

	// ErrInvalidMAC indicates an address that is not 6 bytes long.
	ErrInvalidMAC = errors.New("invalid MAC address")

	// ErrInvalidChannel indicates channel 0, which cannot be advertised.
	ErrInvalidChannel = errors.New("invalid channel")
)

// DecodeError is a recoverable, per-frame decoding failure.
type DecodeError struct {
	Op     string // e.g. "element", "wps attribute", "dot11"
	Offset int    // byte offset inside the buffer being decoded
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigurationError is fatal and raised before the capture loop starts:
// capture open, filter, link type or initial channel query.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s failed: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransmitError reports a failed probe injection. It stops the transmitter.
type TransmitError struct {
	Seq uint8
	Err error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit probe seq=%d: %v", e.Seq, e.Err)
}

func (e *TransmitError) Unwrap() error {
	return e.Err
}

// ValidationError wraps validation errors with the invalid value
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
