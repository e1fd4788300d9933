package fingerprint

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMAC       = errors.New("invalid MAC address")
	ErrInvalidPrefix    = errors.New("invalid OUI prefix")
	ErrVendorNotFound   = errors.New("vendor not found")
	ErrRepositoryClosed = errors.New("repository is closed")
)

// DatabaseError reports a failed OUI database operation.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("oui database: %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
