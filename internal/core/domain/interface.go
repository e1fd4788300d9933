package domain

import (
	"errors"
	"regexp"
)

var ErrInvalidInterfaceName = errors.New("invalid interface name")

var interfaceRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)

// IsValidInterface checks if the string is a safe interface name (alphanumeric + - _ .)
func IsValidInterface(iface string) bool {
	// IFNAMSIZ is 16 including the terminator
	if len(iface) == 0 || len(iface) > 15 {
		return false
	}
	return interfaceRegex.MatchString(iface)
}

// ValidateInterface returns a ValidationError for unusable interface names.
func ValidateInterface(iface string) error {
	if !IsValidInterface(iface) {
		return &ValidationError{Field: "interface", Value: iface, Err: ErrInvalidInterfaceName}
	}
	return nil
}

// CaptureStats holds receive loop counters for one session.
type CaptureStats struct {
	FramesRead    int64 `json:"frames_read"`
	Timeouts      int64 `json:"timeouts"`
	Skipped       int64 `json:"skipped"` // not a probe response, or no WPS element
	Duplicates    int64 `json:"duplicates"`
	DecodeErrors  int64 `json:"decode_errors"`
	DevicesFound  int64 `json:"devices_found"`
	EmitErrors    int64 `json:"emit_errors"`
	ArchiveErrors int64 `json:"archive_errors"`
}

// Add increments counters from another source.
func (s *CaptureStats) Add(other CaptureStats) {
	s.FramesRead += other.FramesRead
	s.Timeouts += other.Timeouts
	s.Skipped += other.Skipped
	s.Duplicates += other.Duplicates
	s.DecodeErrors += other.DecodeErrors
	s.DevicesFound += other.DevicesFound
	s.EmitErrors += other.EmitErrors
	s.ArchiveErrors += other.ArchiveErrors
}

// Reset clears all counters.
func (s *CaptureStats) Reset() {
	*s = CaptureStats{}
}
