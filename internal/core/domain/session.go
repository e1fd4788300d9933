package domain

import "time"

// SessionInfo describes one scan run against one interface.
type SessionInfo struct {
	ID        string       `json:"id"`
	Interface string       `json:"interface"`
	SourceMAC MAC          `json:"source_mac"`
	Mode      ScanMode     `json:"mode"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at,omitempty"`
	Stats     CaptureStats `json:"stats"`
}

// ScanMode selects whether probes are injected.
type ScanMode string

const (
	ModeActive  ScanMode = "active"  // inject probe requests and listen
	ModePassive ScanMode = "passive" // listen only
	ModeReplay  ScanMode = "replay"  // read a capture file
)

// Duration returns the elapsed time of a finished session, or zero.
func (s SessionInfo) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
