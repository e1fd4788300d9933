package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// ErrEventLogClosed is returned by Emit after Close.
var ErrEventLogClosed = errors.New("event log closed")

// DeviceEvent is one CBOR record of the device log. Integer keys keep the
// stream compact.
type DeviceEvent struct {
	SessionID  string           `cbor:"1,keyasint"`
	Timestamp  time.Time        `cbor:"2,keyasint"`
	BSSID      string           `cbor:"3,keyasint"`
	SSID       string           `cbor:"4,keyasint"`
	Channel    uint8            `cbor:"5,keyasint"`
	Security   string           `cbor:"6,keyasint"`
	Vendor     string           `cbor:"7,keyasint,omitempty"`
	Attributes []EventAttribute `cbor:"8,keyasint"`
}

// EventAttribute is a WPS attribute inside a DeviceEvent.
type EventAttribute struct {
	Type      uint16 `cbor:"1,keyasint"`
	Name      string `cbor:"2,keyasint"`
	Raw       []byte `cbor:"3,keyasint"`
	Value     string `cbor:"4,keyasint"`
	Printable bool   `cbor:"5,keyasint"`
}

var (
	eventEncMode cbor.EncMode
	eventDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	eventEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	eventDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR decoder mode: %v", err))
	}
}

// NewDeviceEvent builds the log record of a device.
func NewDeviceEvent(sessionID string, d domain.Device) DeviceEvent {
	ev := DeviceEvent{
		SessionID:  sessionID,
		Timestamp:  d.FirstSeen,
		BSSID:      d.BSSID.String(),
		SSID:       d.SSID,
		Channel:    d.Channel,
		Security:   string(d.Security),
		Vendor:     d.Vendor,
		Attributes: make([]EventAttribute, len(d.Attributes)),
	}
	for i, a := range d.Attributes {
		ev.Attributes[i] = EventAttribute{Type: a.Type, Name: a.Name, Raw: a.Raw, Value: a.Value, Printable: a.Printable}
	}
	return ev
}

// Device converts the record back to a domain device.
func (e DeviceEvent) Device() (domain.Device, error) {
	bssid, err := domain.ParseMAC(e.BSSID)
	if err != nil {
		return domain.Device{}, err
	}
	d := domain.Device{
		BSSID:      bssid,
		SSID:       e.SSID,
		Channel:    e.Channel,
		Security:   domain.SecurityLabel(e.Security),
		Vendor:     e.Vendor,
		FirstSeen:  e.Timestamp,
		Attributes: make([]domain.WPSAttribute, len(e.Attributes)),
	}
	for i, a := range e.Attributes {
		d.Attributes[i] = domain.WPSAttribute{Type: a.Type, Name: a.Name, Raw: a.Raw, Value: a.Value, Printable: a.Printable}
	}
	return d, nil
}

// EventLog appends device events to a CBOR stream.
// It is safe for concurrent use from multiple goroutines.
type EventLog struct {
	sessionID string

	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	encoder *cbor.Encoder
	closed  bool
}

// OpenEventLog appends to the file at path, creating it with permissions
// 0644 if it doesn't exist.
func OpenEventLog(path, sessionID string) (*EventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewEventLog(f, sessionID)
	l.closer = f
	return l, nil
}

// NewEventLog writes events to w. Close does not close w.
func NewEventLog(w io.Writer, sessionID string) *EventLog {
	return &EventLog{
		sessionID: sessionID,
		w:         w,
		encoder:   eventEncMode.NewEncoder(w),
	}
}

// Emit implements ports.DeviceSink.
func (l *EventLog) Emit(_ context.Context, device domain.Device) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrEventLogClosed
	}
	if err := l.encoder.Encode(NewDeviceEvent(l.sessionID, device)); err != nil {
		return fmt.Errorf("encode device %s: %w", device.BSSID, err)
	}
	return nil
}

// Close closes the log file. It is safe to call Close multiple times.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// EventReader streams events back from a device log.
type EventReader struct {
	decoder   *cbor.Decoder
	closer    io.Closer
	sessionID string
}

// OpenEventReader reads every event of the log at path. A non-empty
// sessionID keeps only that session's events.
func OpenEventReader(path, sessionID string) (*EventReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewEventReader(f, sessionID)
	r.closer = f
	return r, nil
}

func NewEventReader(r io.Reader, sessionID string) *EventReader {
	return &EventReader{decoder: eventDecMode.NewDecoder(r), sessionID: sessionID}
}

// Next returns the next matching event, or io.EOF.
func (r *EventReader) Next() (DeviceEvent, error) {
	for {
		var ev DeviceEvent
		if err := r.decoder.Decode(&ev); err != nil {
			return DeviceEvent{}, err
		}
		if r.sessionID == "" || ev.SessionID == r.sessionID {
			return ev, nil
		}
	}
}

// ReadAll drains the reader.
func (r *EventReader) ReadAll() ([]DeviceEvent, error) {
	var events []DeviceEvent
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func (r *EventReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
