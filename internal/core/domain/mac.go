package domain

import (
	"fmt"
	"net"
)

// MAC is a 48-bit IEEE 802 address. It is comparable and can be used as a map key.
type MAC [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMAC parses the colon separated text form ("00:de:ad:be:ef:00").
// Other separators accepted by net.ParseMAC are allowed as long as the
// address is 6 bytes long.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, &ValidationError{Field: "mac", Value: s, Err: err}
	}
	return MACFromBytes(hw)
}

// MustParseMAC is like ParseMAC but panics on error. Intended for constants and tests.
func MustParseMAC(s string) MAC {
	m, err := ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MACFromBytes converts a raw 6-byte address.
func MACFromBytes(b []byte) (MAC, error) {
	var m MAC
	if len(b) != len(m) {
		return m, &ValidationError{Field: "mac", Value: fmt.Sprintf("%x", b), Err: ErrInvalidMAC}
	}
	copy(m[:], b)
	return m, nil
}

// String returns the lowercase colon separated form.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// HardwareAddr returns a copy usable with the net and gopacket packages.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

// OUI returns the organizationally unique identifier prefix.
func (m MAC) OUI() [3]byte {
	return [3]byte{m[0], m[1], m[2]}
}

// IsZero reports whether every byte is zero.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// IsLocallyAdministered reports whether the U/L bit is set.
func (m MAC) IsLocallyAdministered() bool {
	return m[0]&0x02 != 0
}

// MarshalText implements encoding.TextMarshaler.
func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
