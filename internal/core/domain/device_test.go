package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWPSAttribute_Display(t *testing.T) {
	text := WPSAttribute{Name: "device name", Raw: []byte("Printer"), Printable: true}
	assert.Equal(t, "Printer", text.Display())

	bin := WPSAttribute{Name: "uuid-e", Raw: []byte{0x00, 0x01, 'a'}, Printable: false}
	assert.Equal(t, `"\x00\x01a"`, bin.Display())
}

func TestDevice_IsP2P(t *testing.T) {
	assert.True(t, Device{SSID: "DIRECT-ab1"}.IsP2P())
	assert.False(t, Device{SSID: "HomeNet"}.IsP2P())
	assert.False(t, Device{}.IsP2P())
}

func TestDevice_Attribute(t *testing.T) {
	d := Device{Attributes: []WPSAttribute{
		{Type: 0x1021, Name: "manufacturer", Value: "Acme"},
		{Type: 0x1011, Name: "device name", Value: "Printer"},
	}}

	a, ok := d.Attribute("device name")
	assert.True(t, ok)
	assert.Equal(t, "Printer", a.Value)

	_, ok = d.Attribute("serial number")
	assert.False(t, ok)
}

func TestErrorsUnwrap(t *testing.T) {
	dec := fmt.Errorf("frame: %w", &DecodeError{Op: "element", Offset: 12, Err: ErrTruncatedElement})
	assert.True(t, errors.Is(dec, ErrTruncatedElement))
	assert.Contains(t, dec.Error(), "offset 12")

	cfg := &ConfigurationError{Op: "link type", Err: ErrUnsupportedLinkType}
	assert.ErrorIs(t, cfg, ErrUnsupportedLinkType)

	sendErr := errors.New("device down")
	tx := &TransmitError{Seq: 3, Err: sendErr}
	assert.ErrorIs(t, tx, sendErr)

	var target *TransmitError
	assert.ErrorAs(t, fmt.Errorf("session: %w", tx), &target)
	assert.Equal(t, uint8(3), target.Seq)
}
