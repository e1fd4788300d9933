package ie

import (
	"bytes"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Common IE Tags
const (
	TagSSID           = 0
	TagSupportedRates = 1
	TagDSParameterSet = 3
	TagRSN            = 48
	TagVendorSpecific = 221 // 0xDD
)

// Vendor-specific identifiers. WPA and WPS share the Microsoft OUI and are
// told apart by the type byte that follows it.
var (
	MicrosoftOUI = [3]byte{0x00, 0x50, 0xf2}
	WPSOUI       = MicrosoftOUI
)

const (
	WPAOUIType = 0x01
	WPSOUIType = 0x04
)

// Element is one information element of a management frame body.
type Element struct {
	ID      uint8
	Length  uint8
	Payload []byte
}

// Parser walks an information element list lazily.
//
//	p := ie.NewParser(body)
//	for p.Next() {
//		el := p.Element()
//	}
//	if err := p.Err(); err != nil { ... }
//
// A Parser is not restartable. Iteration stops at the first element whose
// declared length runs past the buffer; elements yielded before stay valid.
type Parser struct {
	data   []byte
	offset int
	cur    Element
	err    error
}

// NewParser returns a parser over body. body is not copied.
func NewParser(body []byte) *Parser {
	return &Parser{data: body}
}

// Next advances to the next element and reports whether there is one.
func (p *Parser) Next() bool {
	if p.err != nil || p.offset >= len(p.data) {
		return false
	}

	// Needs at least 2 bytes (ID and Length)
	if p.offset+2 > len(p.data) {
		p.err = &domain.DecodeError{Op: "element header", Offset: p.offset, Err: domain.ErrTruncatedElement}
		return false
	}

	id := p.data[p.offset]
	length := p.data[p.offset+1]
	start := p.offset + 2
	end := start + int(length)

	if end > len(p.data) {
		p.err = &domain.DecodeError{Op: "element", Offset: p.offset, Err: domain.ErrTruncatedElement}
		return false
	}

	p.cur = Element{ID: id, Length: length, Payload: p.data[start:end:end]}
	p.offset = end
	return true
}

// Element returns the element produced by the last successful Next.
func (p *Parser) Element() Element {
	return p.cur
}

// Err returns the decode error that stopped iteration, if any.
func (p *Parser) Err() error {
	return p.err
}

// Parse returns every element of body in order. On truncation it returns the
// elements read before the bad one together with the error.
func Parse(body []byte) ([]Element, error) {
	var elements []Element
	p := NewParser(body)
	for p.Next() {
		elements = append(elements, p.Element())
	}
	return elements, p.Err()
}

// Find returns the first element with the given ID.
func Find(elements []Element, id uint8) (Element, bool) {
	for _, el := range elements {
		if el.ID == id {
			return el, true
		}
	}
	return Element{}, false
}

// SSID returns the raw SSID bytes as a string. Absent or zero-filled SSIDs
// (hidden networks) yield "".
func SSID(elements []Element) string {
	el, ok := Find(elements, TagSSID)
	if !ok {
		return ""
	}
	if len(bytes.Trim(el.Payload, "\x00")) == 0 {
		return ""
	}
	return string(el.Payload)
}

// Channel extracts the channel from the DS Parameter Set (Tag 3).
// ok is false when the element is absent or empty.
func Channel(elements []Element) (channel uint8, ok bool) {
	el, found := Find(elements, TagDSParameterSet)
	if !found || len(el.Payload) < 1 {
		return 0, false
	}
	return el.Payload[0], true
}

// FindVendorSpecific returns the payloads (OUI and type included) of every
// vendor-specific element matching oui and subtype, in frame order.
func FindVendorSpecific(elements []Element, oui [3]byte, subtype uint8) [][]byte {
	var results [][]byte
	for _, el := range elements {
		if el.ID != TagVendorSpecific || len(el.Payload) < 4 {
			continue
		}
		if bytes.Equal(el.Payload[:3], oui[:]) && el.Payload[3] == subtype {
			results = append(results, el.Payload)
		}
	}
	return results
}

