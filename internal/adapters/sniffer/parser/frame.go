// Package parser decodes captured 802.11 frames into the management view the
// scanner works on.
package parser

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// FrameKind classifies a decoded frame.
type FrameKind int

const (
	// KindNotManagement is a control or data frame.
	KindNotManagement FrameKind = iota
	// KindNotProbeResponse is a management frame of another subtype.
	KindNotProbeResponse
	// KindProbeResponse is a probe response.
	KindProbeResponse
)

func (k FrameKind) String() string {
	switch k {
	case KindNotManagement:
		return "not-management"
	case KindNotProbeResponse:
		return "not-probe-response"
	case KindProbeResponse:
		return "probe-response"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// CapabilityPrivacy is the privacy bit of the capability information field.
const CapabilityPrivacy uint16 = 0x0010

// ManagementFrame is the decoded view of a captured frame.
type ManagementFrame struct {
	Kind FrameKind
	Type layers.Dot11Type

	Destination domain.MAC
	Source      domain.MAC
	BSSID       domain.MAC

	// SequenceControl is the raw 16-bit field: sequence number << 4 | fragment.
	SequenceControl uint16

	// Capabilities is set for probe responses only.
	Capabilities uint16

	SSID       string
	Channel    uint8
	HasChannel bool

	// Elements is set for probe requests and probe responses.
	Elements []ie.Element
}

// Privacy reports whether the capability field requests encryption.
func (f *ManagementFrame) Privacy() bool {
	return f.Capabilities&CapabilityPrivacy != 0
}

// Decoder decodes frames of one capture link type.
type Decoder struct {
	linkType layers.LinkType
}

// NewDecoder selects the decode strategy for a capture link type. Radiotap
// and bare 802.11 are supported; bare 802.11 frames must end with an FCS.
func NewDecoder(linkType layers.LinkType) (*Decoder, error) {
	switch linkType {
	case layers.LinkTypeIEEE80211Radio, layers.LinkTypeIEEE802_11:
		return &Decoder{linkType: linkType}, nil
	default:
		return nil, &domain.ConfigurationError{
			Op:  "decoder",
			Err: fmt.Errorf("%w: %s", domain.ErrUnsupportedLinkType, linkType),
		}
	}
}

// LinkType returns the link type the decoder was built for.
func (d *Decoder) LinkType() layers.LinkType {
	return d.linkType
}

// DecodeManagementFrame decodes a radiotap-framed capture.
func DecodeManagementFrame(raw []byte) (*ManagementFrame, error) {
	return (&Decoder{linkType: layers.LinkTypeIEEE80211Radio}).Decode(raw)
}

// Decode returns the management view of raw. Frames that are not management
// frames or not probe responses are classified through Kind, not reported as
// errors. Only truncated mandatory fields produce a *domain.DecodeError.
func (d *Decoder) Decode(raw []byte) (frame *ManagementFrame, err error) {
	// gopacket's radiotap decoder indexes optional fields without bounds checks
	defer func() {
		if r := recover(); r != nil {
			frame = nil
			err = &domain.DecodeError{Op: "radiotap", Offset: 0, Err: fmt.Errorf("%w: %v", domain.ErrMalformedFrame, r)}
		}
	}()

	mpdu := raw
	if d.linkType == layers.LinkTypeIEEE80211Radio {
		mpdu, err = stripRadioTap(raw)
		if err != nil {
			return nil, err
		}
	}

	if len(mpdu) == 0 {
		return nil, &domain.DecodeError{Op: "dot11", Offset: len(raw), Err: domain.ErrMalformedFrame}
	}
	if frameType := layers.Dot11Type(mpdu[0]&0xfc) >> 2; frameType.MainType() != layers.Dot11TypeMgmt {
		return &ManagementFrame{Kind: KindNotManagement, Type: frameType}, nil
	}

	var dot11 layers.Dot11
	if err := dot11.DecodeFromBytes(mpdu, gopacket.NilDecodeFeedback); err != nil {
		return nil, &domain.DecodeError{Op: "dot11", Offset: len(raw) - len(mpdu), Err: fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)}
	}

	frame = &ManagementFrame{Type: dot11.Type}
	frame.Destination, _ = domain.MACFromBytes(dot11.Address1)
	frame.Source, _ = domain.MACFromBytes(dot11.Address2)
	frame.BSSID, _ = domain.MACFromBytes(dot11.Address3)
	frame.SequenceControl = dot11.SequenceNumber<<4 | dot11.FragmentNumber

	var body []byte
	switch dot11.Type {
	case layers.Dot11TypeMgmtProbeResp:
		frame.Kind = KindProbeResponse
		var resp layers.Dot11MgmtProbeResp
		if err := resp.DecodeFromBytes(dot11.Payload, gopacket.NilDecodeFeedback); err != nil {
			return nil, &domain.DecodeError{Op: "probe response fixed fields", Offset: 0, Err: fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)}
		}
		frame.Capabilities = resp.Flags
		body = resp.Payload
	case layers.Dot11TypeMgmtProbeReq:
		frame.Kind = KindNotProbeResponse
		body = dot11.Payload
	default:
		frame.Kind = KindNotProbeResponse
		return frame, nil
	}

	elements, err := ie.Parse(body)
	if err != nil {
		return nil, err
	}
	frame.Elements = elements
	frame.SSID = ie.SSID(elements)
	frame.Channel, frame.HasChannel = ie.Channel(elements)
	return frame, nil
}

// stripRadioTap returns the 802.11 frame behind the radiotap header, always
// terminated by an FCS (computed when the capture did not include one).
func stripRadioTap(raw []byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, &domain.DecodeError{Op: "radiotap", Offset: 0, Err: domain.ErrMalformedFrame}
	}
	if hdrLen := int(binary.LittleEndian.Uint16(raw[2:4])); hdrLen < 8 || hdrLen >= len(raw) {
		return nil, &domain.DecodeError{Op: "radiotap", Offset: 2, Err: domain.ErrMalformedFrame}
	}

	var rt layers.RadioTap
	if err := rt.DecodeFromBytes(raw, gopacket.NilDecodeFeedback); err != nil {
		return nil, &domain.DecodeError{Op: "radiotap", Offset: 0, Err: fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)}
	}
	return rt.Payload, nil
}
