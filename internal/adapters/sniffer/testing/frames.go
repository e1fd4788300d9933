package sniffertest

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Capability bits of a probe response.
const (
	CapESS     uint16 = 0x0001
	CapPrivacy uint16 = 0x0010
)

// FrameBuilder helps construct 802.11 management frames for testing using raw bytes.
type FrameBuilder struct {
	frameControl [2]byte
	addr1        domain.MAC
	addr2        domain.MAC
	addr3        domain.MAC
	seq          uint16
	fixed        []byte
	elements     []byte
	fcs          bool
}

// NewProbeResponse starts a probe response from bssid to dst.
func NewProbeResponse(bssid, dst domain.MAC) *FrameBuilder {
	return &FrameBuilder{
		frameControl: [2]byte{0x50, 0x00},
		addr1:        dst,
		addr2:        bssid,
		addr3:        bssid,
		fixed: []byte{
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Timestamp
			0x64, 0x00, // Interval 100
			byte(CapESS), 0x00, // Caps
		},
	}
}

// NewBeacon starts a beacon from bssid. Beacons are management frames the
// scanner must ignore.
func NewBeacon(bssid domain.MAC) *FrameBuilder {
	b := NewProbeResponse(bssid, domain.BroadcastMAC)
	b.frameControl = [2]byte{0x80, 0x00}
	return b
}

// NewProbeRequest starts a probe request (no fixed fields).
func NewProbeRequest(src domain.MAC) *FrameBuilder {
	return &FrameBuilder{
		frameControl: [2]byte{0x40, 0x00},
		addr1:        domain.BroadcastMAC,
		addr2:        src,
		addr3:        domain.BroadcastMAC,
	}
}

// NewDataFrame starts a data frame from src to dst.
func NewDataFrame(src, dst domain.MAC) *FrameBuilder {
	return &FrameBuilder{
		frameControl: [2]byte{0x08, 0x00},
		addr1:        dst,
		addr2:        src,
		addr3:        src,
	}
}

func (b *FrameBuilder) Sequence(seq uint16) *FrameBuilder {
	b.seq = seq
	return b
}

// Capabilities overwrites the capability info of a probe response or beacon.
func (b *FrameBuilder) Capabilities(caps uint16) *FrameBuilder {
	if len(b.fixed) == 12 {
		binary.LittleEndian.PutUint16(b.fixed[10:12], caps)
	}
	return b
}

// WithFCS appends a valid frame check sequence and flags it in radiotap.
func (b *FrameBuilder) WithFCS() *FrameBuilder {
	b.fcs = true
	return b
}

func (b *FrameBuilder) AddIE(id uint8, data []byte) *FrameBuilder {
	b.elements = append(b.elements, id, byte(len(data)))
	b.elements = append(b.elements, data...)
	return b
}

// AddRaw appends bytes verbatim after the elements (used for malformed input).
func (b *FrameBuilder) AddRaw(data []byte) *FrameBuilder {
	b.elements = append(b.elements, data...)
	return b
}

func (b *FrameBuilder) SSID(ssid string) *FrameBuilder {
	return b.AddIE(0, []byte(ssid))
}

func (b *FrameBuilder) Channel(ch uint8) *FrameBuilder {
	return b.AddIE(3, []byte{ch})
}

// WPS adds a WPS vendor-specific element carrying attrs.
func (b *FrameBuilder) WPS(attrs ...WPSAttr) *FrameBuilder {
	return b.AddIE(221, WPSPayload(attrs...))
}

// RSNPSK adds an RSN element with CCMP and PSK.
func (b *FrameBuilder) RSNPSK() *FrameBuilder {
	return b.AddIE(48, []byte{
		0x01, 0x00,
		0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x04,
		0x01, 0x00, 0x00, 0x0f, 0xac, 0x02,
		0x00, 0x00,
	})
}

// Dot11 returns the bare 802.11 frame, always terminated by an FCS.
func (b *FrameBuilder) Dot11() []byte {
	frame := b.mpdu()
	return appendFCS(frame)
}

// Bytes returns the frame behind a radiotap header.
func (b *FrameBuilder) Bytes() []byte {
	rt := &layers.RadioTap{}
	if b.fcs {
		rt.Present = layers.RadioTapPresentFlags
		rt.Flags = layers.RadioTapFlagsFCS
	}

	buf := gopacket.NewSerializeBuffer()
	if err := rt.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}); err != nil {
		panic(err)
	}

	frame := b.mpdu()
	if b.fcs {
		frame = appendFCS(frame)
	}
	return append(append([]byte{}, buf.Bytes()...), frame...)
}

func (b *FrameBuilder) mpdu() []byte {
	frame := make([]byte, 0, 24+len(b.fixed)+len(b.elements)+4)
	frame = append(frame, b.frameControl[:]...)
	frame = append(frame, 0x00, 0x00) // Duration
	frame = append(frame, b.addr1[:]...)
	frame = append(frame, b.addr2[:]...)
	frame = append(frame, b.addr3[:]...)
	frame = binary.LittleEndian.AppendUint16(frame, b.seq<<4)
	frame = append(frame, b.fixed...)
	frame = append(frame, b.elements...)
	return frame
}

func appendFCS(frame []byte) []byte {
	return binary.LittleEndian.AppendUint32(frame, crc32.ChecksumIEEE(frame))
}

// WPSAttr is a raw WPS TLV.
type WPSAttr struct {
	Type  uint16
	Value []byte
}

// Text builds a WPS attribute holding a string.
func Text(t uint16, s string) WPSAttr {
	return WPSAttr{Type: t, Value: []byte(s)}
}

// WPSPayload encodes a WPS vendor-specific payload, OUI and type included.
func WPSPayload(attrs ...WPSAttr) []byte {
	p := []byte{0x00, 0x50, 0xf2, 0x04}
	for _, a := range attrs {
		p = binary.BigEndian.AppendUint16(p, a.Type)
		p = binary.BigEndian.AppendUint16(p, uint16(len(a.Value)))
		p = append(p, a.Value...)
	}
	return p
}
