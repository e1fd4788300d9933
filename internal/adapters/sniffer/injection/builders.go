package injection

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Radiotap fields of every injected frame: 54 Mbps, 12 dBm, antenna 1.
const (
	probeRate    = 0x6c
	probeTxPower = 12
	probeAntenna = 1
)

// probeRates are 6, 9, 12, 18, 24, 36, 48 and 54 Mbps.
var probeRates = []byte{0x0c, 0x12, 0x18, 0x24, 0x30, 0x48, 0x60, 0x6c}

// ProbeRequestLen is the size of a frame returned by BuildProbeRequest.
const ProbeRequestLen = 50 // radiotap 11, 802.11 header 24, SSID 2, rates 10, DS 3

// BuildProbeRequest constructs a wildcard (empty SSID) broadcast probe request
// sourced from src that advertises channel in its DS parameter set.
//
// The sequence control field is written as the bytes 00 <seq>, i.e. seq lands
// in the upper byte of the little-endian field. Receivers decode that as
// sequence number seq<<4, fragment 0.
func BuildProbeRequest(src domain.MAC, channel, seq uint8) ([]byte, error) {
	if channel == 0 {
		return nil, &domain.ValidationError{Field: "channel", Value: "0", Err: domain.ErrInvalidChannel}
	}

	radiotap := &layers.RadioTap{
		Present:    layers.RadioTapPresentRate | layers.RadioTapPresentDBMTxPower | layers.RadioTapPresentAntenna,
		Rate:       probeRate,
		DBMTxPower: probeTxPower,
		Antenna:    probeAntenna,
	}

	dot11 := &layers.Dot11{
		Type:           layers.Dot11TypeMgmtProbeReq,
		Address1:       domain.BroadcastMAC.HardwareAddr(),
		Address2:       src.HardwareAddr(),
		Address3:       domain.BroadcastMAC.HardwareAddr(),
		SequenceNumber: uint16(seq) << 4,
	}

	payload := make([]byte, 0, 2+2+len(probeRates)+3)

	// Tag 0: SSID (wildcard)
	payload = append(payload, ie.TagSSID, 0)

	// Tag 1: Supported Rates
	payload = append(payload, ie.TagSupportedRates, byte(len(probeRates)))
	payload = append(payload, probeRates...)

	// Tag 3: DS Parameter Set
	payload = append(payload, ie.TagDSParameterSet, 1, channel)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}

	if err := gopacket.SerializeLayers(buf, opts,
		radiotap,
		dot11,
		gopacket.Payload(payload),
	); err != nil {
		return nil, fmt.Errorf("serialize probe failed: %w", err)
	}

	return buf.Bytes(), nil
}
