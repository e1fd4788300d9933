package ie

import (
	"encoding/binary"
	"fmt"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// RSNInfo represents a parsed RSN (IE 48) or WPA (vendor 00:50:f2/1) element.
type RSNInfo struct {
	Version         uint16
	GroupCipher     string
	PairwiseCiphers []string
	AKMSuites       []string
	Capabilities    RSNCapabilities
}

// RSNCapabilities represents the capabilities field of RSN IE
type RSNCapabilities struct {
	PreAuth          bool
	NoPairwise       bool
	PTKSAReplayCount uint8
	GTKSAReplayCount uint8
	MFPRequired      bool
	MFPCapable       bool
	PeerKeyEnabled   bool
}

// HasPSK reports whether any AKM suite is a pre-shared key suite.
func (r *RSNInfo) HasPSK() bool {
	for _, akm := range r.AKMSuites {
		switch akm {
		case "PSK", "PSK-SHA256", "FT-PSK":
			return true
		}
	}
	return false
}

// ParseRSN parses IE 48 (RSN Information Element)
func ParseRSN(data []byte) (*RSNInfo, error) {
	rsn, err := parseSuites("rsn", data)
	if err != nil {
		return nil, err
	}
	return rsn, nil
}

// ParseWPA parses a WPA vendor-specific payload (OUI and type included).
// The layout after the 4-byte header matches RSN without capabilities.
func ParseWPA(payload []byte) (*RSNInfo, error) {
	if len(payload) < 4 || [3]byte{payload[0], payload[1], payload[2]} != MicrosoftOUI || payload[3] != WPAOUIType {
		return nil, &domain.DecodeError{Op: "wpa header", Offset: 0, Err: domain.ErrMalformedFrame}
	}
	wpa, err := parseSuites("wpa", payload[4:])
	if err != nil {
		return nil, err
	}
	return wpa, nil
}

func parseSuites(op string, data []byte) (*RSNInfo, error) {
	if len(data) < 2 {
		return nil, &domain.DecodeError{Op: op + " version", Offset: 0, Err: domain.ErrMalformedFrame}
	}

	rsn := &RSNInfo{}
	offset := 0

	// Version (2 bytes)
	rsn.Version = binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	// Group Cipher Suite (4 bytes: OUI + Type)
	if offset+4 <= len(data) {
		rsn.GroupCipher = parseCipherSuite(data[offset : offset+4])
		offset += 4
	}

	// Pairwise Cipher Suite Count + List
	if offset+2 <= len(data) {
		count := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		for i := 0; i < count; i++ {
			if offset+4 > len(data) {
				return nil, &domain.DecodeError{Op: op + " pairwise suite", Offset: offset, Err: domain.ErrMalformedFrame}
			}
			rsn.PairwiseCiphers = append(rsn.PairwiseCiphers, parseCipherSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	// AKM Suite Count + List
	if offset+2 <= len(data) {
		count := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		for i := 0; i < count; i++ {
			if offset+4 > len(data) {
				return nil, &domain.DecodeError{Op: op + " akm suite", Offset: offset, Err: domain.ErrMalformedFrame}
			}
			rsn.AKMSuites = append(rsn.AKMSuites, parseAKMSuite(data[offset:offset+4]))
			offset += 4
		}
	}

	// RSN Capabilities (2 bytes)
	if offset+2 <= len(data) {
		caps := binary.LittleEndian.Uint16(data[offset:])
		rsn.Capabilities = parseRSNCapabilities(caps)
	}

	return rsn, nil
}

func parseCipherSuite(data []byte) string {
	if len(data) < 4 {
		return "UNKNOWN"
	}
	// OUI: 00-0F-AC (RSN) or 00-50-F2 (WPA), same type numbering
	cipherType := data[3]
	switch cipherType {
	case 0:
		return "GROUP"
	case 1:
		return "WEP-40"
	case 2:
		return "TKIP"
	case 4:
		return "CCMP" // AES
	case 5:
		return "WEP-104"
	case 8:
		return "GCMP-128"
	case 9:
		return "GCMP-256"
	case 10:
		return "CCMP-256"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", cipherType)
	}
}

func parseAKMSuite(data []byte) string {
	if len(data) < 4 {
		return "UNKNOWN"
	}
	akmType := data[3]
	switch akmType {
	case 1:
		return "802.1X"
	case 2:
		return "PSK"
	case 3:
		return "FT-802.1X"
	case 4:
		return "FT-PSK"
	case 5:
		return "802.1X-SHA256"
	case 6:
		return "PSK-SHA256"
	case 8:
		return "SAE" // WPA3-Personal
	case 9:
		return "FT-SAE"
	case 18:
		return "OWE" // Opportunistic Wireless Encryption
	default:
		return fmt.Sprintf("UNKNOWN(%d)", akmType)
	}
}

func parseRSNCapabilities(caps uint16) RSNCapabilities {
	return RSNCapabilities{
		PreAuth:          (caps & 0x0001) != 0,
		NoPairwise:       (caps & 0x0002) != 0,
		PTKSAReplayCount: uint8((caps >> 2) & 0x03),
		GTKSAReplayCount: uint8((caps >> 4) & 0x03),
		MFPRequired:      (caps & 0x0040) != 0,
		MFPCapable:       (caps & 0x0080) != 0,
		PeerKeyEnabled:   (caps & 0x0200) != 0,
	}
}
