package domain

import (
	"strconv"
	"strings"
	"time"
)

// SecurityLabel is the coarse security classification of a responder.
type SecurityLabel string

const (
	SecurityOpen    SecurityLabel = "Open"
	SecurityWEP     SecurityLabel = "WEP"
	SecurityWPAPSK  SecurityLabel = "WPA-PSK"
	SecurityWPA2PSK SecurityLabel = "WPA2-PSK"
	SecurityMixed   SecurityLabel = "WPA/WPA2-Mixed"
	SecurityUnknown SecurityLabel = "Unknown"
)

// WPSAttribute is one decoded WPS TLV.
type WPSAttribute struct {
	Type      uint16 `json:"type"`
	Name      string `json:"name"`
	Raw       []byte `json:"raw"`
	Value     string `json:"value"`
	Printable bool   `json:"printable"`
}

// Display returns the value as shown to an operator: the text itself when
// Raw is printable, otherwise a quoted escape of the raw bytes.
func (a WPSAttribute) Display() string {
	if a.Printable {
		return string(a.Raw)
	}
	return strconv.Quote(string(a.Raw))
}

// Device is a responder that advertised WPS in a probe response.
// It is created once per BSSID per session and never updated.
type Device struct {
	BSSID      MAC            `json:"bssid"`
	SSID       string         `json:"ssid"`
	Channel    uint8          `json:"channel"` // 0: not advertised
	Security   SecurityLabel  `json:"security"`
	Vendor     string         `json:"vendor,omitempty"`
	Attributes []WPSAttribute `json:"attributes"`
	FirstSeen  time.Time      `json:"first_seen"`
}

// P2PSSIDPrefix is the SSID prefix used by Wi-Fi Direct group owners.
const P2PSSIDPrefix = "DIRECT-"

// IsP2P reports whether the SSID marks a Wi-Fi Direct group owner.
func (d Device) IsP2P() bool {
	return strings.HasPrefix(d.SSID, P2PSSIDPrefix)
}

// Attribute returns the first attribute with the given name.
func (d Device) Attribute(name string) (WPSAttribute, bool) {
	for _, a := range d.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return WPSAttribute{}, false
}
