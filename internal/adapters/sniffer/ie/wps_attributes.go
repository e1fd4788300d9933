package ie

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// WPS attribute types (Wi-Fi Simple Configuration, data element definitions).
const (
	AttrAPChannel                 uint16 = 0x1001
	AttrAssociationState          uint16 = 0x1002
	AttrAuthenticationType        uint16 = 0x1003
	AttrAuthenticationTypeFlags   uint16 = 0x1004
	AttrAuthenticator             uint16 = 0x1005
	AttrConfigMethods             uint16 = 0x1008
	AttrConfigurationError        uint16 = 0x1009
	AttrConfirmationURL4          uint16 = 0x100a
	AttrConfirmationURL6          uint16 = 0x100b
	AttrConnectionType            uint16 = 0x100c
	AttrConnectionTypeFlags       uint16 = 0x100d
	AttrCredential                uint16 = 0x100e
	AttrEncryptionType            uint16 = 0x100f
	AttrEncryptionTypeFlags       uint16 = 0x1010
	AttrDeviceName                uint16 = 0x1011
	AttrDevicePasswordID          uint16 = 0x1012
	AttrEHash1                    uint16 = 0x1014
	AttrEHash2                    uint16 = 0x1015
	AttrESNonce1                  uint16 = 0x1016
	AttrESNonce2                  uint16 = 0x1017
	AttrEncryptedSettings         uint16 = 0x1018
	AttrEnrolleeNonce             uint16 = 0x101a
	AttrFeatureID                 uint16 = 0x101b
	AttrIdentity                  uint16 = 0x101c
	AttrIdentityProof             uint16 = 0x101d
	AttrKeyWrapAuthenticator      uint16 = 0x101e
	AttrKeyIdentifier             uint16 = 0x101f
	AttrMACAddress                uint16 = 0x1020
	AttrManufacturer              uint16 = 0x1021
	AttrMessageType               uint16 = 0x1022
	AttrModelName                 uint16 = 0x1023
	AttrModelNumber               uint16 = 0x1024
	AttrNetworkIndex              uint16 = 0x1026
	AttrNetworkKey                uint16 = 0x1027
	AttrNetworkKeyIndex           uint16 = 0x1028
	AttrNewDeviceName             uint16 = 0x1029
	AttrNewPassword               uint16 = 0x102a
	AttrOOBDevicePassword         uint16 = 0x102c
	AttrOSVersion                 uint16 = 0x102d
	AttrPowerLevel                uint16 = 0x102f
	AttrPSKCurrent                uint16 = 0x1030
	AttrPSKMax                    uint16 = 0x1031
	AttrPublicKey                 uint16 = 0x1032
	AttrRadioEnabled              uint16 = 0x1033
	AttrReboot                    uint16 = 0x1034
	AttrRegistrarCurrent          uint16 = 0x1035
	AttrRegistrarEstablished      uint16 = 0x1036
	AttrRegistrarList             uint16 = 0x1037
	AttrRegistrarMax              uint16 = 0x1038
	AttrRegistrarNonce            uint16 = 0x1039
	AttrRequestType               uint16 = 0x103a
	AttrResponseType              uint16 = 0x103b
	AttrRFBands                   uint16 = 0x103c
	AttrRHash1                    uint16 = 0x103d
	AttrRHash2                    uint16 = 0x103e
	AttrRSNonce1                  uint16 = 0x103f
	AttrRSNonce2                  uint16 = 0x1040
	AttrSelectedRegistrar         uint16 = 0x1041
	AttrSerialNumber              uint16 = 0x1042
	AttrWPSState                  uint16 = 0x1044
	AttrSSID                      uint16 = 0x1045
	AttrTotalNetworks             uint16 = 0x1046
	AttrUUIDE                     uint16 = 0x1047
	AttrUUIDR                     uint16 = 0x1048
	AttrVendorExtension           uint16 = 0x1049
	AttrVersion                   uint16 = 0x104a
	AttrX509CertificateRequest    uint16 = 0x104b
	AttrX509Certificate           uint16 = 0x104c
	AttrEAPIdentity               uint16 = 0x104d
	AttrMessageCounter            uint16 = 0x104e
	AttrPublicKeyHash             uint16 = 0x104f
	AttrRekeyKey                  uint16 = 0x1050
	AttrKeyLifetime               uint16 = 0x1051
	AttrPermittedConfigMethods    uint16 = 0x1052
	AttrSelectedRegistrarMethods  uint16 = 0x1053
	AttrPrimaryDeviceType         uint16 = 0x1054
	AttrSecondaryDeviceTypeList   uint16 = 0x1055
	AttrPortableDevice            uint16 = 0x1056
	AttrAPSetupLocked             uint16 = 0x1057
	AttrApplicationExtension      uint16 = 0x1058
	AttrEAPType                   uint16 = 0x1059
	AttrInitializationVector      uint16 = 0x1060
	AttrKeyProvidedAutomatically  uint16 = 0x1061
	Attr8021XEnabled              uint16 = 0x1062
	AttrAppSessionKey             uint16 = 0x1063
	AttrWEPTransmitKey            uint16 = 0x1064
	AttrRequestedDeviceType       uint16 = 0x106a
)

var attributeNames = map[uint16]string{
	AttrAPChannel:                "ap channel",
	AttrAssociationState:         "association state",
	AttrAuthenticationType:       "authentication type",
	AttrAuthenticationTypeFlags:  "authentication type flags",
	AttrAuthenticator:            "authenticator",
	AttrConfigMethods:            "config methods",
	AttrConfigurationError:       "configuration error",
	AttrConfirmationURL4:         "confirmation url4",
	AttrConfirmationURL6:         "confirmation url6",
	AttrConnectionType:           "connection type",
	AttrConnectionTypeFlags:      "connection type flags",
	AttrCredential:               "credential",
	AttrEncryptionType:           "encryption type",
	AttrEncryptionTypeFlags:      "encryption type flags",
	AttrDeviceName:               "device name",
	AttrDevicePasswordID:         "device password id",
	AttrEHash1:                   "e-hash1",
	AttrEHash2:                   "e-hash2",
	AttrESNonce1:                 "e-snonce1",
	AttrESNonce2:                 "e-snonce2",
	AttrEncryptedSettings:        "encrypted settings",
	AttrEnrolleeNonce:            "enrollee nonce",
	AttrFeatureID:                "feature id",
	AttrIdentity:                 "identity",
	AttrIdentityProof:            "identity proof",
	AttrKeyWrapAuthenticator:     "key wrap authenticator",
	AttrKeyIdentifier:            "key identifier",
	AttrMACAddress:               "mac address",
	AttrManufacturer:             "manufacturer",
	AttrMessageType:              "message type",
	AttrModelName:                "model name",
	AttrModelNumber:              "model number",
	AttrNetworkIndex:             "network index",
	AttrNetworkKey:               "network key",
	AttrNetworkKeyIndex:          "network key index",
	AttrNewDeviceName:            "new device name",
	AttrNewPassword:              "new password",
	AttrOOBDevicePassword:        "oob device password",
	AttrOSVersion:                "os version",
	AttrPowerLevel:               "power level",
	AttrPSKCurrent:               "psk current",
	AttrPSKMax:                   "psk max",
	AttrPublicKey:                "public key",
	AttrRadioEnabled:             "radio enabled",
	AttrReboot:                   "reboot",
	AttrRegistrarCurrent:         "registrar current",
	AttrRegistrarEstablished:     "registrar established",
	AttrRegistrarList:            "registrar list",
	AttrRegistrarMax:             "registrar max",
	AttrRegistrarNonce:           "registrar nonce",
	AttrRequestType:              "request type",
	AttrResponseType:             "response type",
	AttrRFBands:                  "rf bands",
	AttrRHash1:                   "r-hash1",
	AttrRHash2:                   "r-hash2",
	AttrRSNonce1:                 "r-snonce1",
	AttrRSNonce2:                 "r-snonce2",
	AttrSelectedRegistrar:        "selected registrar",
	AttrSerialNumber:             "serial number",
	AttrWPSState:                 "wifi protected setup state",
	AttrSSID:                     "ssid",
	AttrTotalNetworks:            "total networks",
	AttrUUIDE:                    "uuid-e",
	AttrUUIDR:                    "uuid-r",
	AttrVendorExtension:          "vendor extension",
	AttrVersion:                  "version",
	AttrX509CertificateRequest:   "x.509 certificate request",
	AttrX509Certificate:          "x.509 certificate",
	AttrEAPIdentity:              "eap identity",
	AttrMessageCounter:           "message counter",
	AttrPublicKeyHash:            "public key hash",
	AttrRekeyKey:                 "rekey key",
	AttrKeyLifetime:              "key lifetime",
	AttrPermittedConfigMethods:   "permitted config methods",
	AttrSelectedRegistrarMethods: "selected registrar config methods",
	AttrPrimaryDeviceType:        "primary device type",
	AttrSecondaryDeviceTypeList:  "secondary device type list",
	AttrPortableDevice:           "portable device",
	AttrAPSetupLocked:            "ap setup locked",
	AttrApplicationExtension:     "application extension",
	AttrEAPType:                  "eap type",
	AttrInitializationVector:     "initialization vector",
	AttrKeyProvidedAutomatically: "key provided automatically",
	Attr8021XEnabled:             "802.1x enabled",
	AttrAppSessionKey:            "appsessionkey",
	AttrWEPTransmitKey:           "weptransmitkey",
	AttrRequestedDeviceType:      "requested device type",
}

// AttributeName returns the canonical lowercase name of a WPS attribute type.
func AttributeName(t uint16) string {
	if name, ok := attributeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown attribute (0x%04x)", t)
}

var configMethodNames = []struct {
	bit  uint16
	name string
}{
	{0x0001, "USBA"},
	{0x0002, "Ethernet"},
	{0x0004, "Label"},
	{0x0008, "Display"},
	{0x0010, "External NFC Token"},
	{0x0020, "Integrated NFC Token"},
	{0x0040, "NFC Interface"},
	{0x0080, "Push Button"},
	{0x0100, "Keypad"},
	{0x0280, "Virtual Push Button"},
	{0x0480, "Physical Push Button"},
	{0x2008, "Virtual Display PIN"},
	{0x4008, "Physical Display PIN"},
}

// ConfigMethods expands a config methods bitmap into method names.
// Composite WSC 2.0 methods are reported instead of their base bit.
func ConfigMethods(v uint16) []string {
	var names []string
	covered := uint16(0)
	// composites first so that e.g. 0x0280 is not reported as plain Push Button
	for i := len(configMethodNames) - 1; i >= 0; i-- {
		m := configMethodNames[i]
		if v&m.bit == m.bit && m.bit&^covered != 0 {
			names = append(names, m.name)
			covered |= m.bit
		}
	}
	// restore table order
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

var devicePasswordIDs = map[uint16]string{
	0x0000: "PIN",
	0x0001: "User-specified",
	0x0002: "Machine-specified",
	0x0003: "Rekey",
	0x0004: "PBC",
	0x0005: "Registrar-specified",
	0x0007: "NFC Connection Handover",
}

var responseTypes = map[uint8]string{
	0x00: "Enrollee, Info only",
	0x01: "Enrollee, open 802.1X",
	0x02: "Registrar",
	0x03: "AP",
}

var deviceCategories = map[uint16]string{
	1:  "Computer",
	2:  "Input Device",
	3:  "Printer",
	4:  "Camera",
	5:  "Storage",
	6:  "Network Infrastructure",
	7:  "Display",
	8:  "Multimedia Device",
	9:  "Gaming Device",
	10: "Telephone",
	11: "Audio Device",
	12: "Docking Device",
}

// WFA vendor extension (00:37:2a) sub-element carrying the WSC 2.0 version.
var wfaVendorID = [3]byte{0x00, 0x37, 0x2a}

const wfaSubVersion2 = 0x00

// decodeValue renders the semantic value of a WPS attribute.
func decodeValue(t uint16, v []byte) string {
	switch t {
	case AttrDeviceName, AttrManufacturer, AttrModelName, AttrModelNumber,
		AttrSerialNumber, AttrSSID, AttrNewDeviceName, AttrIdentity, AttrEAPIdentity:
		return string(v)

	case AttrVersion:
		if len(v) < 1 {
			break
		}
		return fmt.Sprintf("%d.%d", v[0]>>4, v[0]&0x0f)

	case AttrWPSState:
		if len(v) < 1 {
			break
		}
		switch v[0] {
		case 0x01:
			return "Not Configured"
		case 0x02:
			return "Configured"
		}

	case AttrConfigMethods, AttrSelectedRegistrarMethods, AttrPermittedConfigMethods:
		if len(v) < 2 {
			break
		}
		return strings.Join(ConfigMethods(binary.BigEndian.Uint16(v)), ", ")

	case AttrDevicePasswordID:
		if len(v) < 2 {
			break
		}
		if name, ok := devicePasswordIDs[binary.BigEndian.Uint16(v)]; ok {
			return name
		}

	case AttrResponseType:
		if len(v) < 1 {
			break
		}
		if name, ok := responseTypes[v[0]]; ok {
			return name
		}

	case AttrUUIDE, AttrUUIDR:
		if len(v) != 16 {
			break
		}
		h := hex.EncodeToString(v)
		return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]

	case AttrRFBands:
		if len(v) < 1 {
			break
		}
		var bands []string
		if v[0]&0x01 != 0 {
			bands = append(bands, "2.4GHz")
		}
		if v[0]&0x02 != 0 {
			bands = append(bands, "5GHz")
		}
		if v[0]&0x04 != 0 {
			bands = append(bands, "60GHz")
		}
		return strings.Join(bands, ", ")

	case AttrAPSetupLocked, AttrSelectedRegistrar, AttrPortableDevice, AttrRadioEnabled,
		AttrReboot, AttrRegistrarEstablished, AttrKeyProvidedAutomatically, Attr8021XEnabled:
		if len(v) < 1 {
			break
		}
		return fmt.Sprintf("%t", v[0] != 0)

	case AttrPrimaryDeviceType:
		if len(v) != 8 {
			break
		}
		cat := binary.BigEndian.Uint16(v[0:2])
		sub := binary.BigEndian.Uint16(v[6:8])
		name := deviceCategories[cat]
		if name == "" {
			name = fmt.Sprintf("%d", cat)
		}
		return fmt.Sprintf("%s-%s-%d", name, hex.EncodeToString(v[2:6]), sub)

	case AttrMACAddress:
		if len(v) != 6 {
			break
		}
		return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", v[0], v[1], v[2], v[3], v[4], v[5])

	case AttrVendorExtension:
		if ver, ok := version2(v); ok {
			return fmt.Sprintf("WFA Version2 %d.%d", ver>>4, ver&0x0f)
		}
	}
	return hex.EncodeToString(v)
}

// version2 extracts the Version2 sub-element of a WFA vendor extension.
func version2(v []byte) (uint8, bool) {
	if len(v) < 3 || [3]byte{v[0], v[1], v[2]} != wfaVendorID {
		return 0, false
	}
	sub := v[3:]
	for len(sub) >= 2 {
		id, l := sub[0], int(sub[1])
		if 2+l > len(sub) {
			return 0, false
		}
		if id == wfaSubVersion2 && l >= 1 {
			return sub[2], true
		}
		sub = sub[2+l:]
	}
	return 0, false
}

// isPrintable reports whether every byte is printable ASCII or ASCII whitespace.
func isPrintable(v []byte) bool {
	for _, c := range v {
		if (c < 0x20 || c > 0x7e) && !strings.ContainsRune("\t\n\r\v\f", rune(c)) {
			return false
		}
	}
	return true
}
