package ie

import (
	"encoding/binary"
	"strings"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// WPSInfo contains details extracted from WPS IEs
type WPSInfo struct {
	Manufacturer  string
	Model         string
	ModelNumber   string
	DeviceName    string
	SerialNumber  string
	State         string // "Not Configured" | "Configured"
	Version       string // "1.0" | "2.0"
	Locked        bool
	ConfigMethods []string
}

// DecodeWPS decodes the attributes of a WPS vendor-specific element.
// payload is the full element payload, OUI and type included. Attributes
// are returned in frame order; a truncated attribute fails the whole element.
func DecodeWPS(payload []byte) ([]domain.WPSAttribute, error) {
	if len(payload) < 4 {
		return nil, &domain.DecodeError{Op: "wps header", Offset: 0, Err: domain.ErrTruncatedAttribute}
	}

	data := payload[4:]
	offset := 0
	limit := len(data)
	var attrs []domain.WPSAttribute

	for offset < limit {
		if offset+4 > limit {
			return nil, &domain.DecodeError{Op: "wps attribute header", Offset: offset + 4, Err: domain.ErrTruncatedAttribute}
		}
		attrType := binary.BigEndian.Uint16(data[offset:])
		attrLen := int(binary.BigEndian.Uint16(data[offset+2:]))

		if offset+4+attrLen > limit {
			return nil, &domain.DecodeError{Op: "wps attribute", Offset: offset + 4, Err: domain.ErrTruncatedAttribute}
		}

		raw := make([]byte, attrLen)
		copy(raw, data[offset+4:offset+4+attrLen])

		attrs = append(attrs, domain.WPSAttribute{
			Type:      attrType,
			Name:      AttributeName(attrType),
			Raw:       raw,
			Value:     decodeValue(attrType, raw),
			Printable: isPrintable(raw),
		})

		offset += 4 + attrLen
	}

	return attrs, nil
}

// SummarizeWPS collects the commonly displayed fields of a decoded element.
func SummarizeWPS(attrs []domain.WPSAttribute) WPSInfo {
	var info WPSInfo
	for _, a := range attrs {
		switch a.Type {
		case AttrManufacturer:
			info.Manufacturer = a.Value
		case AttrModelName:
			info.Model = a.Value
		case AttrModelNumber:
			info.ModelNumber = a.Value
		case AttrDeviceName:
			info.DeviceName = a.Value
		case AttrSerialNumber:
			info.SerialNumber = a.Value
		case AttrWPSState:
			info.State = a.Value
		case AttrVersion:
			if info.Version == "" {
				info.Version = a.Value
			}
		case AttrVendorExtension:
			// WSC 2.0 devices keep 0x10 in the legacy version attribute
			if v, ok := version2(a.Raw); ok {
				info.Version = decodeValue(AttrVersion, []byte{v})
			}
		case AttrAPSetupLocked:
			info.Locked = a.Value == "true"
		case AttrConfigMethods, AttrSelectedRegistrarMethods:
			if a.Value != "" && len(info.ConfigMethods) == 0 {
				info.ConfigMethods = strings.Split(a.Value, ", ")
			}
		}
	}
	return info
}
