package storage

import (
	"fmt"
	"time"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// SessionModel is the GORM model for scan sessions.
type SessionModel struct {
	ID           string `gorm:"primaryKey"`
	Interface    string
	SourceMAC    string
	Mode         string
	StartedAt    time.Time
	EndedAt      time.Time
	FramesRead   int64
	Skipped      int64
	Duplicates   int64
	DecodeErrors int64
	DevicesFound int64
}

// DeviceModel is the GORM model for devices. A BSSID appears once per session.
type DeviceModel struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"uniqueIndex:idx_session_bssid"`
	BSSID     string `gorm:"column:bssid;uniqueIndex:idx_session_bssid"`
	SSID      string `gorm:"column:ssid"`
	Channel   uint8
	Security  string
	Vendor    string
	IsP2P     bool
	FirstSeen time.Time `gorm:"index"`

	Attributes []AttributeModel `gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
}

// AttributeModel stores one WPS attribute; Position keeps the on-air order.
type AttributeModel struct {
	ID        uint `gorm:"primaryKey"`
	DeviceID  uint `gorm:"index"`
	Position  int
	Type      uint16
	Name      string
	Raw       []byte
	Value     string
	Printable bool
}

func toSessionModel(s domain.SessionInfo) SessionModel {
	return SessionModel{
		ID:           s.ID,
		Interface:    s.Interface,
		SourceMAC:    s.SourceMAC.String(),
		Mode:         string(s.Mode),
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
		FramesRead:   s.Stats.FramesRead,
		Skipped:      s.Stats.Skipped,
		Duplicates:   s.Stats.Duplicates,
		DecodeErrors: s.Stats.DecodeErrors,
		DevicesFound: s.Stats.DevicesFound,
	}
}

func toSessionDomain(m SessionModel) (domain.SessionInfo, error) {
	src, err := domain.ParseMAC(m.SourceMAC)
	if err != nil {
		return domain.SessionInfo{}, fmt.Errorf("session %s: %w", m.ID, err)
	}
	return domain.SessionInfo{
		ID:        m.ID,
		Interface: m.Interface,
		SourceMAC: src,
		Mode:      domain.ScanMode(m.Mode),
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Stats: domain.CaptureStats{
			FramesRead:   m.FramesRead,
			Skipped:      m.Skipped,
			Duplicates:   m.Duplicates,
			DecodeErrors: m.DecodeErrors,
			DevicesFound: m.DevicesFound,
		},
	}, nil
}

// toDeviceModel converts a domain entity to a database model.
func toDeviceModel(sessionID string, d domain.Device) DeviceModel {
	model := DeviceModel{
		SessionID:  sessionID,
		BSSID:      d.BSSID.String(),
		SSID:       d.SSID,
		Channel:    d.Channel,
		Security:   string(d.Security),
		Vendor:     d.Vendor,
		IsP2P:      d.IsP2P(),
		FirstSeen:  d.FirstSeen,
		Attributes: make([]AttributeModel, len(d.Attributes)),
	}
	for i, a := range d.Attributes {
		model.Attributes[i] = AttributeModel{
			Position:  i,
			Type:      a.Type,
			Name:      a.Name,
			Raw:       a.Raw,
			Value:     a.Value,
			Printable: a.Printable,
		}
	}
	return model
}

// toDeviceDomain converts a database model to a domain entity.
func toDeviceDomain(m DeviceModel) (domain.Device, error) {
	bssid, err := domain.ParseMAC(m.BSSID)
	if err != nil {
		return domain.Device{}, fmt.Errorf("device %d: %w", m.ID, err)
	}
	d := domain.Device{
		BSSID:      bssid,
		SSID:       m.SSID,
		Channel:    m.Channel,
		Security:   domain.SecurityLabel(m.Security),
		Vendor:     m.Vendor,
		FirstSeen:  m.FirstSeen,
		Attributes: make([]domain.WPSAttribute, len(m.Attributes)),
	}
	for i, a := range m.Attributes {
		d.Attributes[i] = domain.WPSAttribute{
			Type:      a.Type,
			Name:      a.Name,
			Raw:       a.Raw,
			Value:     a.Value,
			Printable: a.Printable,
		}
	}
	return d, nil
}
