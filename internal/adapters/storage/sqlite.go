// Package storage persists scan sessions and the devices they discovered.
package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// ErrSessionNotFound is returned by GetSession for an unknown ID.
var ErrSessionNotFound = errors.New("session not found")

// SQLiteAdapter implements ports.Storage using GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// NewSQLiteAdapter initializes the database and migrates schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.AutoMigrate(&SessionModel{}, &DeviceModel{}, &AttributeModel{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_devices_security ON device_models(security)",
		"CREATE INDEX IF NOT EXISTS idx_devices_ssid ON device_models(ssid)",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
	}

	return &SQLiteAdapter{db: db}, nil
}

// SaveSession inserts the session or updates its end time and counters.
func (a *SQLiteAdapter) SaveSession(ctx context.Context, session domain.SessionInfo) error {
	model := toSessionModel(session)
	if err := a.db.WithContext(ctx).Save(&model).Error; err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession loads one session row.
func (a *SQLiteAdapter) GetSession(ctx context.Context, id string) (domain.SessionInfo, error) {
	var model SessionModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return domain.SessionInfo{}, err
	}
	return toSessionDomain(model)
}

// SaveDevice stores a device with its attributes. A BSSID already stored for
// the session is left untouched.
func (a *SQLiteAdapter) SaveDevice(ctx context.Context, sessionID string, device domain.Device) error {
	model := toDeviceModel(sessionID, device)
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DeviceModel{}).
			Where("session_id = ? AND bssid = ?", sessionID, model.BSSID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("save device %s: %w", model.BSSID, err)
		}
		return nil
	})
}

// GetDevices returns the devices of a session in discovery order.
func (a *SQLiteAdapter) GetDevices(ctx context.Context, sessionID string) ([]domain.Device, error) {
	var models []DeviceModel
	err := a.db.WithContext(ctx).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("session_id = ?", sessionID).
		Order("first_seen, id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(models))
	for _, m := range models {
		d, err := toDeviceDomain(m)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Sink returns a DeviceSink recording devices under sessionID.
func (a *SQLiteAdapter) Sink(sessionID string) ports.DeviceSink {
	return ports.DeviceSinkFunc(func(ctx context.Context, device domain.Device) error {
		return a.SaveDevice(ctx, sessionID, device)
	})
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.Storage = (*SQLiteAdapter)(nil)
