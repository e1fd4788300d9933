package ports

import (
	"context"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// Storage defines the behavior for data persistence.
type Storage interface {
	// SaveSession inserts or updates the session row.
	SaveSession(ctx context.Context, session domain.SessionInfo) error

	// SaveDevice records a device discovered during the given session.
	SaveDevice(ctx context.Context, sessionID string, device domain.Device) error

	// GetDevices returns the devices of a session in discovery order.
	GetDevices(ctx context.Context, sessionID string) ([]domain.Device, error)

	// Close closes the storage connection.
	Close() error
}
