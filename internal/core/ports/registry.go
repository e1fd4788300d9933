package ports

import "github.com/lcalzada-xor/wpsscan/internal/core/domain"

// DeviceSnapshot exposes the devices discovered so far, in discovery order.
type DeviceSnapshot interface {
	Devices() []domain.Device
	Len() int
}
