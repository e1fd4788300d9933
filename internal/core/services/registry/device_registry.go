// Package registry keeps the set of devices discovered during a scan session.
package registry

import (
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// DeviceRegistry is the first-seen-wins set of discovered devices, keyed by
// BSSID. A device is never replaced once registered.
//
// The receiver loop is the only writer. The lock lets HTTP handlers and the
// end-of-session report take snapshots while a scan is running.
type DeviceRegistry struct {
	mu       sync.RWMutex
	devices  map[domain.MAC]domain.Device
	order    []domain.MAC
	reported mapset.Set
}

// NewDeviceRegistry creates an empty registry.
func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{
		devices:  make(map[domain.MAC]domain.Device),
		reported: mapset.NewSet(),
	}
}

// Seen reports whether bssid has been registered.
func (r *DeviceRegistry) Seen(bssid domain.MAC) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[bssid]
	return ok
}

// Register stores d unless its BSSID is already known. It returns true when
// d was stored.
func (r *DeviceRegistry) Register(d domain.Device) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.BSSID]; ok {
		return false
	}
	d.Attributes = append([]domain.WPSAttribute(nil), d.Attributes...)
	r.devices[d.BSSID] = d
	r.order = append(r.order, d.BSSID)
	return true
}

// Device returns the registered device for bssid.
func (r *DeviceRegistry) Device(bssid domain.MAC) (domain.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[bssid]
	return d, ok
}

// MarkReported records that bssid was handed to the output sink.
func (r *DeviceRegistry) MarkReported(bssid domain.MAC) {
	r.reported.Add(bssid)
}

// Reported reports whether bssid was handed to the output sink.
func (r *DeviceRegistry) Reported(bssid domain.MAC) bool {
	return r.reported.Contains(bssid)
}

// Devices returns a snapshot in discovery order.
func (r *DeviceRegistry) Devices() []domain.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Device, 0, len(r.order))
	for _, mac := range r.order {
		out = append(out, r.devices[mac])
	}
	return out
}

// Len returns the number of registered devices.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
