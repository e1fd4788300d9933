// Package web serves the devices of the running scan over HTTP: a JSON API,
// a websocket live feed and the Prometheus metrics endpoint.
package web

import (
	"context"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// DeviceIndex is the read side used by HTTP handlers. It is fed as a
// DeviceSink and never blocks the capture loop on readers.
type DeviceIndex struct {
	devices cmap.ConcurrentMap[domain.MAC, domain.Device]
}

func NewDeviceIndex() *DeviceIndex {
	return &DeviceIndex{
		devices: cmap.NewWithCustomShardingFunction[domain.MAC, domain.Device](shardMAC),
	}
}

// shardMAC is FNV-1a over the address bytes.
func shardMAC(key domain.MAC) uint32 {
	hash := uint32(2166136261)
	const prime32 = uint32(16777619)
	for _, b := range key {
		hash ^= uint32(b)
		hash *= prime32
	}
	return hash
}

// Emit stores the device unless the BSSID is already indexed.
func (x *DeviceIndex) Emit(_ context.Context, device domain.Device) error {
	x.devices.SetIfAbsent(device.BSSID, device)
	return nil
}

func (x *DeviceIndex) Get(bssid domain.MAC) (domain.Device, bool) {
	return x.devices.Get(bssid)
}

func (x *DeviceIndex) Len() int {
	return x.devices.Count()
}

// List returns the indexed devices ordered by first sighting.
func (x *DeviceIndex) List() []domain.Device {
	out := make([]domain.Device, 0, x.devices.Count())
	for item := range x.devices.IterBuffered() {
		out = append(out, item.Val)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].BSSID.String() < out[j].BSSID.String()
	})
	return out
}
