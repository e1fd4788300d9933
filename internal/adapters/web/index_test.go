package web

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func device(bssid, ssid string, sec domain.SecurityLabel, offset time.Duration) domain.Device {
	return domain.Device{
		BSSID:    domain.MustParseMAC(bssid),
		SSID:     ssid,
		Channel:  6,
		Security: sec,
		Attributes: []domain.WPSAttribute{
			{Type: 0x1011, Name: "device name", Raw: []byte("Printer"), Value: "Printer", Printable: true},
		},
		FirstSeen: base.Add(offset),
	}
}

func TestDeviceIndex_FirstSeenWins(t *testing.T) {
	idx := NewDeviceIndex()
	ctx := context.Background()

	require.NoError(t, idx.Emit(ctx, device("00:14:6c:11:22:33", "DIRECT-ab1", domain.SecurityWPA2PSK, 0)))
	require.NoError(t, idx.Emit(ctx, device("00:14:6c:11:22:33", "Other", domain.SecurityOpen, time.Second)))

	assert.Equal(t, 1, idx.Len())
	got, ok := idx.Get(domain.MustParseMAC("00:14:6c:11:22:33"))
	require.True(t, ok)
	assert.Equal(t, "DIRECT-ab1", got.SSID)

	_, ok = idx.Get(domain.MustParseMAC("00:00:00:00:00:01"))
	assert.False(t, ok)
}

func TestDeviceIndex_ListOrder(t *testing.T) {
	idx := NewDeviceIndex()
	ctx := context.Background()

	idx.Emit(ctx, device("00:00:00:00:00:03", "c", domain.SecurityOpen, 2*time.Second))
	idx.Emit(ctx, device("00:00:00:00:00:02", "b", domain.SecurityOpen, time.Second))
	idx.Emit(ctx, device("00:00:00:00:00:01", "a", domain.SecurityOpen, time.Second))

	list := idx.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].SSID)
	assert.Equal(t, "b", list[1].SSID)
	assert.Equal(t, "c", list[2].SSID)
}

func TestShardMAC_Spreads(t *testing.T) {
	seen := map[uint32]bool{}
	for i := 0; i < 64; i++ {
		seen[shardMAC(domain.MAC{0, 0x14, 0x6c, 0, 0, byte(i)})%32] = true
	}
	assert.Greater(t, len(seen), 8)
}
