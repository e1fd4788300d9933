package driver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iwInfoMonitor = `Interface wlan0mon
	ifindex 5
	wdev 0x100000002
	addr 00:c0:ca:aa:bb:cc
	type monitor
	wiphy 1
	channel 6 (2437 MHz), width: 20 MHz (no HT), center1: 2437 MHz
	txpower 20.00 dBm
`

const iwInfo5GHz = `Interface wlan1
	ifindex 4
	type managed
	channel 149 (5745 MHz), width: 80 MHz, center1: 5775 MHz
`

const iwInfoNoChannel = `Interface wlan0
	ifindex 3
	type managed
	txpower 0.00 dBm
`

func TestParseIWInfoChannel(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    uint8
		wantErr bool
	}{
		{"monitor 2.4GHz", iwInfoMonitor, 6, false},
		{"managed 5GHz", iwInfo5GHz, 149, false},
		{"no channel", iwInfoNoChannel, 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := ParseIWInfoChannel([]byte(tt.out))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoChannel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ch)
		})
	}
}

func TestIWChannelQuery(t *testing.T) {
	var gotArgs []string
	q := &IWChannelQuery{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(iwInfoMonitor), nil
	}}

	ch, err := q.CurrentChannel(context.Background(), "wlan0mon")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), ch)
	assert.Equal(t, "iw dev wlan0mon info", strings.Join(gotArgs, " "))
}

func TestIWChannelQuery_CommandError(t *testing.T) {
	q := &IWChannelQuery{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("command failed: No such device (-19)\n"), errors.New("exit status 237")
	}}

	_, err := q.CurrentChannel(context.Background(), "wlan9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such device (-19)")
}

func TestFrequencyToChannel(t *testing.T) {
	tests := []struct {
		freq int
		want uint8
	}{
		{2412, 1},
		{2437, 6},
		{2484, 14},
		{5180, 36},
		{5745, 149},
		{5825, 165},
		{4920, 184},
		{5955, 1},
		{6115, 33},
		{7115, 233},
	}
	for _, tt := range tests {
		ch, err := FrequencyToChannel(tt.freq)
		require.NoError(t, err, "freq %d", tt.freq)
		assert.Equal(t, tt.want, ch, "freq %d", tt.freq)
	}

	for _, freq := range []int{0, -5, 900, 3600, 60480} {
		_, err := FrequencyToChannel(freq)
		assert.ErrorIs(t, err, ErrNoChannel, "freq %d", freq)
	}
}

type stubQuery struct {
	ch  uint8
	err error
}

func (s stubQuery) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	return s.ch, s.err
}

func TestFallbackChannelQuery(t *testing.T) {
	primaryErr := errors.New("nl80211 unavailable")

	q := NewFallbackChannelQuery(nil, stubQuery{err: primaryErr}, stubQuery{ch: 11})
	ch, err := q.CurrentChannel(context.Background(), "wlan0")
	require.NoError(t, err)
	assert.Equal(t, uint8(11), ch)

	allFail := NewFallbackChannelQuery(nil, stubQuery{err: primaryErr}, stubQuery{err: ErrNoChannel})
	_, err = allFail.CurrentChannel(context.Background(), "wlan0")
	assert.ErrorIs(t, err, primaryErr)
	assert.ErrorIs(t, err, ErrNoChannel)

	_, err = NewFallbackChannelQuery(nil).CurrentChannel(context.Background(), "wlan0")
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestStaticChannel(t *testing.T) {
	ch, err := StaticChannel(6).CurrentChannel(context.Background(), "any")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), ch)

	_, err = StaticChannel(0).CurrentChannel(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNoChannel)
}
