package driver

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/mdlayher/wifi"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

// ErrNoChannel indicates the interface reported no operating channel.
var ErrNoChannel = errors.New("interface has no channel")

// runFunc executes a command and returns its combined output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// IWChannelQuery reads the channel from `iw dev <iface> info`.
type IWChannelQuery struct {
	run runFunc
}

func NewIWChannelQuery() *IWChannelQuery {
	return &IWChannelQuery{run: execRun}
}

func (q *IWChannelQuery) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	out, err := q.run(ctx, "iw", "dev", iface, "info")
	if err != nil {
		return 0, fmt.Errorf("iw dev %s info: %w (%s)", iface, err, bytesTrim(out))
	}
	return ParseIWInfoChannel(out)
}

// Output format:
//
//	Interface wlan0
//		ifindex 3
//		type monitor
//		channel 6 (2437 MHz), width: 20 MHz (no HT), center1: 2437 MHz
var iwChannelRegex = regexp.MustCompile(`(?m)^\s*channel\s+(\d+)\s+\((\d+)\s*MHz\)`)

// ParseIWInfoChannel extracts the channel number from `iw dev <iface> info` output.
func ParseIWInfoChannel(out []byte) (uint8, error) {
	m := iwChannelRegex.FindSubmatch(out)
	if m == nil {
		return 0, ErrNoChannel
	}
	ch, err := strconv.Atoi(string(m[1]))
	if err != nil || ch <= 0 || ch > 255 {
		return 0, fmt.Errorf("invalid channel %q: %w", m[1], ErrNoChannel)
	}
	return uint8(ch), nil
}

// NetlinkChannelQuery reads the interface frequency over nl80211.
type NetlinkChannelQuery struct {
	mu     sync.Mutex
	client *wifi.Client
}

func NewNetlinkChannelQuery() *NetlinkChannelQuery {
	return &NetlinkChannelQuery{}
}

func (q *NetlinkChannelQuery) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.client == nil {
		c, err := wifi.New()
		if err != nil {
			return 0, fmt.Errorf("nl80211: %w", err)
		}
		q.client = c
	}

	ifis, err := q.client.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("nl80211 interfaces: %w", err)
	}
	for _, ifi := range ifis {
		if ifi.Name != iface {
			continue
		}
		return FrequencyToChannel(ifi.Frequency)
	}
	return 0, fmt.Errorf("nl80211: interface %s not found", iface)
}

// Close releases the netlink socket.
func (q *NetlinkChannelQuery) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.client == nil {
		return nil
	}
	err := q.client.Close()
	q.client = nil
	return err
}

// FrequencyToChannel converts a center frequency in MHz to a channel number
// in the 2.4, 4.9, 5 or 6 GHz band.
func FrequencyToChannel(freq int) (uint8, error) {
	var ch int
	switch {
	case freq <= 0:
		return 0, ErrNoChannel
	case freq == 2484:
		ch = 14
	case freq >= 2412 && freq < 2484:
		ch = (freq - 2407) / 5
	case freq >= 4910 && freq <= 4980:
		ch = (freq - 4000) / 5
	case freq >= 5005 && freq <= 5895:
		ch = (freq - 5000) / 5
	case freq == 5935:
		ch = 2
	case freq >= 5955 && freq <= 7115:
		ch = (freq - 5950) / 5
	}
	if ch <= 0 || ch > 255 {
		return 0, fmt.Errorf("frequency %d MHz: %w", freq, ErrNoChannel)
	}
	return uint8(ch), nil
}

// ChannelQuerier is satisfied by every query in this package.
type ChannelQuerier interface {
	CurrentChannel(ctx context.Context, iface string) (uint8, error)
}

// FallbackChannelQuery tries each query in order and returns the first answer.
type FallbackChannelQuery struct {
	queries []ChannelQuerier
	logger  *zap.Logger
}

func NewFallbackChannelQuery(logger *zap.Logger, queries ...ChannelQuerier) *FallbackChannelQuery {
	return &FallbackChannelQuery{queries: queries, logger: logging.OrNop(logger).Named("channel")}
}

func (q *FallbackChannelQuery) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	var errs []error
	for _, query := range q.queries {
		ch, err := query.CurrentChannel(ctx, iface)
		if err == nil {
			return ch, nil
		}
		q.logger.Debug("Channel query failed, trying next", zap.String("interface", iface), zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, ErrNoChannel
	}
	return 0, errors.Join(errs...)
}

// StaticChannel always reports the same channel.
type StaticChannel uint8

func (c StaticChannel) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	if c == 0 {
		return 0, ErrNoChannel
	}
	return uint8(c), nil
}

func bytesTrim(b []byte) string {
	const limit = 200
	if len(b) > limit {
		b = b[:limit]
	}
	return strings.Join(strings.Fields(string(b)), " ")
}
