package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/fingerprint"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	sniffertest "github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/testing"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/services/registry"
)

var (
	scannerMAC = domain.MustParseMAC("00:de:ad:be:ef:00")
	apMAC      = domain.MustParseMAC("00:14:6c:11:22:33")
	otherAP    = domain.MustParseMAC("00:1d:0f:44:55:66")
)

func wpsResponse(bssid domain.MAC, ssid string, channel uint8, name string) []byte {
	return sniffertest.NewProbeResponse(bssid, scannerMAC).
		SSID(ssid).
		Channel(channel).
		WPS(
			sniffertest.WPSAttr{Type: ie.AttrVersion, Value: []byte{0x10}},
			sniffertest.Text(ie.AttrDeviceName, name),
		).
		Bytes()
}

func newTestReceiver(t *testing.T, h *sniffertest.FakeHandle, opts ...Option) (*Receiver, *registry.DeviceRegistry, *sniffertest.RecordingSink) {
	t.Helper()
	reg := registry.NewDeviceRegistry()
	sink := &sniffertest.RecordingSink{}
	r, err := NewReceiver(ReceiverConfig{Interface: "wlan-test", Source: scannerMAC}, h, reg, sink, opts...)
	require.NoError(t, err)
	return r, reg, sink
}

func TestBPFFilter(t *testing.T) {
	assert.Equal(t, "(type mgt subtype probe-resp) and (wlan addr1 00:de:ad:be:ef:00)", BPFFilter(scannerMAC))
	assert.Equal(t, PassiveFilter, BPFFilter(domain.MAC{}))
}

func TestReceiver_ReplayProducesDevice(t *testing.T) {
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := sniffertest.NewFakeHandle(wpsResponse(apMAC, "DIRECT-ab1", 6, "Printer"))
	r, reg, sink := newTestReceiver(t, h,
		WithClock(func() time.Time { return seen }),
		WithVendors(fingerprint.NewStaticVendorRepository(fingerprint.CommonOUIs)),
	)

	assert.Equal(t, BPFFilter(scannerMAC), h.Filter())
	assert.Equal(t, StateConfiguring, r.State())

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, StateStopped, r.State())

	devices := sink.Devices()
	require.Len(t, devices, 1)
	d := devices[0]
	assert.Equal(t, apMAC, d.BSSID)
	assert.Equal(t, "DIRECT-ab1", d.SSID)
	assert.Equal(t, uint8(6), d.Channel)
	assert.Equal(t, domain.SecurityOpen, d.Security)
	assert.Equal(t, "Netgear", d.Vendor)
	assert.Equal(t, seen, d.FirstSeen)
	assert.True(t, d.IsP2P())

	name, ok := d.Attribute("device name")
	require.True(t, ok)
	assert.Equal(t, "Printer", name.Value)

	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.Reported(apMAC))
	assert.Equal(t, int64(1), r.Stats().DevicesFound)
}

func TestReceiver_ReportsEachBSSIDOnce(t *testing.T) {
	h := sniffertest.NewFakeHandle(
		wpsResponse(apMAC, "first", 1, "one"),
		wpsResponse(otherAP, "other", 11, "two"),
		wpsResponse(apMAC, "second", 6, "three"),
		wpsResponse(apMAC, "third", 6, "four"),
	)
	r, reg, sink := newTestReceiver(t, h)

	require.NoError(t, r.Run(context.Background()))

	devices := sink.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "first", devices[0].SSID)
	assert.Equal(t, "other", devices[1].SSID)
	assert.Equal(t, devices, reg.Devices())
	assert.Equal(t, int64(2), r.Stats().Duplicates)
}

func TestReceiver_SkipsUninterestingFrames(t *testing.T) {
	h := sniffertest.NewFakeHandle(
		nil,
		sniffertest.NewBeacon(apMAC).SSID("beacon").WPS(sniffertest.Text(ie.AttrDeviceName, "x")).Bytes(),
		sniffertest.NewDataFrame(apMAC, scannerMAC).Bytes(),
		sniffertest.NewProbeResponse(apMAC, scannerMAC).SSID("no wps").RSNPSK().Bytes(),
		[]byte{0x00, 0x00, 0x08},
		sniffertest.NewProbeResponse(otherAP, scannerMAC).AddIE(ie.TagVendorSpecific, []byte{0x00, 0x50, 0xf2, 0x04, 0x10, 0x11, 0x00, 0x09, 'x'}).Bytes(),
		wpsResponse(apMAC, "good", 6, "Router"),
	)
	r, _, sink := newTestReceiver(t, h)

	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.Devices(), 1)
	assert.Equal(t, "good", sink.Devices()[0].SSID)

	stats := r.Stats()
	assert.Equal(t, int64(7), stats.FramesRead)
	assert.Equal(t, int64(4), stats.Skipped)
	assert.Equal(t, int64(2), stats.DecodeErrors)
	assert.Equal(t, int64(1), stats.DevicesFound)
}

func TestReceiver_ClassifiesSecurity(t *testing.T) {
	h := sniffertest.NewFakeHandle(
		sniffertest.NewProbeResponse(apMAC, scannerMAC).
			Capabilities(sniffertest.CapESS|sniffertest.CapPrivacy).
			SSID("secure").
			RSNPSK().
			WPS(sniffertest.Text(ie.AttrManufacturer, "ACME")).
			Bytes(),
	)
	r, _, sink := newTestReceiver(t, h)
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.Devices(), 1)
	assert.Equal(t, domain.SecurityWPA2PSK, sink.Devices()[0].Security)
}

func TestReceiver_JoinsFragmentedWPS(t *testing.T) {
	first := sniffertest.WPSPayload(sniffertest.Text(ie.AttrManufacturer, "ACME"))
	second := sniffertest.WPSPayload(sniffertest.Text(ie.AttrModelName, "AX-1"))
	h := sniffertest.NewFakeHandle(
		sniffertest.NewProbeResponse(apMAC, scannerMAC).
			SSID("split").
			AddIE(ie.TagVendorSpecific, first).
			AddIE(ie.TagVendorSpecific, second).
			Bytes(),
	)
	r, _, sink := newTestReceiver(t, h)
	require.NoError(t, r.Run(context.Background()))

	require.Len(t, sink.Devices(), 1)
	attrs := sink.Devices()[0].Attributes
	require.Len(t, attrs, 2)
	assert.Equal(t, "manufacturer", attrs[0].Name)
	assert.Equal(t, "model name", attrs[1].Name)
}

func TestReceiver_TimeoutsAndCancellation(t *testing.T) {
	h := sniffertest.NewFakeHandle(wpsResponse(apMAC, "live", 6, "cam"))
	h.Live = true
	r, _, sink := newTestReceiver(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sink.Devices()) == 1 }, 2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return r.Stats().Timeouts > 0 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateListening, r.State())
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop after cancellation")
	}
}

func TestReceiver_ReadErrorIsFatal(t *testing.T) {
	readErr := errors.New("device went away")
	h := sniffertest.NewFakeHandle(wpsResponse(apMAC, "x", 1, "y"))
	h.Push(sniffertest.Read{Err: readErr}, sniffertest.Read{Data: wpsResponse(otherAP, "never", 1, "z")})
	r, _, sink := newTestReceiver(t, h)

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, readErr)
	assert.Len(t, sink.Devices(), 1)
}

func TestReceiver_SinkErrorIsNotFatal(t *testing.T) {
	h := sniffertest.NewFakeHandle(wpsResponse(apMAC, "a", 1, "x"), wpsResponse(otherAP, "b", 1, "y"))
	reg := registry.NewDeviceRegistry()
	sink := &sniffertest.RecordingSink{Err: errors.New("stdout closed")}
	r, err := NewReceiver(ReceiverConfig{Interface: "wlan-test", Source: scannerMAC}, h, reg, sink)
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, sink.Devices(), 2)
	assert.Equal(t, 2, reg.Len())
	assert.False(t, reg.Reported(apMAC))
	assert.Equal(t, int64(2), r.Stats().EmitErrors)
}

type recordingArchive struct {
	frames [][]byte
	err    error
}

func (a *recordingArchive) WriteFrame(ci gopacket.CaptureInfo, data []byte) error {
	a.frames = append(a.frames, data)
	return a.err
}

func (a *recordingArchive) Close() error { return nil }

func TestReceiver_ArchivesDeviceFrames(t *testing.T) {
	good := wpsResponse(apMAC, "a", 1, "x")
	h := sniffertest.NewFakeHandle(
		sniffertest.NewBeacon(apMAC).Bytes(),
		good,
		good,
	)
	archive := &recordingArchive{}
	r, _, _ := newTestReceiver(t, h, WithArchive(archive))

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, archive.frames, 1)
	assert.Equal(t, good, archive.frames[0])

	h = sniffertest.NewFakeHandle(good)
	failing := &recordingArchive{err: errors.New("disk full")}
	r, _, sink := newTestReceiver(t, h, WithArchive(failing))
	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, sink.Devices(), 1)
	assert.Equal(t, int64(1), r.Stats().ArchiveErrors)
}

func TestNewReceiver_ConfigurationErrors(t *testing.T) {
	reg := registry.NewDeviceRegistry()
	sink := &sniffertest.RecordingSink{}
	cfg := ReceiverConfig{Interface: "wlan-test", Source: scannerMAC}

	h := sniffertest.NewFakeHandle()
	h.FilterErr = errors.New("syntax error")
	_, err := NewReceiver(cfg, h, reg, sink)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "bpf filter", cfgErr.Op)

	h = sniffertest.NewFakeHandle()
	h.Link = layers.LinkTypeEthernet
	_, err = NewReceiver(cfg, h, reg, sink)
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, domain.ErrUnsupportedLinkType)
}

func TestReceiverState_String(t *testing.T) {
	assert.Equal(t, "configuring", StateConfiguring.String())
	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
