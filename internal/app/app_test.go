package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	sniffertest "github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/testing"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/storage"
	"github.com/lcalzada-xor/wpsscan/internal/config"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

func writeReplay(t *testing.T, dir string, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(dir, "input.pcap")
	archive, err := capture.CreateArchive(path, layers.LinkTypeIEEE80211Radio)
	require.NoError(t, err)
	ts := time.Unix(1700000000, 0)
	for i, f := range frames {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Millisecond), CaptureLength: len(f), Length: len(f)}
		require.NoError(t, archive.WriteFrame(ci, f))
	}
	require.NoError(t, archive.Close())
	return path
}

func TestApplication_ReplayWritesEveryOutput(t *testing.T) {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.ReplayPath = writeReplay(t, dir,
		printerResponse(),
		printerResponse(),
		sniffertest.NewBeacon(apMAC).SSID("beacon").Bytes(),
	)
	cfg.DBPath = filepath.Join(dir, "db", "wpsscan.db")
	cfg.EventLogPath = filepath.Join(dir, "devices.cbor")
	cfg.ReportPath = filepath.Join(dir, "report.pdf")
	cfg.PcapPath = filepath.Join(dir, "found.pcap")

	var out bytes.Buffer
	a, err := New(cfg, nil, WithOutput(&out))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "BSSID: 00:14:6c:11:22:33\n")
	assert.Contains(t, out.String(), "SSID: DIRECT-ab1\n")
	assert.Contains(t, out.String(), "Device Name: Printer\n")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("BSSID: ")))

	info := a.Session.Info()
	assert.Equal(t, domain.ModeReplay, info.Mode)
	assert.Equal(t, "input.pcap", info.Interface)
	assert.Equal(t, int64(1), info.Stats.Duplicates)

	store, err := storage.NewSQLiteAdapter(cfg.DBPath)
	require.NoError(t, err)
	defer store.Close()
	devices, err := store.GetDevices(context.Background(), a.SessionID())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Netgear", devices[0].Vendor)
	assert.Equal(t, "DIRECT-ab1", devices[0].SSID)
	assert.Equal(t, domain.MustParseMAC("00:14:6c:11:22:33"), devices[0].BSSID)
	assert.NotEmpty(t, devices[0].Attributes)
	session, err := store.GetSession(context.Background(), a.SessionID())
	require.NoError(t, err)
	assert.False(t, session.EndedAt.IsZero())

	r, err := storage.OpenEventReader(cfg.EventLogPath, a.SessionID())
	require.NoError(t, err)
	defer r.Close()
	events, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, events, 1)

	report, err := os.ReadFile(cfg.ReportPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(report, []byte("%PDF-")))

	archived, err := capture.OpenReplay(cfg.PcapPath)
	require.NoError(t, err)
	defer archived.Close()
	data, _, err := archived.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, printerResponse(), data)
}

func TestApplication_ActiveScan(t *testing.T) {
	handle := sniffertest.NewFakeHandle(printerResponse())
	handle.Live = true
	opener := &sniffertest.FakeOpener{Handle: handle}

	cfg := config.Default()
	cfg.Interface = "wlan-test"
	cfg.ProbeInterval = time.Millisecond

	var out bytes.Buffer
	a, err := New(cfg, nil,
		WithOpener(opener),
		WithChannelQuery(sniffertest.NewFakeChannelQuery(6)),
		WithOutput(&out))
	require.NoError(t, err)
	assert.Equal(t, []string{"wlan-test", "wlan-test"}, opener.Opened(), "capture and injection handles")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.Session.Registry().Len() == 1 && len(handle.Written()) > 0
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("application did not stop")
	}

	assert.True(t, handle.Closed())
	assert.Contains(t, out.String(), "Channel: 6\n")
	assert.Equal(t, capture.BPFFilter(cfg.Source()), handle.Filter())
}

func TestApplication_PassiveOpensNoInjector(t *testing.T) {
	handle := sniffertest.NewFakeHandle(printerResponse())
	opener := &sniffertest.FakeOpener{Handle: handle}

	cfg := config.Default()
	cfg.Interface = "wlan-test"
	cfg.Passive = true

	a, err := New(cfg, nil, WithOpener(opener), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []string{"wlan-test"}, opener.Opened())
	assert.Empty(t, handle.Written())
	assert.Equal(t, capture.PassiveFilter, handle.Filter())
	assert.Equal(t, 1, a.Session.Registry().Len())
}

func TestApplication_BootstrapErrors(t *testing.T) {
	openErr := errors.New("no such device")

	t.Run("capture open", func(t *testing.T) {
		cfg := config.Default()
		cfg.Interface = "wlan-test"
		_, err := New(cfg, nil, WithOpener(&sniffertest.FakeOpener{Err: openErr}))
		assert.ErrorIs(t, err, openErr)
	})

	t.Run("missing oui file", func(t *testing.T) {
		handle := sniffertest.NewFakeHandle()
		cfg := config.Default()
		cfg.Interface = "wlan-test"
		cfg.Passive = true
		cfg.OUIPath = filepath.Join(t.TempDir(), "missing.txt")

		_, err := New(cfg, nil, WithOpener(&sniffertest.FakeOpener{Handle: handle}))
		var cfgErr *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("missing replay", func(t *testing.T) {
		cfg := config.Default()
		cfg.ReplayPath = filepath.Join(t.TempDir(), "missing.pcap")
		_, err := New(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("archive path unwritable releases capture", func(t *testing.T) {
		handle := sniffertest.NewFakeHandle()
		cfg := config.Default()
		cfg.Interface = "wlan-test"
		cfg.Passive = true
		cfg.PcapPath = filepath.Join(t.TempDir(), "no", "such", "dir", "out.pcap")

		_, err := New(cfg, nil, WithOpener(&sniffertest.FakeOpener{Handle: handle}))
		var cfgErr *domain.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.True(t, handle.Closed())
	})
}

func TestApplication_HTTPIndexFedBySession(t *testing.T) {
	handle := sniffertest.NewFakeHandle(
		printerResponse(),
		sniffertest.NewProbeResponse(domain.MustParseMAC("00:1d:0f:44:55:66"), scannerMAC).
			SSID("HomeAP").
			RSNPSK().
			Capabilities(sniffertest.CapESS|sniffertest.CapPrivacy).
			WPS(sniffertest.Text(ie.AttrDeviceName, "Router")).
			Bytes(),
	)
	cfg := config.Default()
	cfg.Interface = "wlan-test"
	cfg.Passive = true
	cfg.HTTPAddr = "127.0.0.1:0"

	a, err := New(cfg, nil, WithOpener(&sniffertest.FakeOpener{Handle: handle}), WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	require.NotNil(t, a.WebServer)

	// the websocket feed runs on a worker, never inside the capture loop
	var feeds []string
	for _, s := range a.async {
		feeds = append(feeds, s.Name())
	}
	assert.Contains(t, feeds, "websocket")

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, 2, a.WebServer.Index.Len())
	router, ok := a.WebServer.Index.Get(domain.MustParseMAC("00:1d:0f:44:55:66"))
	require.True(t, ok)
	assert.Equal(t, domain.SecurityWPA2PSK, router.Security)
	assert.Equal(t, "TP-Link", router.Vendor)
}

func TestApplication_StorageFailureSurfaces(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ReplayPath = writeReplay(t, dir, printerResponse())
	cfg.DBPath = filepath.Join(dir, "wpsscan.db")

	a, err := New(cfg, nil, WithOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	require.NoError(t, a.Store.Close())

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "storage sink: 1 device deliveries failed")
}
