package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

func sessionInfo() domain.SessionInfo {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.SessionInfo{
		ID:        "6f1c2a9e-1111-2222-3333-444455556666",
		Interface: "wlan0mon",
		SourceMAC: domain.MustParseMAC("00:de:ad:be:ef:00"),
		Mode:      domain.ModeActive,
		StartedAt: start,
		EndedAt:   start.Add(90 * time.Second),
		Stats: domain.CaptureStats{
			FramesRead:   120,
			Duplicates:   14,
			Skipped:      3,
			DevicesFound: 2,
		},
	}
}

func TestPDFExporterExportSession(t *testing.T) {
	exporter := NewPDFExporter()

	open := printer()
	open.BSSID = domain.MustParseMAC("00:1d:0f:44:55:66")
	open.SSID = "Café"
	open.Security = domain.SecurityOpen

	data, err := exporter.ExportSession(sessionInfo(), []domain.Device{printer(), open})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "PDF header missing")
	assert.Greater(t, len(data), 1000)
}

func TestPDFExporterWithMinimalData(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.ExportSession(domain.SessionInfo{ID: "x"}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestPDFExporterManyDevices(t *testing.T) {
	exporter := NewPDFExporter()

	devices := make([]domain.Device, 0, 60)
	for i := 0; i < 60; i++ {
		d := printer()
		d.BSSID[5] = byte(i)
		devices = append(devices, d)
	}

	data, err := exporter.ExportSession(sessionInfo(), devices)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestPDFExporterWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")

	require.NoError(t, NewPDFExporter().WriteFile(path, sessionInfo(), []domain.Device{printer()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestSecurityColor(t *testing.T) {
	labels := []domain.SecurityLabel{
		domain.SecurityOpen, domain.SecurityWEP, domain.SecurityWPAPSK,
		domain.SecurityWPA2PSK, domain.SecurityMixed, domain.SecurityUnknown,
	}
	for _, l := range labels {
		t.Run(string(l), func(t *testing.T) {
			r, g, b := securityColor(l)
			for _, c := range []int{r, g, b} {
				assert.GreaterOrEqual(t, c, 0)
				assert.LessOrEqual(t, c, 255)
			}
		})
	}
	r, _, _ := securityColor(domain.SecurityOpen)
	assert.Equal(t, 220, r)
}

func TestWPSCell(t *testing.T) {
	assert.Equal(t, "?", wpsCell(ie.WPSInfo{}))
	assert.Equal(t, "2.0", wpsCell(ie.WPSInfo{Version: "2.0"}))
	assert.Equal(t, "1.0 locked", wpsCell(ie.WPSInfo{Version: "1.0", Locked: true}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "6f1c2a9e", shortID("6f1c2a9e-1111"))
	assert.Equal(t, "x", shortID("x"))
}

func BenchmarkPDFExport(b *testing.B) {
	exporter := NewPDFExporter()
	devices := []domain.Device{printer(), printer()}
	info := sessionInfo()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exporter.ExportSession(info, devices); err != nil {
			b.Fatal(err)
		}
	}
}
