package reporting

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// PDFExporter renders the end-of-session report.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// ExportSession generates a PDF listing every device discovered in the session
func (e *PDFExporter) ExportSession(info domain.SessionInfo, devices []domain.Device) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	e.addHeader(pdf, info)
	e.addStatistics(pdf, info, devices)
	e.addSecurityBreakdown(pdf, devices)
	e.addDeviceTable(pdf, tr, devices)
	e.addDeviceDetails(pdf, tr, devices)
	e.addFooter(pdf, info)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile exports the session report to path.
func (e *PDFExporter) WriteFile(path string, info domain.SessionInfo, devices []domain.Device) error {
	data, err := e.ExportSession(info, devices)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// addHeader adds the report header
func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, info domain.SessionInfo) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "WPS Scan Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", e.now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Interface: %s (%s)", info.Interface, info.Mode), "", 1, "L", false, 0, "")
	if !info.SourceMAC.IsZero() {
		pdf.CellFormat(0, 6, fmt.Sprintf("Probe source: %s", info.SourceMAC), "", 1, "L", false, 0, "")
	}
	if !info.StartedAt.IsZero() {
		period := fmt.Sprintf("Scan period: %s", info.StartedAt.Format("2006-01-02 15:04:05"))
		if !info.EndedAt.IsZero() {
			period += fmt.Sprintf(" to %s (%s)", info.EndedAt.Format("15:04:05"), info.Duration().Round(time.Second))
		}
		pdf.CellFormat(0, 6, period, "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
}

// addStatistics adds the capture counters
func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, info domain.SessionInfo, devices []domain.Device) {
	sectionTitle(pdf, "Capture Overview")

	p2p := 0
	for _, d := range devices {
		if d.IsP2P() {
			p2p++
		}
	}

	stats := []struct {
		label string
		value int64
	}{
		{"Devices", int64(len(devices))},
		{"Wi-Fi Direct", int64(p2p)},
		{"Frames read", info.Stats.FramesRead},
		{"Duplicates", info.Stats.Duplicates},
		{"Skipped", info.Stats.Skipped},
		{"Decode errors", info.Stats.DecodeErrors},
	}

	// Display in 2 columns
	for i, stat := range stats {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, stat.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(35, 7, fmt.Sprintf("%d", stat.value), "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}

	pdf.Ln(10)
}

// addSecurityBreakdown counts devices per security label
func (e *PDFExporter) addSecurityBreakdown(pdf *gofpdf.Fpdf, devices []domain.Device) {
	if len(devices) == 0 {
		return
	}
	sectionTitle(pdf, "Security")

	counts := make(map[domain.SecurityLabel]int)
	for _, d := range devices {
		counts[d.Security]++
	}
	labels := make([]domain.SecurityLabel, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	for _, l := range labels {
		r, g, b := securityColor(l)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(50, 7, string(l), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", counts[l]), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

// securityColor returns RGB color based on how weak the protection is
func securityColor(l domain.SecurityLabel) (r, g, b int) {
	switch l {
	case domain.SecurityOpen:
		return 220, 53, 69 // Red
	case domain.SecurityWEP:
		return 255, 149, 0 // Orange
	case domain.SecurityWPAPSK, domain.SecurityMixed:
		return 255, 204, 0 // Yellow
	case domain.SecurityWPA2PSK:
		return 52, 199, 89 // Green
	default:
		return 150, 150, 150
	}
}

// addDeviceTable adds one row per device
func (e *PDFExporter) addDeviceTable(pdf *gofpdf.Fpdf, tr func(string) string, devices []domain.Device) {
	sectionTitle(pdf, "Discovered Devices")

	if len(devices) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No WPS-enabled devices responded", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(40, 8, "BSSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 8, "SSID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(15, 8, "Ch", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Security", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Vendor", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "WPS", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, d := range devices {
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 7, d.BSSID.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, tr(truncate(d.SSID, 28)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", d.Channel), "1", 0, "C", false, 0, "")

		r, g, b := securityColor(d.Security)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(35, 7, string(d.Security), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, tr(truncate(d.Vendor, 16)), "1", 0, "L", false, 0, "")

		wps := ie.SummarizeWPS(d.Attributes)
		if wps.Locked {
			pdf.SetTextColor(200, 0, 0)
		}
		pdf.CellFormat(20, 7, wpsCell(wps), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

// wpsCell renders the WPS version, flagging an AP that locked its PIN setup.
func wpsCell(info ie.WPSInfo) string {
	v := info.Version
	if v == "" {
		v = "?"
	}
	if info.Locked {
		v += " locked"
	}
	return v
}

// addDeviceDetails lists the WPS attributes of each device
func (e *PDFExporter) addDeviceDetails(pdf *gofpdf.Fpdf, tr func(string) string, devices []domain.Device) {
	for _, d := range devices {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 51, 102)
		title := d.BSSID.String()
		if d.SSID != "" {
			title += "  " + d.SSID
		}
		pdf.CellFormat(0, 7, tr(title), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, a := range d.Attributes {
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(55, 5, capWords(a.Name)+":", "", 0, "L", false, 0, "")
			pdf.SetTextColor(60, 60, 60)
			pdf.CellFormat(0, 5, tr(truncate(a.Display(), 80)), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}
}

// addFooter adds the report footer
func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, info domain.SessionInfo) {
	pdf.SetY(-20)

	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(3)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated by wpsscan | Session: %s", shortID(info.ID)), "", 1, "C", false, 0, "")
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
