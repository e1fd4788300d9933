package fingerprint

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// CommonOUIs covers chipset and router vendors frequently seen answering
// with WPS. It is the last resort when no OUI file or database is configured.
var CommonOUIs = map[string]string{
	"00:03:7F": "Atheros",
	"00:04:0E": "AVM",
	"00:0C:43": "Ralink",
	"00:0F:B5": "Netgear",
	"00:14:6C": "Netgear",
	"00:17:F2": "Apple",
	"00:1A:11": "Google",
	"00:1C:DF": "Belkin",
	"00:1D:0F": "TP-Link",
	"00:1E:58": "D-Link",
	"00:1F:33": "Netgear",
	"00:22:6B": "Cisco-Linksys",
	"00:24:01": "D-Link",
	"00:25:9C": "Cisco-Linksys",
	"00:26:5A": "D-Link",
	"00:50:F2": "Microsoft",
	"00:90:4C": "Broadcom",
	"00:E0:4C": "Realtek",
	"1C:7E:E5": "D-Link",
	"3C:A6:2F": "AVM",
	"50:C7:BF": "TP-Link",
	"F4:EC:38": "TP-Link",
	"F4:F2:6D": "TP-Link",
}

// FileVendorRepository loads vendors from a text file
type FileVendorRepository struct {
	vendors map[string]string
	mu      sync.RWMutex
}

// NewFileVendorRepository creates a new file-based vendor repository
func NewFileVendorRepository() *FileVendorRepository {
	return &FileVendorRepository{
		vendors: make(map[string]string),
	}
}

// LoadFromFile loads OUI data from a file
func (f *FileVendorRepository) LoadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return f.Load(file)
}

// Load reads "XX:XX:XX Vendor Name" or "XX-XX-XX   Vendor Name" lines.
// Comments (#) and malformed lines are skipped.
func (f *FileVendorRepository) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	newOUIs := make(map[string]string)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 8 || strings.HasPrefix(line, "#") {
			continue
		}

		normalized := strings.ToUpper(strings.ReplaceAll(line[0:8], "-", ":"))
		vendor := strings.TrimSpace(line[8:])

		if isValidOUI(normalized) && vendor != "" {
			newOUIs[normalized] = vendor
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	for k, v := range newOUIs {
		f.vendors[k] = v
	}
	f.mu.Unlock()

	return nil
}

// Len returns the number of loaded prefixes.
func (f *FileVendorRepository) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vendors)
}

// LookupVendor implements VendorRepository interface
func (f *FileVendorRepository) LookupVendor(ctx context.Context, mac domain.MAC) (string, error) {
	f.mu.RLock()
	vendor, ok := f.vendors[FormatOUI(mac)]
	f.mu.RUnlock()

	if !ok {
		return "", ErrVendorNotFound
	}

	return vendor, nil
}

// Close implements VendorRepository interface
func (f *FileVendorRepository) Close() error {
	f.mu.Lock()
	f.vendors = make(map[string]string)
	f.mu.Unlock()
	return nil
}

func isValidOUI(s string) bool {
	if len(s) != 8 || s[2] != ':' || s[5] != ':' {
		return false
	}
	for i, c := range s {
		if i == 2 || i == 5 {
			continue
		}
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
