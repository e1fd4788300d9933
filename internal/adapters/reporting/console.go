// Package reporting renders discovered devices for operators: the console
// listing printed while the scan runs and the PDF summary written at the end.
package reporting

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

const (
	headerRule = 20
	footerRule = 70
)

// ConsoleSink prints each device as a block of "Key: value" lines.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) Emit(_ context.Context, device domain.Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, FormatDevice(device))
	return err
}

// FormatDevice renders the console block for one device.
func FormatDevice(d domain.Device) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BSSID: %s\n", d.BSSID)
	fmt.Fprintf(&b, "SSID: %s\n", d.SSID)
	fmt.Fprintf(&b, "Channel: %d\n", d.Channel)
	fmt.Fprintf(&b, "Security: %s\n", d.Security)
	if d.Vendor != "" {
		fmt.Fprintf(&b, "Vendor: %s\n", d.Vendor)
	}
	if d.IsP2P() {
		b.WriteString("Wi-Fi Direct: yes\n")
	}
	b.WriteString(strings.Repeat("-", headerRule))
	b.WriteByte('\n')
	for _, a := range d.Attributes {
		fmt.Fprintf(&b, "%s: %s\n", capWords(a.Name), a.Display())
	}
	b.WriteString(strings.Repeat("-", footerRule))
	b.WriteByte('\n')
	return b.String()
}

// capWords upper-cases the first letter of each word and lower-cases the rest.
func capWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
