package injection

import (
	"fmt"
	"sync"
	"time"

	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// PcapInjector sends frames through a capture handle of its own.
type PcapInjector struct {
	handle ports.CaptureHandle
	once   sync.Once
}

// NewPcapInjector opens a dedicated handle on iface for injection.
func NewPcapInjector(opener ports.CaptureOpener, iface string) (*PcapInjector, error) {
	handle, err := opener.Open(iface, 1024, false, time.Second)
	if err != nil {
		return nil, fmt.Errorf("pcap open failed: %w", err)
	}
	return &PcapInjector{handle: handle}, nil
}

func (p *PcapInjector) Inject(packet []byte) error {
	return p.handle.WritePacketData(packet)
}

func (p *PcapInjector) Close() {
	p.once.Do(p.handle.Close)
}
