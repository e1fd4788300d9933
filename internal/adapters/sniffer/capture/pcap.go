package capture

import (
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// PcapOpener opens live libpcap handles.
type PcapOpener struct{}

// Open starts a live capture on iface. Reads return ports.ErrCaptureTimeout
// when timeout elapses without a frame.
func (PcapOpener) Open(iface string, snaplen int32, promisc bool, timeout time.Duration) (ports.CaptureHandle, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, &domain.ConfigurationError{Op: "open " + iface, Err: err}
	}
	return &LiveHandle{Handle: handle}, nil
}

// LiveHandle adapts *pcap.Handle to ports.CaptureHandle.
type LiveHandle struct {
	*pcap.Handle
}

func (h *LiveHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := h.Handle.ReadPacketData()
	if errors.Is(err, pcap.NextErrorTimeoutExpired) {
		return nil, ci, ports.ErrCaptureTimeout
	}
	return data, ci, err
}
