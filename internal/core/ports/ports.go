package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
)

// ErrCaptureTimeout is returned by CaptureHandle.ReadPacketData when the read
// timeout elapsed without a frame. Callers treat it as "no frame yet".
var ErrCaptureTimeout = errors.New("capture read timeout")

// CaptureHandle is an open capture source/sink bound to one interface or file.
type CaptureHandle interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	WritePacketData(data []byte) error
	SetBPFFilter(expr string) error
	LinkType() layers.LinkType
	Close()
}

// CaptureOpener opens live capture handles.
type CaptureOpener interface {
	Open(iface string, snaplen int32, promisc bool, timeout time.Duration) (CaptureHandle, error)
}

// PacketInjector defines the interface for injecting packets
type PacketInjector interface {
	Inject(packet []byte) error
	Close()
}

// ChannelQuery reports the channel an interface is tuned to.
type ChannelQuery interface {
	CurrentChannel(ctx context.Context, iface string) (uint8, error)
}

// DeviceSink receives each newly discovered device exactly once.
type DeviceSink interface {
	Emit(ctx context.Context, device domain.Device) error
}

// DeviceSinkFunc adapts a function to DeviceSink.
type DeviceSinkFunc func(ctx context.Context, device domain.Device) error

func (f DeviceSinkFunc) Emit(ctx context.Context, device domain.Device) error {
	return f(ctx, device)
}

// FrameArchive stores raw frames (e.g. to a pcap file).
type FrameArchive interface {
	WriteFrame(ci gopacket.CaptureInfo, data []byte) error
	Close() error
}
