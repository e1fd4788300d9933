// Package sniffertest provides in-memory capture handles, channel queries and
// sinks for exercising the scanner without a wireless interface.
package sniffertest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// Read is one scripted ReadPacketData result.
type Read struct {
	Data []byte
	Err  error
}

// FakeHandle implements ports.CaptureHandle over a scripted list of reads.
// Once the script is exhausted it returns io.EOF, or ports.ErrCaptureTimeout
// when Live is set (like an idle interface).
type FakeHandle struct {
	mu sync.Mutex

	Link      layers.LinkType
	Live      bool
	FilterErr error
	WriteErr  error

	reads   []Read
	filter  string
	written [][]byte
	closed  bool
}

// NewFakeHandle returns a radiotap handle that yields frames in order.
func NewFakeHandle(frames ...[]byte) *FakeHandle {
	h := &FakeHandle{Link: layers.LinkTypeIEEE80211Radio}
	for _, f := range frames {
		h.reads = append(h.reads, Read{Data: f})
	}
	return h
}

// Push appends scripted reads.
func (h *FakeHandle) Push(reads ...Read) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reads = append(h.reads, reads...)
}

func (h *FakeHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	if len(h.reads) == 0 {
		live := h.Live
		h.mu.Unlock()
		if live {
			time.Sleep(time.Millisecond)
			return nil, gopacket.CaptureInfo{}, ports.ErrCaptureTimeout
		}
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	r := h.reads[0]
	h.reads = h.reads[1:]
	h.mu.Unlock()

	if r.Err != nil {
		return nil, gopacket.CaptureInfo{}, r.Err
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(r.Data),
		Length:        len(r.Data),
	}
	return r.Data, ci, nil
}

func (h *FakeHandle) WritePacketData(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.WriteErr != nil {
		return h.WriteErr
	}
	h.written = append(h.written, append([]byte(nil), data...))
	return nil
}

func (h *FakeHandle) SetBPFFilter(expr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FilterErr != nil {
		return h.FilterErr
	}
	h.filter = expr
	return nil
}

func (h *FakeHandle) LinkType() layers.LinkType {
	return h.Link
}

func (h *FakeHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// Filter returns the last BPF expression applied.
func (h *FakeHandle) Filter() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.filter
}

// Written returns copies of the frames sent through the handle.
func (h *FakeHandle) Written() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.written...)
}

// Closed reports whether Close was called.
func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// FakeOpener implements ports.CaptureOpener, handing out Handle (or Err).
type FakeOpener struct {
	Handle ports.CaptureHandle
	Err    error

	mu     sync.Mutex
	opened []string
}

func (o *FakeOpener) Open(iface string, snaplen int32, promisc bool, timeout time.Duration) (ports.CaptureHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, iface)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Handle, nil
}

// Opened lists the interfaces passed to Open.
func (o *FakeOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// FakeChannelQuery implements ports.ChannelQuery with a settable channel.
type FakeChannelQuery struct {
	mu      sync.Mutex
	channel uint8
	err     error
	calls   int
}

func NewFakeChannelQuery(channel uint8) *FakeChannelQuery {
	return &FakeChannelQuery{channel: channel}
}

func (q *FakeChannelQuery) CurrentChannel(ctx context.Context, iface string) (uint8, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return 0, q.err
	}
	return q.channel, nil
}

// Set changes the reported channel and clears any error.
func (q *FakeChannelQuery) Set(channel uint8) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.channel = channel
	q.err = nil
}

// Fail makes subsequent queries return err.
func (q *FakeChannelQuery) Fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// Calls returns the number of queries served.
func (q *FakeChannelQuery) Calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

// RecordingSink implements ports.DeviceSink, keeping every emitted device.
type RecordingSink struct {
	mu      sync.Mutex
	devices []domain.Device
	Err     error
}

func (s *RecordingSink) Emit(ctx context.Context, device domain.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = append(s.devices, device)
	return s.Err
}

// Devices returns the emitted devices in order.
func (s *RecordingSink) Devices() []domain.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Device(nil), s.devices...)
}
