package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// ErrReadOnly is returned when writing to a replay source.
var ErrReadOnly = errors.New("replay handle is read-only")

const defaultSnaplen = 65535

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// ReplayHandle serves frames from a pcap or pcapng file. It ends with io.EOF.
type ReplayHandle struct {
	file    *os.File
	reader  packetReader
	snaplen int

	mu     sync.Mutex
	filter *pcap.BPF
}

var _ ports.CaptureHandle = (*ReplayHandle)(nil)

// OpenReplay opens a capture file for offline analysis.
func OpenReplay(path string) (*ReplayHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ConfigurationError{Op: "open replay", Err: err}
	}

	h := &ReplayHandle{file: f, snaplen: defaultSnaplen}
	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(pcapngMagic))

	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, &domain.ConfigurationError{Op: "read pcapng header", Err: err}
		}
		h.reader = ng
	} else {
		r, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return nil, &domain.ConfigurationError{Op: "read pcap header", Err: err}
		}
		if s := int(r.Snaplen()); s > 0 {
			h.snaplen = s
		}
		h.reader = r
	}
	return h, nil
}

// ReadPacketData returns the next frame that passes the filter.
func (h *ReplayHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	h.mu.Lock()
	filter := h.filter
	h.mu.Unlock()

	for {
		data, ci, err := h.reader.ReadPacketData()
		if err != nil {
			return nil, ci, err
		}
		if filter == nil || filter.Matches(ci, data) {
			return data, ci, nil
		}
	}
}

func (h *ReplayHandle) WritePacketData([]byte) error {
	return ErrReadOnly
}

// SetBPFFilter compiles expr for the file's link type and applies it in
// user space.
func (h *ReplayHandle) SetBPFFilter(expr string) error {
	bpf, err := pcap.NewBPF(h.reader.LinkType(), h.snaplen, expr)
	if err != nil {
		return fmt.Errorf("compile filter %q: %w", expr, err)
	}
	h.mu.Lock()
	h.filter = bpf
	h.mu.Unlock()
	return nil
}

func (h *ReplayHandle) LinkType() layers.LinkType {
	return h.reader.LinkType()
}

func (h *ReplayHandle) Close() {
	h.file.Close()
}
