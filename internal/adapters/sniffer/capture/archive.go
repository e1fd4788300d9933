package capture

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
)

// ErrArchiveClosed is returned by WriteFrame after Close.
var ErrArchiveClosed = errors.New("archive closed")

// PcapArchive writes frames to a pcap stream.
type PcapArchive struct {
	mu     sync.Mutex
	w      *pcapgo.Writer
	closer io.Closer
	closed bool
}

var _ ports.FrameArchive = (*PcapArchive)(nil)

// CreateArchive creates (truncating) a pcap file at path.
func CreateArchive(path string, link layers.LinkType) (*PcapArchive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	a, err := NewArchive(f, link)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewArchive writes the pcap file header for link to w.
func NewArchive(w io.Writer, link layers.LinkType) (*PcapArchive, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(defaultSnaplen, link); err != nil {
		return nil, err
	}
	return &PcapArchive{w: pw}, nil
}

func (a *PcapArchive) WriteFrame(ci gopacket.CaptureInfo, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrArchiveClosed
	}
	if ci.CaptureLength != len(data) {
		ci.CaptureLength = len(data)
	}
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}
	return a.w.WritePacket(ci, data)
}

func (a *PcapArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
