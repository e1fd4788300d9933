// Package capture reads probe responses addressed to the scanner and turns
// the ones carrying WPS information into devices.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/fingerprint"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/ie"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
	"github.com/lcalzada-xor/wpsscan/internal/core/services/registry"
	"github.com/lcalzada-xor/wpsscan/internal/core/services/security"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
	"github.com/lcalzada-xor/wpsscan/internal/telemetry"
)

// PassiveFilter keeps every probe response regardless of its destination.
const PassiveFilter = "type mgt subtype probe-resp"

// BPFFilter returns the capture filter that keeps probe responses sent to
// src, or PassiveFilter when src is the zero address.
func BPFFilter(src domain.MAC) string {
	if src.IsZero() {
		return PassiveFilter
	}
	return fmt.Sprintf("(type mgt subtype probe-resp) and (wlan addr1 %s)", src)
}

// ReceiverState is the lifecycle state of a Receiver.
type ReceiverState int

const (
	StateConfiguring ReceiverState = iota
	StateListening
	StateStopped
)

func (s ReceiverState) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ReceiverConfig identifies the capture interface and the scanner address
// responses must be sent to. A zero Source accepts responses to any station.
type ReceiverConfig struct {
	Interface string
	Source    domain.MAC
}

// Option customizes a Receiver.
type Option func(*Receiver)

// WithArchive copies every frame that produced a device to archive.
func WithArchive(archive ports.FrameArchive) Option {
	return func(r *Receiver) { r.archive = archive }
}

// WithVendors resolves Device.Vendor through repo.
func WithVendors(repo fingerprint.VendorRepository) Option {
	return func(r *Receiver) { r.vendors = repo }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Receiver) { r.logger = logger }
}

// WithClock overrides the FirstSeen timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Receiver) { r.now = now }
}

// Receiver consumes frames from a capture handle. The registry is only
// written from the Run goroutine.
type Receiver struct {
	cfg      ReceiverConfig
	handle   ports.CaptureHandle
	decoder  *parser.Decoder
	registry *registry.DeviceRegistry
	sink     ports.DeviceSink
	archive  ports.FrameArchive
	vendors  fingerprint.VendorRepository
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	mu    sync.Mutex
	state ReceiverState
	stats domain.CaptureStats
}

// NewReceiver configures h for the scan: it applies the probe response
// filter and selects a decoder for the handle's link type. Both failures are
// reported as *domain.ConfigurationError.
func NewReceiver(cfg ReceiverConfig, h ports.CaptureHandle, reg *registry.DeviceRegistry, sink ports.DeviceSink, opts ...Option) (*Receiver, error) {
	r := &Receiver{
		cfg:      cfg,
		handle:   h,
		registry: reg,
		sink:     sink,
		now:      time.Now,
		state:    StateConfiguring,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("receiver")
	r.tracer = telemetry.Tracer()

	filter := BPFFilter(cfg.Source)
	if err := h.SetBPFFilter(filter); err != nil {
		return nil, &domain.ConfigurationError{Op: "bpf filter", Err: err}
	}
	r.logger.Debug("Capture filter applied", zap.String("filter", filter))

	decoder, err := parser.NewDecoder(h.LinkType())
	if err != nil {
		return nil, err
	}
	r.decoder = decoder

	return r, nil
}

// Run reads frames until ctx is cancelled, the source is exhausted (io.EOF)
// or a read fails. Cancellation and EOF return nil; per-frame decode errors
// are logged and counted.
func (r *Receiver) Run(ctx context.Context) error {
	r.setState(StateListening)
	defer r.setState(StateStopped)

	r.logger.Info("Listening for probe responses",
		zap.String("interface", r.cfg.Interface),
		zap.Stringer("link_type", r.decoder.LinkType()))

	for {
		if ctx.Err() != nil {
			return nil
		}

		data, ci, err := r.handle.ReadPacketData()
		switch {
		case errors.Is(err, ports.ErrCaptureTimeout):
			r.count(func(s *domain.CaptureStats) { s.Timeouts++ })
			continue
		case errors.Is(err, io.EOF):
			r.logger.Info("Capture source exhausted")
			return nil
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		r.count(func(s *domain.CaptureStats) { s.FramesRead++ })
		telemetry.FramesCaptured.WithLabelValues(r.cfg.Interface).Inc()

		if len(data) == 0 {
			r.count(func(s *domain.CaptureStats) { s.Skipped++ })
			continue
		}
		r.handleFrame(ctx, data, ci)
	}
}

func (r *Receiver) handleFrame(ctx context.Context, data []byte, ci gopacket.CaptureInfo) {
	frame, err := r.decoder.Decode(data)
	if err != nil {
		r.drop(telemetry.ReasonDecodeError, func(s *domain.CaptureStats) { s.DecodeErrors++ })
		r.logger.Debug("Frame decode failed", zap.Int("length", len(data)), zap.Error(err))
		return
	}
	if frame.Kind != parser.KindProbeResponse {
		r.drop(telemetry.ReasonNotProbeResponse, func(s *domain.CaptureStats) { s.Skipped++ })
		return
	}

	payloads := ie.FindVendorSpecific(frame.Elements, ie.WPSOUI, ie.WPSOUIType)
	if len(payloads) == 0 {
		r.drop(telemetry.ReasonNoWPS, func(s *domain.CaptureStats) { s.Skipped++ })
		return
	}

	bssid := frame.Source
	if r.registry.Seen(bssid) {
		r.drop(telemetry.ReasonDuplicate, func(s *domain.CaptureStats) { s.Duplicates++ })
		return
	}

	attrs, err := ie.DecodeWPS(joinWPS(payloads))
	if err != nil {
		r.drop(telemetry.ReasonDecodeError, func(s *domain.CaptureStats) { s.DecodeErrors++ })
		r.logger.Debug("WPS element decode failed", zap.Stringer("bssid", bssid), zap.Error(err))
		return
	}

	device := domain.Device{
		BSSID:      bssid,
		SSID:       frame.SSID,
		Channel:    frame.Channel,
		Security:   security.ClassifyFrame(frame),
		Vendor:     fingerprint.Lookup(ctx, r.vendors, bssid),
		Attributes: attrs,
		FirstSeen:  r.now(),
	}
	if !r.registry.Register(device) {
		return
	}

	r.count(func(s *domain.CaptureStats) { s.DevicesFound++ })
	telemetry.DevicesDiscovered.WithLabelValues(r.cfg.Interface, string(device.Security)).Inc()
	r.logger.Debug("Device discovered",
		zap.Stringer("bssid", bssid),
		zap.String("ssid", device.SSID),
		zap.Uint8("channel", device.Channel),
		zap.String("security", string(device.Security)))

	if r.archive != nil {
		if err := r.archive.WriteFrame(ci, data); err != nil {
			r.count(func(s *domain.CaptureStats) { s.ArchiveErrors++ })
			r.logger.Warn("Frame archive write failed", zap.Error(err))
		}
	}

	r.emit(ctx, device)
}

func (r *Receiver) emit(ctx context.Context, device domain.Device) {
	ctx, span := r.tracer.Start(ctx, "receiver.emit", trace.WithAttributes(
		attribute.String("wps.bssid", device.BSSID.String()),
		attribute.String("wps.ssid", device.SSID),
		attribute.Int("wps.channel", int(device.Channel)),
		attribute.String("wps.security", string(device.Security)),
	))
	defer span.End()

	if err := r.sink.Emit(ctx, device); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.count(func(s *domain.CaptureStats) { s.EmitErrors++ })
		r.logger.Warn("Device output failed", zap.Stringer("bssid", device.BSSID), zap.Error(err))
		return
	}
	r.registry.MarkReported(device.BSSID)
}

// joinWPS reassembles a WPS element split over several vendor-specific
// elements. Each payload starts with the 4-byte OUI/type header.
func joinWPS(payloads [][]byte) []byte {
	if len(payloads) == 1 {
		return payloads[0]
	}
	joined := append([]byte(nil), payloads[0]...)
	for _, p := range payloads[1:] {
		if len(p) > 4 {
			joined = append(joined, p[4:]...)
		}
	}
	return joined
}

func (r *Receiver) drop(reason string, update func(*domain.CaptureStats)) {
	r.count(update)
	telemetry.FramesDropped.WithLabelValues(r.cfg.Interface, reason).Inc()
}

func (r *Receiver) count(update func(*domain.CaptureStats)) {
	r.mu.Lock()
	update(&r.stats)
	r.mu.Unlock()
}

func (r *Receiver) setState(s ReceiverState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// State reports the current lifecycle state.
func (r *Receiver) State() ReceiverState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stats returns a copy of the loop counters.
func (r *Receiver) Stats() domain.CaptureStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
