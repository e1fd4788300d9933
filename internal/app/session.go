package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
	"github.com/lcalzada-xor/wpsscan/internal/core/services/registry"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
	"github.com/lcalzada-xor/wpsscan/internal/telemetry"
)

// SessionConfig describes one scan run.
type SessionConfig struct {
	ID            string // generated when empty
	Interface     string
	Source        domain.MAC
	ProbeInterval time.Duration
	Mode          domain.ScanMode
}

// SessionDeps are the adapters a session drives. Injector and Channels are
// only used in active mode. The session owns Handle and Injector and closes
// both when Run returns.
type SessionDeps struct {
	Handle   ports.CaptureHandle
	Injector ports.PacketInjector
	Channels ports.ChannelQuery
	Sink     ports.DeviceSink

	ReceiverOptions []capture.Option
	Logger          *zap.Logger
}

// ScanSession owns the device registry and the transmitter/receiver pair of
// one run against one interface.
type ScanSession struct {
	cfg      SessionConfig
	deps     SessionDeps
	registry *registry.DeviceRegistry
	logger   *zap.Logger
	tracer   trace.Tracer

	mu       sync.Mutex
	info     domain.SessionInfo
	receiver *capture.Receiver
}

// NewScanSession creates a session with a fresh registry.
func NewScanSession(cfg SessionConfig, deps SessionDeps) *ScanSession {
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeActive
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &ScanSession{
		cfg:      cfg,
		deps:     deps,
		registry: registry.NewDeviceRegistry(),
		logger:   logging.OrNop(deps.Logger).Named("session").With(zap.String("session", id)),
		tracer:   telemetry.Tracer(),
		info: domain.SessionInfo{
			ID:        id,
			Interface: cfg.Interface,
			SourceMAC: cfg.Source,
			Mode:      cfg.Mode,
		},
	}
}

// ID returns the session UUID.
func (s *ScanSession) ID() string {
	return s.info.ID
}

// Registry exposes the devices discovered so far.
func (s *ScanSession) Registry() ports.DeviceSnapshot {
	return s.registry
}

// Info returns the session metadata with the current receive counters.
func (s *ScanSession) Info() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.info
	if s.receiver != nil {
		info.Stats = s.receiver.Stats()
	}
	return info
}

// Run starts the transmitter (active mode), then builds the receiver and
// listens until ctx is cancelled or the capture ends. A transmitter failure
// stops the receiver and is returned. Whatever the exit path, the
// transmitter is stopped and the capture handle closed before Run returns.
func (s *ScanSession) Run(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session.id", s.info.ID),
		attribute.String("session.interface", s.cfg.Interface),
		attribute.String("session.mode", string(s.cfg.Mode)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.Lock()
	s.info.StartedAt = time.Now()
	s.mu.Unlock()
	defer s.finish()

	defer s.deps.Handle.Close()

	rxCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tx *injection.Transmitter
	if s.cfg.Mode == domain.ModeActive {
		tx = injection.NewTransmitter(injection.TransmitterConfig{
			Interface: s.cfg.Interface,
			Source:    s.cfg.Source,
			Interval:  s.cfg.ProbeInterval,
		}, s.deps.Injector, s.deps.Channels, s.deps.Logger)

		if err := tx.Start(ctx); err != nil {
			tx.Stop()
			return err
		}
		defer tx.Stop()

		go func() {
			select {
			case <-tx.Done():
				cancel()
			case <-rxCtx.Done():
			}
		}()
	} else if s.deps.Injector != nil {
		defer s.deps.Injector.Close()
	}

	source := s.cfg.Source
	if s.cfg.Mode != domain.ModeActive {
		source = domain.MAC{}
	}
	rx, err := capture.NewReceiver(capture.ReceiverConfig{
		Interface: s.cfg.Interface,
		Source:    source,
	}, s.deps.Handle, s.registry, s.deps.Sink, s.receiverOptions()...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.receiver = rx
	s.mu.Unlock()

	s.logger.Info("Scan session started",
		zap.String("interface", s.cfg.Interface),
		zap.String("mode", string(s.cfg.Mode)))

	runErr := rx.Run(rxCtx)
	if tx != nil {
		if txErr := tx.Err(); txErr != nil {
			return errors.Join(txErr, runErr)
		}
	}
	return runErr
}

func (s *ScanSession) receiverOptions() []capture.Option {
	opts := make([]capture.Option, 0, len(s.deps.ReceiverOptions)+1)
	opts = append(opts, capture.WithLogger(s.deps.Logger))
	return append(opts, s.deps.ReceiverOptions...)
}

func (s *ScanSession) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.EndedAt = time.Now()
	if s.receiver != nil {
		s.info.Stats = s.receiver.Stats()
	}
	s.logger.Info("Scan session finished",
		zap.Int("devices", s.registry.Len()),
		zap.Duration("duration", s.info.Duration()),
		zap.Int64("frames", s.info.Stats.FramesRead))
}
