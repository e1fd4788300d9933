package injection

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
	"github.com/lcalzada-xor/wpsscan/internal/telemetry"
)

// DefaultProbeInterval is the pause between two injected probe requests.
const DefaultProbeInterval = 100 * time.Millisecond

// ErrAlreadyStarted is returned by Start on a transmitter that left Idle.
var ErrAlreadyStarted = errors.New("transmitter already started")

// TransmitterState is the lifecycle state of a Transmitter.
type TransmitterState int

const (
	StateIdle TransmitterState = iota
	StateRunning
	StateStopped
)

func (s TransmitterState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TransmitterConfig holds the probe parameters.
type TransmitterConfig struct {
	Interface string
	Source    domain.MAC
	Interval  time.Duration
}

// Transmitter periodically injects wildcard probe requests on the channel
// the interface is currently tuned to. The frame is rebuilt only when the
// channel changes.
//
// The send loop does not observe cancellation of the context given to Start;
// only Stop (or a send failure) ends it.
type Transmitter struct {
	cfg      TransmitterConfig
	injector ports.PacketInjector
	channels ports.ChannelQuery
	logger   *zap.Logger

	mu     sync.Mutex
	state  TransmitterState
	cancel context.CancelFunc
	err    error

	done     chan struct{}
	stopOnce sync.Once
}

// NewTransmitter creates an idle transmitter. It owns injector and closes it on Stop.
func NewTransmitter(cfg TransmitterConfig, injector ports.PacketInjector, channels ports.ChannelQuery, logger *zap.Logger) *Transmitter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProbeInterval
	}
	return &Transmitter{
		cfg:      cfg,
		injector: injector,
		channels: channels,
		logger:   logging.OrNop(logger).Named("transmitter"),
		done:     make(chan struct{}),
	}
}

// Start reads the current channel, builds the first probe and launches the
// send loop. A channel query failure is a ConfigurationError and leaves the
// transmitter Idle.
func (t *Transmitter) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return ErrAlreadyStarted
	}

	channel, err := t.channels.CurrentChannel(ctx, t.cfg.Interface)
	if err != nil {
		return &domain.ConfigurationError{Op: "channel query", Err: err}
	}

	frame, err := BuildProbeRequest(t.cfg.Source, channel, 0)
	if err != nil {
		return &domain.ConfigurationError{Op: "build probe", Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.state = StateRunning

	t.logger.Info("Transmitter started",
		zap.String("interface", t.cfg.Interface),
		zap.Stringer("source", t.cfg.Source),
		zap.Uint8("channel", channel),
		zap.Duration("interval", t.cfg.Interval))

	go t.run(loopCtx, channel, frame)
	return nil
}

func (t *Transmitter) run(ctx context.Context, channel uint8, frame []byte) {
	defer close(t.done)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	var (
		counter  uint64
		frameSeq uint8
		// a channel the builder refused, skipped until the query reports another
		rejected    uint8
		hasRejected bool
		queryFailed bool
	)

	for {
		if ctx.Err() != nil {
			t.finish(nil)
			return
		}

		current, err := t.channels.CurrentChannel(ctx, t.cfg.Interface)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				t.finish(nil)
				return
			}
			if !queryFailed {
				t.logger.Warn("Channel query failed, keeping cached channel", zap.Uint8("channel", channel), zap.Error(err))
			}
			queryFailed = true
		case hasRejected && current == rejected:
			queryFailed = false
		case current != channel:
			queryFailed = false
			seq := uint8(counter % 255)
			rebuilt, err := BuildProbeRequest(t.cfg.Source, current, seq)
			if err != nil {
				t.logger.Warn("Probe rebuild failed, keeping previous frame", zap.Uint8("channel", current), zap.Error(err))
				rejected, hasRejected = current, true
				break
			}
			hasRejected = false
			t.logger.Debug("Channel changed", zap.Uint8("from", channel), zap.Uint8("to", current))
			telemetry.ChannelChanges.WithLabelValues(t.cfg.Interface).Inc()
			channel, frame, frameSeq = current, rebuilt, seq
		default:
			queryFailed, hasRejected = false, false
		}

		if err := t.injector.Inject(frame); err != nil {
			telemetry.ProbeErrors.WithLabelValues(t.cfg.Interface).Inc()
			t.logger.Error("Probe injection failed", zap.Uint8("seq", frameSeq), zap.Error(err))
			t.finish(&domain.TransmitError{Seq: frameSeq, Err: err})
			return
		}
		telemetry.ProbesSent.WithLabelValues(t.cfg.Interface).Inc()
		counter++

		select {
		case <-ctx.Done():
			t.finish(nil)
			return
		case <-ticker.C:
		}
	}
}

func (t *Transmitter) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = StateStopped
	t.err = err
}

// Stop ends the send loop, waits for it to exit and closes the injector.
// It is safe to call more than once and on a transmitter that never started.
func (t *Transmitter) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		cancel := t.cancel
		t.mu.Unlock()

		if cancel != nil {
			cancel()
			<-t.done
		}

		t.mu.Lock()
		t.state = StateStopped
		t.mu.Unlock()

		t.injector.Close()
		t.logger.Info("Transmitter stopped")
	})
}

// Done is closed when the send loop exits. It never closes for a
// transmitter whose Start failed.
func (t *Transmitter) Done() <-chan struct{} {
	return t.done
}

// Err returns the TransmitError that stopped the loop, if any.
func (t *Transmitter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// State reports the current lifecycle state.
func (t *Transmitter) State() TransmitterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
