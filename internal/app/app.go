// Package app wires the scanner together: capture handles, probe injection,
// vendor lookup, sinks and the optional HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/adapters/fingerprint"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/reporting"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/capture"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/driver"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/sniffer/injection"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/storage"
	"github.com/lcalzada-xor/wpsscan/internal/adapters/web"
	"github.com/lcalzada-xor/wpsscan/internal/config"
	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
	"github.com/lcalzada-xor/wpsscan/internal/telemetry"
)

// Version is reported in traces and the CLI.
var Version = "dev"

const ouiCacheSize = 10000

// Application holds the components of one scanner run.
type Application struct {
	Config     *config.Config
	Logger     *zap.Logger
	Session    *ScanSession
	WebServer  *web.Server
	Store      *storage.SQLiteAdapter
	VendorRepo fingerprint.VendorRepository

	opener   ports.CaptureOpener
	channels ports.ChannelQuery
	stdout   io.Writer
	iface    *driver.Interface

	sessionID string
	handle    ports.CaptureHandle
	injector  ports.PacketInjector
	archive   *capture.PcapArchive
	eventLog  *storage.EventLog
	async     []*reporting.AsyncSink
	wsManager *web.WSManager
	index     *web.DeviceIndex
	closers   []func() error

	traceShutdown func(context.Context) error
}

// Option overrides a default adapter, mostly for tests.
type Option func(*Application)

// WithOpener replaces the live pcap opener.
func WithOpener(o ports.CaptureOpener) Option {
	return func(a *Application) { a.opener = o }
}

// WithChannelQuery replaces the nl80211/iw channel lookup.
func WithChannelQuery(q ports.ChannelQuery) Option {
	return func(a *Application) { a.channels = q }
}

// WithOutput redirects the device listing (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.stdout = w }
}

// New bootstraps every component. On error, whatever was already opened is
// released.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Application, error) {
	app := &Application{
		Config:    cfg,
		Logger:    logging.OrNop(logger),
		opener:    capture.PcapOpener{},
		stdout:    os.Stdout,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.bootstrap(); err != nil {
		app.release()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	// 1. Foundation
	telemetry.InitMetrics(nil)
	if app.Config.Trace {
		shutdown, err := telemetry.InitTracer(os.Stderr, Version)
		if err != nil {
			return fmt.Errorf("tracer: %w", err)
		}
		app.traceShutdown = shutdown
	}
	if err := app.initVendors(); err != nil {
		return err
	}

	// 2. Interface and capture
	if err := app.initDriver(); err != nil {
		return err
	}
	if err := app.initCapture(); err != nil {
		return err
	}

	// 3. Sinks
	sink, err := app.initSinks()
	if err != nil {
		return err
	}

	// 4. Session and servers
	var rxOpts []capture.Option
	rxOpts = append(rxOpts, capture.WithVendors(app.VendorRepo))
	if app.archive != nil {
		rxOpts = append(rxOpts, capture.WithArchive(app.archive))
	}

	iface := app.Config.Interface
	if app.Config.ReplayPath != "" {
		iface = filepath.Base(app.Config.ReplayPath)
	}
	app.Session = NewScanSession(SessionConfig{
		ID:            app.sessionID,
		Interface:     iface,
		Source:        app.Config.Source(),
		ProbeInterval: app.Config.ProbeInterval,
		Mode:          app.Config.Mode(),
	}, SessionDeps{
		Handle:          app.handle,
		Injector:        app.injector,
		Channels:        app.channels,
		Sink:            sink,
		ReceiverOptions: rxOpts,
		Logger:          app.Logger,
	})

	if app.Config.HTTPAddr != "" {
		app.WebServer = web.NewServer(app.Config.HTTPAddr, app.index, app.wsManager, app.Session, app.Logger)
	}
	return nil
}

func (app *Application) initVendors() error {
	repos := make([]fingerprint.VendorRepository, 0, 3)

	if app.Config.OUIDBPath != "" {
		db, err := fingerprint.NewOUIDatabase(app.Config.OUIDBPath, ouiCacheSize)
		if err != nil {
			app.Logger.Warn("OUI database unavailable, using built-in table", zap.String("path", app.Config.OUIDBPath), zap.Error(err))
		} else {
			repos = append(repos, db)
		}
	}
	if app.Config.OUIPath != "" {
		file := fingerprint.NewFileVendorRepository()
		if err := file.LoadFromFile(app.Config.OUIPath); err != nil {
			return &domain.ConfigurationError{Op: "load oui file", Err: err}
		}
		app.Logger.Info("Loaded OUI file", zap.String("path", app.Config.OUIPath), zap.Int("entries", file.Len()))
		repos = append(repos, file)
	}
	repos = append(repos, fingerprint.NewStaticVendorRepository(fingerprint.CommonOUIs))

	composite := fingerprint.NewCompositeVendorRepository(repos...)
	app.VendorRepo = composite
	app.closers = append(app.closers, composite.Close)
	return nil
}

// initDriver switches the interface to monitor mode and tunes it when asked.
// Replay runs never touch an interface.
func (app *Application) initDriver() error {
	if app.Config.ReplayPath != "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if app.Config.Monitor || app.Config.Channel > 0 {
		app.iface = driver.NewInterface(app.Config.Interface, app.Logger)
	}
	if app.Config.Monitor {
		if err := app.iface.EnableMonitorMode(ctx); err != nil {
			return &domain.ConfigurationError{Op: "monitor mode " + app.Config.Interface, Err: err}
		}
		iface := app.iface
		app.closers = append(app.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			iface.DisableMonitorMode(ctx)
			return nil
		})
	}
	if app.Config.Channel > 0 {
		if err := app.iface.SetChannel(ctx, uint8(app.Config.Channel)); err != nil {
			return &domain.ConfigurationError{Op: "set channel", Err: err}
		}
	}
	return nil
}

func (app *Application) initCapture() error {
	if app.Config.ReplayPath != "" {
		h, err := capture.OpenReplay(app.Config.ReplayPath)
		if err != nil {
			return err
		}
		app.handle = h
		return nil
	}

	h, err := app.opener.Open(app.Config.Interface, int32(app.Config.SnapLen), app.Config.Promiscuous, app.Config.ReadTimeout)
	if err != nil {
		return err
	}
	app.handle = h

	if app.Config.Mode() != domain.ModeActive {
		return nil
	}
	inj, err := injection.NewPcapInjector(app.opener, app.Config.Interface)
	if err != nil {
		return &domain.ConfigurationError{Op: "injector", Err: err}
	}
	app.injector = inj

	if app.channels == nil {
		nl := driver.NewNetlinkChannelQuery()
		app.closers = append(app.closers, nl.Close)
		app.channels = driver.NewFallbackChannelQuery(app.Logger, nl, driver.NewIWChannelQuery())
	}
	return nil
}

// initSinks builds the fan-out every new device goes through: console first,
// then the live index and feed, then the slow sinks behind worker pools.
func (app *Application) initSinks() (ports.DeviceSink, error) {
	sinks := reporting.MultiSink{reporting.NewConsoleSink(app.stdout)}

	if app.Config.HTTPAddr != "" {
		app.wsManager = web.NewWSManager(app.Logger)
		app.index = web.NewDeviceIndex()
		feed, err := reporting.NewAsyncSink("websocket", app.wsManager, 1, app.Logger)
		if err != nil {
			return nil, err
		}
		app.async = append(app.async, feed)
		sinks = append(sinks, app.index, feed)
	}

	if app.Config.DBPath != "" {
		if dir := filepath.Dir(app.Config.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create DB directory: %w", err)
			}
		}
		store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "storage", Err: err}
		}
		app.Store = store
		async, err := reporting.NewAsyncSink("storage", store.Sink(app.sessionID), 1, app.Logger)
		if err != nil {
			return nil, err
		}
		app.async = append(app.async, async)
		sinks = append(sinks, async)
	}

	if app.Config.EventLogPath != "" {
		log, err := storage.OpenEventLog(app.Config.EventLogPath, app.sessionID)
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "event log", Err: err}
		}
		app.eventLog = log
		async, err := reporting.NewAsyncSink("event-log", log, 1, app.Logger)
		if err != nil {
			return nil, err
		}
		app.async = append(app.async, async)
		sinks = append(sinks, async)
	}

	if app.Config.PcapPath != "" {
		archive, err := capture.CreateArchive(app.Config.PcapPath, app.handle.LinkType())
		if err != nil {
			return nil, &domain.ConfigurationError{Op: "pcap archive", Err: err}
		}
		app.archive = archive
	}

	return sinks, nil
}

// Run scans until ctx is cancelled or the capture ends, then flushes the
// sinks, writes the session row and report, and releases every resource.
func (app *Application) Run(ctx context.Context) error {
	app.Logger.Info("Starting wpsscan", zap.String("session", app.sessionID), zap.Stringer("config", app.Config))

	webErr := make(chan error, 1)
	webCtx, stopWeb := context.WithCancel(context.Background())
	if app.WebServer != nil {
		go func() { webErr <- app.WebServer.Run(webCtx) }()
	} else {
		close(webErr)
	}

	runErr := app.Session.Run(ctx)
	if runErr != nil {
		app.Logger.Error("Scan session failed", zap.Error(runErr))
	}

	errs := []error{runErr}
	errs = append(errs, app.finish())

	stopWeb()
	if err, ok := <-webErr; ok && err != nil {
		errs = append(errs, fmt.Errorf("web server error: %w", err))
	}

	app.release()
	return errors.Join(errs...)
}

// finish flushes the asynchronous sinks and writes the end-of-session outputs.
func (app *Application) finish() error {
	var errs []error
	for _, s := range app.async {
		s.Close()
		if n := s.Failed(); n > 0 {
			errs = append(errs, fmt.Errorf("%s sink: %d device deliveries failed", s.Name(), n))
		}
	}
	app.async = nil

	info := app.Session.Info()
	devices := app.Session.Registry().Devices()

	if app.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, app.Store.SaveSession(ctx, info))
		cancel()
	}
	if app.Config.ReportPath != "" {
		if err := reporting.NewPDFExporter().WriteFile(app.Config.ReportPath, info, devices); err != nil {
			errs = append(errs, err)
		} else {
			app.Logger.Info("Report written", zap.String("path", app.Config.ReportPath), zap.Int("devices", len(devices)))
		}
	}
	if app.wsManager != nil {
		errs = append(errs, app.wsManager.BroadcastSession(info))
	}
	return errors.Join(errs...)
}

// release closes resources in reverse order of acquisition. Safe to call on
// a partially bootstrapped application and more than once.
func (app *Application) release() {
	for _, s := range app.async {
		s.Close()
	}
	app.async = nil

	// A session that ran owns and closes handle and injector.
	if app.Session == nil {
		if app.injector != nil {
			app.injector.Close()
		}
		if app.handle != nil {
			app.handle.Close()
		}
	}
	app.injector, app.handle = nil, nil

	if app.archive != nil {
		app.logClose("pcap archive", app.archive.Close())
		app.archive = nil
	}
	if app.eventLog != nil {
		app.logClose("event log", app.eventLog.Close())
		app.eventLog = nil
	}
	if app.Store != nil {
		app.logClose("storage", app.Store.Close())
		app.Store = nil
	}
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.logClose("resource", app.closers[i]())
	}
	app.closers = nil

	if app.traceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		app.logClose("tracer", app.traceShutdown(ctx))
		cancel()
		app.traceShutdown = nil
	}
}

func (app *Application) logClose(what string, err error) {
	if err != nil {
		app.Logger.Warn("Close failed", zap.String("resource", what), zap.Error(err))
	}
}

// SessionID returns the ID shared by the session, its stored rows and events.
func (app *Application) SessionID() string {
	return app.sessionID
}
