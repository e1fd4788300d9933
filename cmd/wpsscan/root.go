package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/app"
	"github.com/lcalzada-xor/wpsscan/internal/config"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

type flags struct {
	configPath    string
	sourceMAC     string
	probeInterval time.Duration
	snapLen       int
	promiscuous   bool
	readTimeout   time.Duration
	channel       int
	monitor       bool
	passive       bool
	replay        string
	db            string
	eventLog      string
	pcap          string
	report        string
	ouiFile       string
	ouiDB         string
	http          string
	debug         bool
	trace         bool
}

func newRootCmd() *cobra.Command {
	cmd, _ := buildRootCmd()
	return cmd
}

func buildRootCmd() (*cobra.Command, *flags) {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "wpsscan [interface]",
		Short: "Discover WPS and Wi-Fi Direct devices with probe requests",
		Long: `wpsscan broadcasts wildcard probe requests (SSID, supported rates and
DS parameter set) on a monitor mode interface and lists every access point
or P2P device whose probe response advertises WPS.

With --passive nothing is transmitted; with --replay a pcap file is
analysed instead of a live interface.`,
		Version:       app.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file (default $"+config.EnvConfig+")")
	fl.StringVarP(&f.sourceMAC, "source", "s", config.DefaultSourceMAC, "source MAC address of the probe requests")
	fl.DurationVarP(&f.probeInterval, "interval", "i", config.DefaultProbeInterval, "delay between probe requests")
	fl.IntVar(&f.snapLen, "snaplen", config.DefaultSnapLen, "capture snapshot length")
	fl.BoolVar(&f.promiscuous, "promisc", true, "open the capture in promiscuous mode")
	fl.DurationVar(&f.readTimeout, "read-timeout", config.DefaultReadTimeout, "capture read timeout")
	fl.IntVar(&f.channel, "channel", 0, "tune the interface to this channel first (0 keeps the current one)")
	fl.BoolVarP(&f.monitor, "monitor", "m", false, "switch the interface to monitor mode for the scan")
	fl.BoolVarP(&f.passive, "passive", "p", false, "listen only, do not send probe requests")
	fl.StringVarP(&f.replay, "replay", "r", "", "analyse a pcap file instead of a live interface")
	fl.StringVar(&f.db, "db", "", "SQLite database for sessions and devices")
	fl.StringVar(&f.eventLog, "event-log", "", "append discovered devices to a CBOR event log")
	fl.StringVarP(&f.pcap, "pcap", "w", "", "archive the probe responses of discovered devices")
	fl.StringVar(&f.report, "report", "", "write a PDF report when the scan ends")
	fl.StringVar(&f.ouiFile, "oui-file", "", "OUI text file for vendor lookup")
	fl.StringVar(&f.ouiDB, "oui-db", "", "OUI SQLite database for vendor lookup")
	fl.StringVar(&f.http, "http", "", "serve the device API and live feed on this address")
	fl.BoolVarP(&f.debug, "debug", "d", false, "debug logging")
	fl.BoolVar(&f.trace, "trace", false, "print OpenTelemetry spans to stderr")

	cmd.AddCommand(newImportOUICmd())
	return cmd, f
}

// loadConfig layers the flags the user actually set over the file and
// environment configuration.
func loadConfig(cmd *cobra.Command, f *flags, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		cfg.Interface = args[0]
	}

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.SourceMAC = f.sourceMAC
	}
	if changed("interval") {
		cfg.ProbeInterval = f.probeInterval
	}
	if changed("snaplen") {
		cfg.SnapLen = f.snapLen
	}
	if changed("promisc") {
		cfg.Promiscuous = f.promiscuous
	}
	if changed("read-timeout") {
		cfg.ReadTimeout = f.readTimeout
	}
	if changed("channel") {
		cfg.Channel = f.channel
	}
	if changed("monitor") {
		cfg.Monitor = f.monitor
	}
	if changed("passive") {
		cfg.Passive = f.passive
	}
	if changed("replay") {
		cfg.ReplayPath = f.replay
	}
	if changed("db") {
		cfg.DBPath = f.db
	}
	if changed("event-log") {
		cfg.EventLogPath = f.eventLog
	}
	if changed("pcap") {
		cfg.PcapPath = f.pcap
	}
	if changed("report") {
		cfg.ReportPath = f.report
	}
	if changed("oui-file") {
		cfg.OUIPath = f.ouiFile
	}
	if changed("oui-db") {
		cfg.OUIDBPath = f.ouiDB
	}
	if changed("http") {
		cfg.HTTPAddr = f.http
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("trace") {
		cfg.Trace = f.trace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(parent context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return err
	}
	if err := application.Run(ctx); err != nil {
		logger.Error("Application error", zap.Error(err))
		return err
	}
	return nil
}
