package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FramesCaptured counts frames read from the capture source
	FramesCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "frames_captured_total",
			Help:      "Total number of frames read from the capture source",
		},
		[]string{"interface"},
	)

	// FramesDropped counts frames that did not produce a device
	FramesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames skipped or rejected",
		},
		[]string{"interface", "reason"},
	)

	// DevicesDiscovered counts newly registered WPS devices
	DevicesDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "devices_discovered_total",
			Help:      "Total number of WPS devices discovered",
		},
		[]string{"interface", "security"},
	)

	// ProbesSent counts injected probe requests
	ProbesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "probes_sent_total",
			Help:      "Total number of probe requests injected",
		},
		[]string{"interface"},
	)

	// ProbeErrors counts failed probe injections
	ProbeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "probe_errors_total",
			Help:      "Total number of failed probe request injections",
		},
		[]string{"interface"},
	)

	// ChannelChanges counts probe rebuilds caused by a channel change
	ChannelChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wpsscan",
			Name:      "channel_changes_total",
			Help:      "Total number of channel changes observed by the transmitter",
		},
		[]string{"interface"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// Drop reasons for FramesDropped.
const (
	ReasonNotProbeResponse = "not_probe_response"
	ReasonNoWPS            = "no_wps"
	ReasonDuplicate        = "duplicate"
	ReasonDecodeError      = "decode_error"
)

// InitMetrics registers all metrics with the given registerer (the global
// Prometheus registry when nil). Only the first call has an effect.
func InitMetrics(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		// Register metrics, ignoring errors if already registered
		reg.Register(FramesCaptured)
		reg.Register(FramesDropped)
		reg.Register(DevicesDiscovered)
		reg.Register(ProbesSent)
		reg.Register(ProbeErrors)
		reg.Register(ChannelChanges)
	})
}
