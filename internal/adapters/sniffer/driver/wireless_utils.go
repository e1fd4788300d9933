package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

// Interface prepares a wireless interface for injection and capture using
// the ip and iw tools.
type Interface struct {
	Name   string
	run    runFunc
	logger *zap.Logger
}

func NewInterface(name string, logger *zap.Logger) *Interface {
	return &Interface{Name: name, run: execRun, logger: logging.OrNop(logger).Named("driver")}
}

// SetChannel tunes the interface to a fixed channel.
func (i *Interface) SetChannel(ctx context.Context, channel uint8) error {
	if channel == 0 {
		return fmt.Errorf("invalid channel: %d", channel)
	}
	if err := i.runCmd(ctx, "iw", "dev", i.Name, "set", "channel", fmt.Sprintf("%d", channel)); err != nil {
		return fmt.Errorf("failed to set channel %d on %s: %w", channel, i.Name, err)
	}
	return nil
}

// EnableMonitorMode puts the interface into monitor mode
func (i *Interface) EnableMonitorMode(ctx context.Context) error {
	i.logger.Info("Enabling monitor mode", zap.String("interface", i.Name))
	if err := i.runCmd(ctx, "ip", "link", "set", i.Name, "down"); err != nil {
		return err
	}
	if err := i.runCmd(ctx, "iw", "dev", i.Name, "set", "type", "monitor"); err != nil {
		i.logger.Warn("Setting monitor mode failed. If the device is busy, stop NetworkManager/wpa_supplicant and retry",
			zap.String("interface", i.Name))
		return err
	}
	if err := i.runCmd(ctx, "ip", "link", "set", i.Name, "up"); err != nil {
		return err
	}
	return nil
}

// DisableMonitorMode puts the interface back into managed mode. Errors are logged only.
func (i *Interface) DisableMonitorMode(ctx context.Context) {
	i.logger.Info("Restoring managed mode", zap.String("interface", i.Name))
	_ = i.runCmd(ctx, "ip", "link", "set", i.Name, "down")
	_ = i.runCmd(ctx, "iw", "dev", i.Name, "set", "type", "managed")
	_ = i.runCmd(ctx, "ip", "link", "set", i.Name, "up")
}

func (i *Interface) runCmd(ctx context.Context, name string, args ...string) error {
	output, err := i.run(ctx, name, args...)
	if err != nil {
		i.logger.Error("Command failed",
			zap.String("cmd", name),
			zap.Strings("args", args),
			zap.String("output", bytesTrim(output)),
			zap.Error(err))
		return err
	}
	return nil
}
