// File: internal/netrotate/rotator.go
// Package netrotate switches the machine's egress location between
// sessions via the NordVPN CLI.
package netrotate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/config"
)

// Runner executes an external command and returns its combined output.
// It exists so tests can script CLI behavior without a VPN installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Rotator drives the NordVPN CLI through a connect / recover ladder.
type Rotator struct {
	cfg    config.VPNConfig
	runner Runner
	logger *zap.Logger

	// sleep is injectable for tests; defaults to a context-aware wait.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRotator creates a rotator using the given runner. Passing nil uses
// the host ExecRunner.
func NewRotator(cfg config.VPNConfig, runner Runner, logger *zap.Logger) *Rotator {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rotator{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("netrotate"),
		sleep:  sleepCtx,
	}
}

// Rotate attempts to move egress to the preferred location, falling back
// through the configured alternates. It reports whether any connection
// succeeded. When rotation is disabled it is a no-op success.
func (r *Rotator) Rotate(ctx context.Context) bool {
	if !r.cfg.Enabled {
		return true
	}

	ladder := append([]string{r.cfg.PreferredLocation}, r.cfg.FallbackLocations...)

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		location := ladder[attempt%len(ladder)]
		if r.connect(ctx, location) {
			r.logger.Info("Egress rotated.", zap.String("location", location))
			return true
		}

		r.logger.Warn("Rotation attempt failed; recovering the VPN client.",
			zap.Int("attempt", attempt+1),
			zap.String("location", location),
		)
		if !r.recover(ctx) {
			return false
		}
	}

	r.logger.Error("Egress rotation exhausted all attempts.",
		zap.Int("attempts", r.cfg.MaxRetries+1),
	)
	return false
}

// connect issues the connect command and verifies the reported status.
func (r *Rotator) connect(ctx context.Context, location string) bool {
	if _, err := r.runner.Run(ctx, "nordvpn", append([]string{"connect"}, strings.Fields(location)...)...); err != nil {
		r.logger.Debug("Connect command failed.", zap.String("location", location), zap.Error(err))
		return false
	}
	if err := r.sleep(ctx, r.cfg.SettleWait); err != nil {
		return false
	}

	out, err := r.runner.Run(ctx, "nordvpn", "status")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(out), "status: connected")
}

// recover tears the client down and brings it back up: disconnect, wait,
// restart the daemon, wait again. Each step is best-effort.
func (r *Rotator) recover(ctx context.Context) bool {
	if _, err := r.runner.Run(ctx, "nordvpn", "disconnect"); err != nil {
		r.logger.Debug("Disconnect failed during recovery.", zap.Error(err))
	}
	if err := r.sleep(ctx, r.cfg.KillWait); err != nil {
		return false
	}

	if _, err := r.runner.Run(ctx, "systemctl", "restart", "nordvpnd"); err != nil {
		r.logger.Debug("Daemon restart failed during recovery.", zap.Error(err))
	}
	return r.sleep(ctx, r.cfg.ReconnectWait) == nil
}

// Disconnect drops the VPN connection, if any.
func (r *Rotator) Disconnect(ctx context.Context) {
	if !r.cfg.Enabled {
		return
	}
	if _, err := r.runner.Run(ctx, "nordvpn", "disconnect"); err != nil {
		r.logger.Debug("Disconnect failed.", zap.Error(err))
	}
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
