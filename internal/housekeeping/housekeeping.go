// Package housekeeping implements the periodic maintenance jobs that ride
// alongside the core: pruning stale device records and regenerating the
// per-country available-ASN lists. Both run as true recurring ticks (per
// the fabric's correction of the source's broken self-reschedule), not
// self-rescheduling one-shot timers.
package housekeeping

import (
	"context"
	"log/slog"
	"time"

	"github.com/plexsphere/splicefabric/internal/store"
)

const (
	// DefaultCleanDeviceInterval is how often stale devices are pruned.
	DefaultCleanDeviceInterval = 12 * time.Hour

	// DefaultStaleDeviceThreshold is how long since last connect before a
	// device is considered stale.
	DefaultStaleDeviceThreshold = 7 * 24 * time.Hour

	// DefaultRegenerateASNInterval is how often available-ASN lists are rebuilt.
	DefaultRegenerateASNInterval = 1 * time.Hour
)

// Config holds the housekeeping jobs' tunables.
type Config struct {
	CleanDeviceInterval    time.Duration `yaml:"clean_device_interval"`
	StaleDeviceThreshold   time.Duration `yaml:"stale_device_threshold"`
	RegenerateASNInterval  time.Duration `yaml:"regenerate_asn_interval"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.CleanDeviceInterval == 0 {
		c.CleanDeviceInterval = DefaultCleanDeviceInterval
	}
	if c.StaleDeviceThreshold == 0 {
		c.StaleDeviceThreshold = DefaultStaleDeviceThreshold
	}
	if c.RegenerateASNInterval == 0 {
		c.RegenerateASNInterval = DefaultRegenerateASNInterval
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error { return nil }

// Jobs runs the clean-device and regenerate-ASN-list periodic tasks.
type Jobs struct {
	cfg     Config
	devices store.DeviceStore
	logger  *slog.Logger
}

// New constructs Jobs. cfg must already have ApplyDefaults called.
func New(cfg Config, devices store.DeviceStore, logger *slog.Logger) *Jobs {
	return &Jobs{cfg: cfg, devices: devices, logger: logger.With("component", "housekeeping")}
}

// RunCleanDevices prunes device records whose last connect is older than
// StaleDeviceThreshold, on a recurring tick, until ctx is cancelled.
func (j *Jobs) RunCleanDevices(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.CleanDeviceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.cleanDevicesOnce()
		}
	}
}

func (j *Jobs) cleanDevicesOnce() {
	pruner, ok := j.devices.(interface {
		PruneStaleSince(threshold time.Time) int
	})
	if !ok {
		j.logger.Debug("device store does not support pruning, skipping")
		return
	}
	cutoff := time.Now().Add(-j.cfg.StaleDeviceThreshold)
	n := pruner.PruneStaleSince(cutoff)
	if n > 0 {
		j.logger.Info("pruned stale devices", "count", n)
	}
}

// RunRegenerateASNLists rebuilds the available-ASN lists from the current
// device set, on a recurring tick, until ctx is cancelled.
func (j *Jobs) RunRegenerateASNLists(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.RegenerateASNInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.devices.RegenerateAvailableASNs(); err != nil {
				j.logger.Error("regenerate available ASN lists failed", "error", err)
			}
		}
	}
}
