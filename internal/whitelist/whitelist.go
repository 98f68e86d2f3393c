// Package whitelist implements the background DNS resolver that refreshes
// the allowed-upstream-hostname set on a fixed interval, and the /24-match
// checker the Protocol Monitor consults. A miss is observability, not
// enforcement — the whitelist never vetoes a splice.
package whitelist

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultResolveInterval is how often hostnames are re-resolved.
	DefaultResolveInterval = 15 * time.Second
)

// Config holds the whitelist resolver's tunables.
type Config struct {
	// Enabled controls whether whitelist checking is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Hostnames are the allowed upstream hostnames, re-resolved periodically.
	Hostnames []string `yaml:"hostnames"`

	// ResolveInterval is how often the A records are refreshed.
	// Default: 15s
	ResolveInterval time.Duration `yaml:"resolve_interval"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ResolveInterval == 0 {
		c.ResolveInterval = DefaultResolveInterval
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if c.Enabled && len(c.Hostnames) == 0 {
		return fmt.Errorf("whitelist: config: at least one hostname is required when enabled")
	}
	if c.ResolveInterval <= 0 {
		return fmt.Errorf("whitelist: config: ResolveInterval must be positive")
	}
	return nil
}

// Checker resolves Config.Hostnames on a recurring tick (a true ticker, not
// the source's broken self-reschedule) and answers /24-subnet membership
// queries against the most recent resolution.
type Checker struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	resolved  []net.IP
}

// New constructs a Checker. cfg must already have ApplyDefaults called.
func New(cfg Config, logger *slog.Logger) *Checker {
	return &Checker{cfg: cfg, logger: logger.With("component", "whitelist")}
}

// Enabled reports whether whitelist checking is configured on.
func (c *Checker) Enabled() bool { return c.cfg.Enabled }

// Run resolves every configured hostname immediately, then again on every
// tick of ResolveInterval, until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}

	c.resolveOnce(ctx)

	ticker := time.NewTicker(c.cfg.ResolveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.resolveOnce(ctx)
		}
	}
}

func (c *Checker) resolveOnce(ctx context.Context) {
	var resolver net.Resolver
	var all []net.IP
	for _, host := range c.cfg.Hostnames {
		ips, err := resolver.LookupIP(ctx, "ip4", host)
		if err != nil {
			c.logger.Warn("whitelist hostname resolution failed", "host", host, "error", err)
			continue
		}
		all = append(all, ips...)
	}

	c.mu.Lock()
	c.resolved = all
	c.mu.Unlock()
}

// Allows reports whether ipStr shares its first three octets with any
// currently resolved whitelist IP.
func (c *Checker) Allows(ipStr string) bool {
	target := net.ParseIP(ipStr)
	if target == nil {
		return false
	}
	targetPrefix := subnet24(target)
	if targetPrefix == "" {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, ip := range c.resolved {
		if subnet24(ip) == targetPrefix {
			return true
		}
	}
	return false
}

func subnet24(ip net.IP) string {
	v4 := ip.To4()
	if v4 == nil {
		return ""
	}
	parts := strings.Split(v4.String(), ".")
	if len(parts) != 4 {
		return ""
	}
	return strings.Join(parts[:3], ".")
}
