// Package splice implements the Splice Engine ("super proxy"): it accepts
// client connections on per-country ingress ports, withdraws an idle agent
// from the pool, and performs bidirectional byte forwarding with pluggable
// per-packet observers.
package splice

import (
	"fmt"
	"time"
)

const (
	// SocketReadSize is the maximum chunk size read per forward step.
	SocketReadSize = 1024

	// DefaultBacklogPerCountry is the default for Config.BacklogPerCountry.
	DefaultBacklogPerCountry = 10

	// ClosingSentinel is sent best-effort to the agent socket on teardown,
	// telling it to reset its upstream connection and dial back in.
	ClosingSentinel = "SPLICE_CLOSING_RESET_AND_REDIAL_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789"
)

// DefaultCountryToPort mirrors the fabric's standard per-country ingress
// binding, including the "N/A" sentinel for unclassified agents.
var DefaultCountryToPort = map[string]int{
	"N/A": 1234,
	"BE":  2000,
	"DE":  3000,
	"LU":  4000,
	"SE":  5000,
	"NL":  6000,
	"AE":  7000,
}

// Config holds the splice engine's tunables.
type Config struct {
	// CountryToPort binds one listener per country code to a TCP port.
	CountryToPort map[string]int `yaml:"country_to_port"`

	// BacklogPerCountry is the configured listen backlog for each country
	// port. It is defaulted and validated, but Engine.Run does not pass it
	// to the listener, which uses the operating system's default backlog.
	// Default: 10
	BacklogPerCountry int `yaml:"backlog_per_country"`

	// AcceptDialTimeout is defaulted but not read by the engine: an accepted
	// client gets a single, non-waiting pool withdrawal and is closed at once
	// if no agent is idle.
	// Default: 2s
	AcceptDialTimeout time.Duration `yaml:"accept_dial_timeout"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.CountryToPort == nil {
		c.CountryToPort = DefaultCountryToPort
	}
	if c.BacklogPerCountry == 0 {
		c.BacklogPerCountry = DefaultBacklogPerCountry
	}
	if c.AcceptDialTimeout == 0 {
		c.AcceptDialTimeout = 2 * time.Second
	}
}

// Validate checks that configuration values are acceptable.
func (c *Config) Validate() error {
	if len(c.CountryToPort) == 0 {
		return fmt.Errorf("splice: config: CountryToPort must not be empty")
	}
	for cc, port := range c.CountryToPort {
		if port < 1 || port > 65535 {
			return fmt.Errorf("splice: config: country %q has invalid port %d", cc, port)
		}
	}
	if c.BacklogPerCountry < 1 {
		return fmt.Errorf("splice: config: BacklogPerCountry must be positive")
	}
	return nil
}
