//go:build linux

package admission

import "log/slog"

// NewDefault returns the platform's preferred Controller: an
// nftables-backed one on Linux, falling back to the in-memory
// StaticController if nftables is unavailable (e.g. no CAP_NET_ADMIN).
func NewDefault(logger *slog.Logger) Controller {
	c, err := NewNftablesController(logger)
	if err != nil {
		logger.Warn("nftables admission controller unavailable, falling back to static", "error", err)
		return NewStaticController()
	}
	return c
}
