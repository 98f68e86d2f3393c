//go:build !linux

package admission

import "log/slog"

// NewDefault returns the in-memory StaticController, since the nftables
// backend is Linux-only.
func NewDefault(logger *slog.Logger) Controller {
	logger.Info("nftables admission controller unavailable on this platform, using static")
	return NewStaticController()
}
