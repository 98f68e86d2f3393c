// Package admission implements the agent ingress's IP admission check.
// The default policy is permissive — every source IP is allowed — matching
// the fabric's rule that GeoIP/admission failures degrade rather than
// reject; operators may populate a blocklist to change that.
package admission

import "net"

// Controller is the IP admission seam the agent ingress consumes.
type Controller interface {
	// Allow reports whether ip may proceed to dial-in handling.
	Allow(ip net.IP) bool
	// Block adds ip to the blocklist.
	Block(ip net.IP) error
	// Unblock removes ip from the blocklist. Idempotent.
	Unblock(ip net.IP) error
	// Blocked returns the current blocklist.
	Blocked() []net.IP
}
