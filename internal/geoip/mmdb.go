package geoip

import "net"

// MMDBResolver is the seam for a real MaxMind-database-backed resolver.
// It is intentionally unimplemented: GeoIP databases are an external
// collaborator this repository does not ship, and pulling in an MMDB
// reader dependency without data files to back it would be dead weight.
// An operator wiring a real GeoIP database should implement Resolver
// directly against whatever reader library and database paths they use.
type MMDBResolver struct {
	ASNDatabasePath  string
	CityDatabasePath string
}

// Lookup always reports failure; callers should treat this as "not wired"
// and fall back to StaticResolver until ASNDatabasePath/CityDatabasePath
// point at real data.
func (r MMDBResolver) Lookup(net.IP) (string, string, error) {
	return NotAvailable, NotAvailable, errNotWired
}

var errNotWired = notWiredError{}

type notWiredError struct{}

func (notWiredError) Error() string { return "geoip: mmdb resolver not wired to a database" }
