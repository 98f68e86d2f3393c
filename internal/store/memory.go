package store

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory DeviceStore, guarded by a single RWMutex.
// It is sufficient for tests and single-process deployments; a multi-process
// deployment should back DeviceStore with a real document database instead.
type MemoryStore struct {
	mu sync.RWMutex

	devices     map[string]DeviceDetails
	targets     []CloudConnection
	dataplan    []DataplanEntry
	commands    []CommandSent
	asnsByCountry map[string][]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:       make(map[string]DeviceDetails),
		asnsByCountry: make(map[string][]string),
	}
}

func (m *MemoryStore) UpsertDevice(d DeviceDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.IMEI] = d
	return nil
}

func (m *MemoryStore) RecordTarget(c CloudConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, c)
	return nil
}

func (m *MemoryStore) RecordDataplan(e DataplanEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataplan = append(m.dataplan, e)
	return nil
}

func (m *MemoryStore) RecordCommandSent(c CommandSent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, c)
	return nil
}

func (m *MemoryStore) DeviceByIMEI(imei string) (DeviceDetails, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[imei]
	return d, ok
}

func (m *MemoryStore) ConnectedIMEIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.devices))
	for imei := range m.devices {
		out = append(out, imei)
	}
	return out
}

func (m *MemoryStore) CountDevicesByCountry() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, d := range m.devices {
		counts[d.CountryCode]++
	}
	return counts
}

func (m *MemoryStore) AvailableASNsByCountry() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]string, len(m.asnsByCountry))
	for cc, asns := range m.asnsByCountry {
		cp := make([]string, len(asns))
		copy(cp, asns)
		out[cc] = cp
	}
	return out
}

// PruneStaleSince removes every device whose last connect timestamp is
// before cutoff, returning the number removed. Housekeeping's clean-device
// job uses this when the configured DeviceStore supports it.
func (m *MemoryStore) PruneStaleSince(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for imei, d := range m.devices {
		if d.LastConnectTimestamp.Before(cutoff) {
			delete(m.devices, imei)
			removed++
		}
	}
	return removed
}

// RegenerateAvailableASNs rebuilds the per-country ASN list from the
// current device set, mirroring the hourly AvailableAsns regeneration job.
func (m *MemoryStore) RegenerateAvailableASNs() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]map[string]struct{})
	for _, d := range m.devices {
		set, ok := seen[d.CountryCode]
		if !ok {
			set = make(map[string]struct{})
			seen[d.CountryCode] = set
		}
		set[d.ASN] = struct{}{}
	}

	rebuilt := make(map[string][]string, len(seen))
	for cc, set := range seen {
		asns := make([]string, 0, len(set))
		for asn := range set {
			asns = append(asns, asn)
		}
		rebuilt[cc] = asns
	}
	m.asnsByCountry = rebuilt
	return nil
}
