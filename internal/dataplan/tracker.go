// Package dataplan implements the Data-plan Tracker plugin: it counts
// bytes transmitted per direction for each splice and writes the totals to
// the external store on splice teardown.
package dataplan

import (
	"log/slog"
	"net"
	"sync"

	"github.com/plexsphere/splicefabric/internal/store"
)

// counters holds the running byte totals for one splice.
type counters struct {
	deviceID string
	download int64
	upload   int64
}

// Tracker is the Data-plan Tracker plugin.
type Tracker struct {
	devices store.DeviceStore
	logger  *slog.Logger

	mu       sync.Mutex
	bySocket map[net.Conn]*counters
	agent    map[net.Conn]bool
}

// New constructs a Tracker. devices may be nil (writes become no-ops).
func New(devices store.DeviceStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		devices:  devices,
		logger:   logger.With("component", "dataplan"),
		bySocket: make(map[net.Conn]*counters),
		agent:    make(map[net.Conn]bool),
	}
}

// Register starts a shared counter pair for the given splice.
func (t *Tracker) Register(agentSock, clientSock net.Conn, deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := &counters{deviceID: deviceID}
	t.bySocket[agentSock] = c
	t.bySocket[clientSock] = c
	t.agent[agentSock] = true
	t.agent[clientSock] = false
}

// PacketTransmitted adds len(data) to the download counter if source is the
// agent socket, else to the upload counter.
func (t *Tracker) PacketTransmitted(source, _ net.Conn, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.bySocket[source]
	if !ok {
		return nil
	}
	if t.agent[source] {
		c.download += int64(len(data))
	} else {
		c.upload += int64(len(data))
	}
	return nil
}

// Unregister writes the final download/upload rows and drops bookkeeping
// for the splice owning sock.
func (t *Tracker) Unregister(sock net.Conn) {
	t.mu.Lock()
	c, ok := t.bySocket[sock]
	if !ok {
		t.mu.Unlock()
		return
	}
	var mates []net.Conn
	for s, cc := range t.bySocket {
		if cc == c {
			mates = append(mates, s)
		}
	}
	for _, s := range mates {
		delete(t.bySocket, s)
		delete(t.agent, s)
	}
	t.mu.Unlock()

	if t.devices == nil {
		return
	}
	if err := t.devices.RecordDataplan(store.DataplanEntry{DeviceID: c.deviceID, Direction: "download", Amount: c.download}); err != nil {
		t.logger.Warn("record download dataplan failed", "device_id", c.deviceID, "error", err)
	}
	if err := t.devices.RecordDataplan(store.DataplanEntry{DeviceID: c.deviceID, Direction: "upload", Amount: c.upload}); err != nil {
		t.logger.Warn("record upload dataplan failed", "device_id", c.deviceID, "error", err)
	}
}
