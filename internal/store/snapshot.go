package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/plexsphere/splicefabric/internal/fsutil"
)

// snapshotFileName is the file name used for the device-details snapshot
// within a MemoryStore's data directory.
const snapshotFileName = "devices.json"

// SnapshotToFile writes the current device set to dir/devices.json
// atomically, so a restart can recover device metadata without waiting for
// every agent to redial. Splice state itself is never persisted, per the
// fabric's explicit non-goal — only DeviceDetails survives a restart.
func (m *MemoryStore) SnapshotToFile(dir string) error {
	m.mu.RLock()
	devices := make([]DeviceDetails, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	m.mu.RUnlock()

	data, err := json.Marshal(devices)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(dir, snapshotFileName, data, 0o644)
}

// LoadSnapshot reads dir/devices.json, if present, and populates the store
// with its contents. A missing file is not an error.
func (m *MemoryStore) LoadSnapshot(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var devices []DeviceDetails
	if err := json.Unmarshal(data, &devices); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range devices {
		m.devices[d.IMEI] = d
	}
	return nil
}
