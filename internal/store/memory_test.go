package store

import (
	"testing"
	"time"
)

func TestMemoryStore_UpsertAndLookup(t *testing.T) {
	m := NewMemoryStore()
	if err := m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "BE", ASN: "AS1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, ok := m.DeviceByIMEI("imei-1")
	if !ok || d.CountryCode != "BE" {
		t.Errorf("expected to find imei-1 with country BE, got %+v ok=%v", d, ok)
	}

	if _, ok := m.DeviceByIMEI("missing"); ok {
		t.Errorf("expected missing imei to not be found")
	}
}

func TestMemoryStore_UpsertOverwritesByIMEI(t *testing.T) {
	m := NewMemoryStore()
	m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "BE"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "FR"})

	if len(m.ConnectedIMEIs()) != 1 {
		t.Errorf("expected a re-upsert of the same imei to not duplicate")
	}
	d, _ := m.DeviceByIMEI("imei-1")
	if d.CountryCode != "FR" {
		t.Errorf("expected the second upsert to win, got country %q", d.CountryCode)
	}
}

func TestMemoryStore_CountDevicesByCountry(t *testing.T) {
	m := NewMemoryStore()
	m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "BE"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-2", CountryCode: "BE"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-3", CountryCode: "FR"})

	counts := m.CountDevicesByCountry()
	if counts["BE"] != 2 || counts["FR"] != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestMemoryStore_RegenerateAvailableASNs(t *testing.T) {
	m := NewMemoryStore()
	m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "BE", ASN: "AS1"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-2", CountryCode: "BE", ASN: "AS2"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-3", CountryCode: "BE", ASN: "AS1"})

	if err := m.RegenerateAvailableASNs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	asns := m.AvailableASNsByCountry()["BE"]
	if len(asns) != 2 {
		t.Errorf("expected 2 distinct ASNs for BE, got %v", asns)
	}
}

func TestMemoryStore_PruneStaleSince(t *testing.T) {
	m := NewMemoryStore()
	now := time.Now()
	m.UpsertDevice(DeviceDetails{IMEI: "stale", LastConnectTimestamp: now.Add(-2 * time.Hour)})
	m.UpsertDevice(DeviceDetails{IMEI: "fresh", LastConnectTimestamp: now})

	removed := m.PruneStaleSince(now.Add(-time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 device pruned, got %d", removed)
	}
	if _, ok := m.DeviceByIMEI("stale"); ok {
		t.Errorf("expected the stale device to be removed")
	}
	if _, ok := m.DeviceByIMEI("fresh"); !ok {
		t.Errorf("expected the fresh device to survive")
	}
}

func TestMemoryStore_RecordTargetAndDataplanAndCommand(t *testing.T) {
	m := NewMemoryStore()
	if err := m.RecordTarget(CloudConnection{DeviceID: "imei-1", TargetIP: "1.2.3.4", TargetPort: 443}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.RecordDataplan(DataplanEntry{DeviceID: "imei-1", Direction: "upload", Amount: 100}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.RecordCommandSent(CommandSent{IMEI: "imei-1", Command: 1, SentAt: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
