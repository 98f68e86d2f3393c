package store

import "testing"

func TestSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := NewMemoryStore()
	m.UpsertDevice(DeviceDetails{IMEI: "imei-1", CountryCode: "BE", ASN: "AS1"})
	m.UpsertDevice(DeviceDetails{IMEI: "imei-2", CountryCode: "FR", ASN: "AS2"})

	if err := m.SnapshotToFile(dir); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	loaded := NewMemoryStore()
	if err := loaded.LoadSnapshot(dir); err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded.ConnectedIMEIs()) != 2 {
		t.Fatalf("expected 2 devices restored, got %d", len(loaded.ConnectedIMEIs()))
	}
	d, ok := loaded.DeviceByIMEI("imei-1")
	if !ok || d.CountryCode != "BE" || d.ASN != "AS1" {
		t.Errorf("unexpected restored device: %+v ok=%v", d, ok)
	}
}

func TestLoadSnapshot_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	m := NewMemoryStore()
	if err := m.LoadSnapshot(dir); err != nil {
		t.Errorf("expected a missing snapshot file to not be an error, got %v", err)
	}
	if len(m.ConnectedIMEIs()) != 0 {
		t.Errorf("expected no devices loaded from a missing file")
	}
}
