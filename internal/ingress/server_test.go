package ingress

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/plexsphere/splicefabric/internal/pool"
	"github.com/plexsphere/splicefabric/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeAdmission struct{ deny bool }

func (f *fakeAdmission) Allow(ip net.IP) bool        { return !f.deny }
func (f *fakeAdmission) Block(ip net.IP) error        { return nil }
func (f *fakeAdmission) Unblock(ip net.IP) error      { return nil }
func (f *fakeAdmission) Blocked() []net.IP            { return nil }

type fakeGeoip struct{ country, asn string }

func (f *fakeGeoip) Lookup(ip net.IP) (string, string, error) { return f.country, f.asn, nil }

type fakeDevices struct {
	upserted []store.DeviceDetails
}

func (f *fakeDevices) UpsertDevice(d store.DeviceDetails) error {
	f.upserted = append(f.upserted, d)
	return nil
}
func (f *fakeDevices) RecordTarget(store.CloudConnection) error { return nil }
func (f *fakeDevices) RecordDataplan(store.DataplanEntry) error { return nil }
func (f *fakeDevices) RecordCommandSent(store.CommandSent) error { return nil }
func (f *fakeDevices) DeviceByIMEI(string) (store.DeviceDetails, bool) {
	return store.DeviceDetails{}, false
}
func (f *fakeDevices) ConnectedIMEIs() []string                    { return nil }
func (f *fakeDevices) CountDevicesByCountry() map[string]int       { return nil }
func (f *fakeDevices) AvailableASNsByCountry() map[string][]string { return nil }
func (f *fakeDevices) RegenerateAvailableASNs() error              { return nil }

func TestHandleDial_EnrollsIntoPool(t *testing.T) {
	p := pool.New(pool.Config{}, discardLogger())
	devices := &fakeDevices{}
	s := NewServer(Config{ListenPort: 1, Backlog: 1}, p, &fakeAdmission{}, &fakeGeoip{country: "BE", asn: "AS1"}, devices, discardLogger())

	agentSide, serverSide := net.Pipe()
	defer agentSide.Close()

	go s.handleDial(serverSide)

	frame := make([]byte, IdentityFrameSize)
	copy(frame, "imei999,fcm999,2.0")
	agentSide.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := agentSide.Write(frame); err != nil {
		t.Fatalf("write identity frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(devices.upserted) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(devices.upserted) != 1 || devices.upserted[0].IMEI != "imei999" {
		t.Fatalf("expected one device upserted with imei999, got %+v", devices.upserted)
	}
	if len(p.AvailableASNs()["BE"]) != 1 {
		t.Errorf("expected the agent to be enrolled in the BE pool")
	}
}

func TestHandleDial_RejectedByAdmissionClosesWithoutEnrolling(t *testing.T) {
	p := pool.New(pool.Config{}, discardLogger())
	devices := &fakeDevices{}
	s := NewServer(Config{ListenPort: 1, Backlog: 1}, p, &fakeAdmission{deny: true}, &fakeGeoip{}, devices, discardLogger())

	agentSide, serverSide := net.Pipe()

	done := make(chan struct{})
	go func() {
		s.handleDial(serverSide)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected handleDial to return promptly on admission rejection")
	}

	buf := make([]byte, 1)
	agentSide.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := agentSide.Read(buf); err == nil {
		t.Errorf("expected the server side to be closed")
	}
	if len(devices.upserted) != 0 {
		t.Errorf("expected no device to be upserted when admission rejects")
	}
}
