package admission

import (
	"net"
	"testing"
)

func TestStaticController_DefaultsPermissive(t *testing.T) {
	c := NewStaticController()
	if !c.Allow(net.ParseIP("1.2.3.4")) {
		t.Errorf("expected a fresh controller to allow unknown IPs")
	}
}

func TestStaticController_BlockThenAllow(t *testing.T) {
	c := NewStaticController()
	ip := net.ParseIP("1.2.3.4")

	if err := c.Block(ip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Allow(ip) {
		t.Errorf("expected a blocked IP to be denied")
	}
	if len(c.Blocked()) != 1 {
		t.Errorf("expected 1 blocked IP, got %d", len(c.Blocked()))
	}

	if err := c.Unblock(ip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Allow(ip) {
		t.Errorf("expected the IP to be allowed again after unblock")
	}
}

func TestStaticController_UnblockUnknownIPIsIdempotent(t *testing.T) {
	c := NewStaticController()
	if err := c.Unblock(net.ParseIP("9.9.9.9")); err != nil {
		t.Errorf("expected unblocking a never-blocked IP to be a no-op, got %v", err)
	}
}
