package whitelist

import (
	"log/slog"
	"net"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestAllows_MatchesBySlash24(t *testing.T) {
	c := New(Config{Enabled: true}, discardLogger())
	c.resolved = []net.IP{net.ParseIP("93.184.216.1")}

	if !c.Allows("93.184.216.254") {
		t.Errorf("expected a /24 match to allow")
	}
	if c.Allows("93.184.217.1") {
		t.Errorf("expected a different /24 to be rejected")
	}
}

func TestAllows_InvalidIPRejected(t *testing.T) {
	c := New(Config{Enabled: true}, discardLogger())
	c.resolved = []net.IP{net.ParseIP("1.2.3.4")}

	if c.Allows("not-an-ip") {
		t.Errorf("expected an unparseable address to never match")
	}
}

func TestConfig_ValidateRequiresHostnamesWhenEnabled(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected Validate to reject Enabled with no hostnames")
	}

	cfg = Config{Enabled: true, Hostnames: []string{"example.com"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with hostnames set: %v", err)
	}
}
