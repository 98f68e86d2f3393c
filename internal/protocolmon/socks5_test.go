package protocolmon

import "testing"

func TestValidateSocksInitial(t *testing.T) {
	if err := validateSocksInitial([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Errorf("expected valid initial frame to pass, got %v", err)
	}
	if err := validateSocksInitial([]byte{0x04, 0x01, 0x00}); err == nil {
		t.Errorf("expected bad version byte to fail")
	}
	if err := validateSocksInitial([]byte{0x05, 0x02, 0x00}); err == nil {
		t.Errorf("expected length mismatch to fail")
	}
}

func TestValidateSocksAuthMethodsSent(t *testing.T) {
	if err := validateSocksAuthMethodsSent([]byte{0x05, 0x00}); err != nil {
		t.Errorf("expected NO_AUTH reply to pass, got %v", err)
	}
	if err := validateSocksAuthMethodsSent([]byte{0x05, 0x02}); err == nil {
		t.Errorf("expected non-NO_AUTH method to fail")
	}
}

func TestValidateSocksNegotiationComplete_StandardPort(t *testing.T) {
	frame := []byte{0x05, 0x01, 0x00, 0x01, 93, 184, 216, 34, 0x01, 0xBB}
	target, err := validateSocksNegotiationComplete(frame)
	if err != nil {
		t.Fatalf("unexpected error for standard port: %v", err)
	}
	if target.IP != "93.184.216.34" || target.Port != 443 {
		t.Errorf("unexpected target: %+v", target)
	}
}

func TestValidateSocksNegotiationComplete_NonStandardPortWarnsOnly(t *testing.T) {
	frame := []byte{0x05, 0x01, 0x00, 0x01, 93, 184, 216, 34, 0x1F, 0x90}
	target, err := validateSocksNegotiationComplete(frame)
	if err == nil {
		t.Fatalf("expected a non-standard port to produce a warning error")
	}
	if _, ok := err.(warnOnly); !ok {
		t.Errorf("expected a warnOnly error, got %T", err)
	}
	if target.Port != 8080 {
		t.Errorf("expected target to still be extracted, got %+v", target)
	}
}

func TestValidateSocksNegotiationComplete_RejectsNonConnect(t *testing.T) {
	frame := []byte{0x05, 0x02, 0x00, 0x01, 93, 184, 216, 34, 0x01, 0xBB}
	if _, err := validateSocksNegotiationComplete(frame); err == nil {
		t.Errorf("expected non-CONNECT command to fail")
	}
}

func TestValidateSocksConnectRequestSent(t *testing.T) {
	frame := []byte{0x05, 0x00, 0x00, 0x01, 93, 184, 216, 34, 0x01, 0xBB}
	if err := validateSocksConnectRequestSent(frame); err != nil {
		t.Errorf("expected valid reply to pass, got %v", err)
	}

	bad := []byte{0x05, 0x01, 0x00, 0x01, 93, 184, 216, 34, 0x01, 0xBB}
	if err := validateSocksConnectRequestSent(bad); err == nil {
		t.Errorf("expected non-success reply code to fail")
	}
}
