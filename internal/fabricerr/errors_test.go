package fabricerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIs_MatchesByKindOnly(t *testing.T) {
	err := Wrap(KindNoAvailableConnection, "country BE has no idle buckets", fmt.Errorf("boom"))
	if !errors.Is(err, ErrNoAvailableConnection) {
		t.Errorf("expected errors.Is to match by kind regardless of message/cause")
	}
	if errors.Is(err, ErrProtocolAnomaly) {
		t.Errorf("expected no match across different kinds")
	}
}

func TestUnwrap_ReturnsCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(KindConnectionInvalid, "dead socket", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to reach the wrapped cause")
	}
}

func TestNew_HasNilCause(t *testing.T) {
	err := New(KindIdentityFrameInvalid, "bad frame")
	if err.Unwrap() != nil {
		t.Errorf("expected nil cause for New, got %v", err.Unwrap())
	}
}
