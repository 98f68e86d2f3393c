package protocolmon

import "testing"

func TestNext_AdvancesByOneForOrdinaryStates(t *testing.T) {
	if got := next(SocksInitial); got != SocksAuthMethodsSent {
		t.Errorf("expected SocksAuthMethodsSent, got %s", got)
	}
	if got := next(HTTPSInitial); got != HTTPSConnectSent {
		t.Errorf("expected HTTPSConnectSent, got %s", got)
	}
}

func TestNext_SocksConnectRequestSentJumpsToComplete(t *testing.T) {
	if got := next(SocksConnectRequestSent); got != ConnectionComplete {
		t.Errorf("expected ConnectionComplete, got %s", got)
	}
}

func TestNext_ConnectionCompleteIsTerminal(t *testing.T) {
	if got := next(ConnectionComplete); got != ConnectionComplete {
		t.Errorf("expected ConnectionComplete to stay terminal, got %s", got)
	}
}

func TestIsOdd_MatchesAgentExpectedStates(t *testing.T) {
	cases := []struct {
		state ConnectionState
		odd   bool
	}{
		{SocksInitial, true},
		{SocksAuthMethodsSent, false},
		{SocksNegotiationComplete, true},
		{SocksConnectRequestSent, false},
		{HTTPSInitial, true},
		{HTTPSConnectSent, false},
	}
	for _, c := range cases {
		if got := c.state.isOdd(); got != c.odd {
			t.Errorf("%s.isOdd() = %v, want %v", c.state, got, c.odd)
		}
	}
}
