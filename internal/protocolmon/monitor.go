package protocolmon

import (
	"log/slog"
	"net"
	"sync"

	"github.com/plexsphere/splicefabric/internal/fabricerr"
	"github.com/plexsphere/splicefabric/internal/store"
	"github.com/plexsphere/splicefabric/internal/whitelist"
)

const (
	alertProtocolAnomaly   = "ALERT-PROTOCOL"
	alertIPNotWhitelisted  = "ALERT-IP"
)

// record is one splice's protocol-monitor bookkeeping, held in an arena
// keyed by an integer id — not by following client/agent back-pointers —
// so teardown never has to chase cyclic references.
type record struct {
	id         int
	deviceID   string
	agentSock  net.Conn
	state      ConnectionState
	targetIP   string
	targetPort int
}

// Monitor is the Protocol Monitor plugin. It implements Register,
// Unregister, and PacketTransmitted per the splice engine's plugin
// contract, and is safe to call only from the splice engine's own
// goroutine for a given splice (no internal locking needed per record;
// the map itself is locked since Register/Unregister can race across
// splices).
type Monitor struct {
	devices   store.DeviceStore
	whitelist *whitelist.Checker
	logger    *slog.Logger

	mu       sync.Mutex
	nextID   int
	bySocket map[net.Conn]int
	splices  map[int]*record
}

// New constructs a Monitor. devices and wl may be nil.
func New(devices store.DeviceStore, wl *whitelist.Checker, logger *slog.Logger) *Monitor {
	return &Monitor{
		devices:   devices,
		whitelist: wl,
		logger:    logger.With("component", "protocolmon"),
		bySocket:  make(map[net.Conn]int),
		splices:   make(map[int]*record),
	}
}

// Register records a new splice's sockets and device id.
func (m *Monitor) Register(agentSock, clientSock net.Conn, deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.splices[id] = &record{id: id, deviceID: deviceID, agentSock: agentSock, state: Unclassified}
	m.bySocket[agentSock] = id
	m.bySocket[clientSock] = id
}

// Unregister drops all bookkeeping for the splice owning sock, identified
// by id rather than by walking from one socket to the other.
func (m *Monitor) Unregister(sock net.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySocket[sock]
	if !ok {
		return
	}
	delete(m.splices, id)
	for s, sid := range m.bySocket {
		if sid == id {
			delete(m.bySocket, s)
		}
	}
}

// PacketTransmitted runs the parity check, the current state's validators,
// and the state transition for one forwarded frame. A non-nil error means
// the splice must be torn down (a fabricerr.KindProtocolAnomaly error
// wrapping the cause); warn-only findings (non-standard port, whitelist miss)
// are logged and return nil.
func (m *Monitor) PacketTransmitted(source, _ net.Conn, data []byte) error {
	m.mu.Lock()
	id, ok := m.bySocket[source]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	rec := m.splices[id]
	m.mu.Unlock()

	fromAgent := source == rec.agentSock

	if err := checkParity(rec.state, fromAgent); err != nil {
		m.logger.Warn("protocol parity violation, "+alertProtocolAnomaly,
			"device_id", rec.deviceID, "state", rec.state.String(), "error", err)
		return fabricerr.Wrap(fabricerr.KindProtocolAnomaly, "parity violation", err)
	}

	newState, target, err := m.validate(rec, data)
	if err != nil {
		if w, ok := err.(warnOnly); ok {
			m.logger.Warn("protocol monitor warning", "device_id", rec.deviceID, "state", rec.state.String(), "warning", w.Error())
		} else {
			m.logger.Warn("protocol validation failed, "+alertProtocolAnomaly,
				"device_id", rec.deviceID, "state", rec.state.String(), "error", err)
			return fabricerr.Wrap(fabricerr.KindProtocolAnomaly, "validation failed", err)
		}
	}

	if target.IP != "" {
		rec.targetIP = target.IP
		rec.targetPort = target.Port
		m.recordTarget(rec, target)
		m.checkWhitelist(rec, target)
	}

	rec.state = newState
	return nil
}

// checkParity enforces that odd states expect agent-originated packets and
// even states expect client-originated packets, with UNCLASSIFIED and
// CONNECTION_COMPLETE exempted.
func checkParity(state ConnectionState, fromAgent bool) error {
	if state == Unclassified || state == ConnectionComplete {
		return nil
	}
	if state.isOdd() != fromAgent {
		return errParity(state, fromAgent)
	}
	return nil
}

func errParity(state ConnectionState, fromAgent bool) error {
	side := "client"
	if fromAgent {
		side = "agent"
	}
	return &parityError{state: state, side: side}
}

type parityError struct {
	state ConnectionState
	side  string
}

func (e *parityError) Error() string {
	return "unexpected packet from " + e.side + " at state " + e.state.String()
}

// validate runs the validator(s) for rec's current state and returns the
// next state plus any extracted target.
func (m *Monitor) validate(rec *record, data []byte) (ConnectionState, socksNegotiationTarget, error) {
	state := rec.state
	if state == Unclassified {
		if len(data) > 0 && data[0] == socks5Version {
			state = SocksInitial
		} else {
			state = HTTPSInitial
		}
	}

	switch state {
	case SocksInitial:
		if err := validateSocksInitial(data); err != nil {
			return state, socksNegotiationTarget{}, err
		}
	case SocksAuthMethodsSent:
		if err := validateSocksAuthMethodsSent(data); err != nil {
			return state, socksNegotiationTarget{}, err
		}
	case SocksNegotiationComplete:
		target, err := validateSocksNegotiationComplete(data)
		return next(state), target, err
	case SocksConnectRequestSent:
		if err := validateSocksConnectRequestSent(data); err != nil {
			return state, socksNegotiationTarget{}, err
		}
	case HTTPSInitial:
		target, err := validateHTTPSInitial(data)
		return next(state), target, err
	case HTTPSConnectSent, ConnectionComplete:
		// No validators for these states.
	}

	return next(state), socksNegotiationTarget{}, nil
}

func (m *Monitor) recordTarget(rec *record, target socksNegotiationTarget) {
	if m.devices == nil {
		return
	}
	_ = m.devices.RecordTarget(store.CloudConnection{
		DeviceID:   rec.deviceID,
		TargetIP:   target.IP,
		TargetPort: target.Port,
	})
}

func (m *Monitor) checkWhitelist(rec *record, target socksNegotiationTarget) {
	if m.whitelist == nil || !m.whitelist.Enabled() {
		return
	}
	if m.whitelist.Allows(target.IP) {
		return
	}
	m.logger.Warn("target ip not in whitelist, "+alertIPNotWhitelisted,
		"device_id", rec.deviceID, "target_ip", target.IP)
}
