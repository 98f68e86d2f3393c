// Package pool implements the country/ASN-indexed inventory of idle agent
// sockets, kept live by periodic keep-alive probes.
package pool

import (
	"net"
	"time"
)

// AgentConnection is an idle agent socket tagged with the fields needed to
// bucket and identify it. Ownership transfers Ingress → Pool → Splice
// Engine → closed; a connection is never returned to the pool once
// withdrawn.
type AgentConnection struct {
	conn net.Conn

	DeviceID    string
	IMEI        string
	FCMID       string
	AppVersion  string
	Country     string
	ASN         string
	ConnectedAt time.Time
}

// NewAgentConnection wraps a dialed-in agent socket with its identity fields.
func NewAgentConnection(conn net.Conn, imei, fcmID, appVersion, country, asn string) *AgentConnection {
	return &AgentConnection{
		conn:        conn,
		DeviceID:    imei,
		IMEI:        imei,
		FCMID:       fcmID,
		AppVersion:  appVersion,
		Country:     country,
		ASN:         asn,
		ConnectedAt: time.Now(),
	}
}

// Conn returns the underlying socket.
func (a *AgentConnection) Conn() net.Conn { return a.conn }

// Close closes the underlying socket. Safe to call more than once.
func (a *AgentConnection) Close() error {
	return a.conn.Close()
}
