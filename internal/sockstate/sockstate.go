// Package sockstate checks whether a TCP socket is still in the
// ESTABLISHED state at the OS level, for use by the connection pool's
// keep-alive and in-use sweeps.
package sockstate

import "net"

// IsEstablished reports whether conn's underlying TCP socket is currently
// in the ESTABLISHED state. A false result means the remote end has closed,
// reset, or the socket is otherwise no longer usable; the pool should
// discard such a connection rather than hand it to a client.
//
// Platform-specific implementations live in sockstate_linux.go (TCP_INFO
// via golang.org/x/sys/unix) and sockstate_other.go (MSG_PEEK fallback).
func IsEstablished(conn net.Conn) bool {
	return isEstablished(conn)
}
