//go:build !linux

package sockstate

import (
	"net"

	"golang.org/x/sys/unix"
)

// isEstablished performs a non-destructive MSG_PEEK read directly on the
// socket's file descriptor, mirroring sockstate_linux.go's TCP_INFO probe
// on platforms where TCP_INFO isn't available. MSG_PEEK leaves any pending
// payload in the kernel receive buffer for the real reader (the splice
// pair's forward loop) to consume; this function must never steal bytes
// out of a live splice.
func isEstablished(conn net.Conn) bool {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return true
	}

	rawConn, err := tc.SyscallConn()
	if err != nil {
		return false
	}

	buf := make([]byte, 1)
	var established bool
	ctrlErr := rawConn.Read(func(fd uintptr) bool {
		n, _, recvErr := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK)
		switch {
		case recvErr == unix.EAGAIN || recvErr == unix.EWOULDBLOCK:
			// No data pending right now; the netpoller already guarantees
			// the fd is non-blocking, so this means "open, but idle".
			established = true
		case recvErr != nil:
			established = false
		case n == 0:
			// Peer performed an orderly shutdown (peek saw EOF).
			established = false
		default:
			established = true
		}
		return true
	})
	if ctrlErr != nil {
		return false
	}
	return established
}
