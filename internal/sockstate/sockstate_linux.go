//go:build linux

package sockstate

import (
	"net"

	"golang.org/x/sys/unix"
)

// isEstablished reads TCP_INFO from the socket's file descriptor and
// compares the reported tcp_state against TCP_ESTABLISHED, mirroring the
// getsockopt(IPPROTO_TCP, TCP_INFO) probe the fabric has always used to
// decide whether a pooled agent socket is still connected.
func isEstablished(conn net.Conn) bool {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return true
	}

	sc, err := tc.SyscallConn()
	if err != nil {
		return false
	}

	var info *unix.TCPInfo
	var getErr error
	ctrlErr := sc.Control(func(fd uintptr) {
		info, getErr = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	})
	if ctrlErr != nil || getErr != nil || info == nil {
		return false
	}

	return info.State == uint8(unix.TCP_ESTABLISHED)
}
