package protocolmon

import (
	"fmt"
	"regexp"
	"strconv"
)

// connectLinePattern extracts the IPv4:port target from an HTTP CONNECT
// request line, e.g. "CONNECT 93.184.216.34:443 HTTP/1.1".
var connectLinePattern = regexp.MustCompile(`^CONNECT\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}):(\d+)\s+HTTP`)

// validateHTTPSInitial checks that data begins with a CONNECT request line
// and extracts its IPv4 target.
func validateHTTPSInitial(data []byte) (socksNegotiationTarget, error) {
	m := connectLinePattern.FindSubmatch(data)
	if m == nil {
		return socksNegotiationTarget{}, fmt.Errorf("protocolmon: https initial: not a CONNECT request")
	}
	port, err := strconv.Atoi(string(m[2]))
	if err != nil {
		return socksNegotiationTarget{}, fmt.Errorf("protocolmon: https initial: bad port: %w", err)
	}
	target := socksNegotiationTarget{IP: string(m[1]), Port: port}
	if _, ok := standardPorts[port]; !ok {
		return target, errNonStandardPort(port)
	}
	return target, nil
}
