package port

import (
	"fmt"
	"net"
)

// Scanner checks whether specific ports are available on the host machine.
//
// It asks the OS network stack directly with net.Listen / net.ListenPacket
// rather than parsing /proc/net/* or shelling out to `ss`, which may need
// elevated permissions.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable checks whether a single port is free on the host machine.
//
// The check binds all interfaces (":port") because Docker publishes on
// 0.0.0.0 by default; a port free only on 127.0.0.1 would still clash.
//
// Returns true if the port is free, false if it is in use, out of range,
// or the protocol is not "tcp" or "udp".
func (s *Scanner) IsPortAvailable(port int, protocol string) bool {
	if port < 1 || port > maxPort {
		return false
	}
	addr := fmt.Sprintf(":%d", port)

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = listener.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		return false
	}
}
