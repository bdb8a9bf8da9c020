package system

import (
	"fmt"
	"net"
)

// GetFreePort asks the kernel for an unused TCP port on host.
func GetFreePort(host string) (uint16, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to reserve a free port: %w", err)
	}
	defer l.Close()

	return uint16(l.Addr().(*net.TCPAddr).Port), nil
}
