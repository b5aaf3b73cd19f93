package node

import (
	"fmt"
	"net"
	"strconv"
)

// CheckPortsAvailable binds every address and releases it immediately. The
// first address that cannot be bound yields a PortUnavailableError. Empty
// addresses are skipped.
func CheckPortsAvailable(addrs ...string) error {
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return &PortUnavailableError{Addr: addr, Port: portOf(addr), Err: err}
		}
		l.Close()
	}
	return nil
}

func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(p)
	return port
}

// FreeAddr asks the OS for a free port on the loopback interface and returns
// it as host:port. The port is released before returning, so there is a small
// window where another process could take it; Spawn checks again.
func FreeAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("looking for a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().String(), nil
}
