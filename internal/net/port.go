package net

import (
	"fmt"
	"net"
)

// FreeTCPPort returns a localhost TCP port that nothing is listening on at the time of the call.
// Tests use it to get an address that refuses connections.
func FreeTCPPort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listening to acquire port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if err := listener.Close(); err != nil {
		return 0, fmt.Errorf("releasing port %d: %w", port, err)
	}
	return port, nil
}
