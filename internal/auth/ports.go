package auth

import (
	"fmt"
	"net"

	"spotify-cli/internal/shared"
)

// DefaultPorts lists the loopback ports tried for the OAuth redirect, in
// order. All five are registered with the provider so any of them can
// serve as the redirect URI.
var DefaultPorts = []int{5555, 5556, 5557, 5558, 5559}

// Allocate walks the candidate ports in order and binds the first one that
// is free, returning the bound listener and its port.
//
// Returns [shared.ErrNoPortAvailable] when every candidate is taken. A
// failed bind leaves nothing open, so no sockets leak on any path.
func Allocate(candidates []int) (net.Listener, int, error) {
	for _, port := range candidates {
		lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		return lis, lis.Addr().(*net.TCPAddr).Port, nil
	}

	return nil, 0, fmt.Errorf("%w: all of %v are in use, free one and re-run", shared.ErrNoPortAvailable, candidates)
}
