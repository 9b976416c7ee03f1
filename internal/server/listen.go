package server

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrPortInUse is returned by Listen when another process holds the address.
var ErrPortInUse = errors.New("address already in use")

// Listen binds a TCP listener on addr. A port conflict is reported as
// ErrPortInUse so callers can suggest another port.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("%w: %s", ErrPortInUse, addr)
		}
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}
