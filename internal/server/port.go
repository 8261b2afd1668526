package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// DefaultPortAttempts is how many consecutive ports are tried.
const DefaultPortAttempts = 20

// ErrNoAvailablePort is returned when every candidate port is taken.
var ErrNoAvailablePort = errors.New("no available port")

// Listen binds the first free port in preferred..preferred+attempts-1.
func Listen(host string, preferred, attempts int) (net.Listener, error) {
	if attempts <= 0 {
		attempts = DefaultPortAttempts
	}
	var lastErr error
	for port := preferred; port < preferred+attempts; port++ {
		if port <= 0 || port > 65535 {
			continue
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w in %d..%d: %v", ErrNoAvailablePort, preferred, preferred+attempts-1, lastErr)
}

// FindAvailablePort returns the first free port in the same range as Listen.
// The port is released before returning, so prefer Listen when binding.
func FindAvailablePort(host string, preferred, attempts int) (int, error) {
	ln, err := Listen(host, preferred, attempts)
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
