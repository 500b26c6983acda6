package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenFDsEnv and firstInheritedFD follow the systemd socket-activation
// convention (also spoken by the `systemfd`/`listenfd` hot-reload
// tooling the prototype supports): inherited descriptors start at fd 3,
// and their count is advertised in LISTEN_FDS.
const (
	listenFDsEnv     = "LISTEN_FDS"
	firstInheritedFD = 3
)

// Listen builds the gateway's listener: an inherited socket when the
// environment advertises one (spec.md §4.9's fd-inheritance handoff for
// hot reload), otherwise a fresh bind of bind:port.
func Listen(bind, port string) (net.Listener, error) {
	if l, ok, err := adoptInheritedListener(); ok || err != nil {
		return l, err
	}
	return net.Listen("tcp", net.JoinHostPort(bind, port))
}

func adoptInheritedListener() (net.Listener, bool, error) {
	raw := os.Getenv(listenFDsEnv)
	if raw == "" {
		return nil, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, false, nil
	}

	fd := firstInheritedFD
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, true, fmt.Errorf("config: set inherited fd %d nonblocking: %w", fd, err)
	}

	f := os.NewFile(uintptr(fd), "listenfd")
	l, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, true, fmt.Errorf("config: adopt inherited fd %d: %w", fd, err)
	}
	return l, true, nil
}
