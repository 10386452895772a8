//go:build windows

package network

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/windows"
)

// setSocketOptions sets SO_REUSEADDR, the only port-sharing option
// Windows exposes (it has no SO_REUSEPORT). Windows' SO_REUSEADDR lets
// multiple processes bind the same port, unlike POSIX's TIME_WAIT-only
// semantics, so this still gets beacon the coexistence behavior it wants.
func setSocketOptions(fd uintptr) error {
	if err := windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	return nil
}

// KernelVersion returns empty string on Windows: SO_REUSEADDR has worked
// this way since XP, so there's no version gate to report.
func KernelVersion() string {
	return ""
}

// platformControl is the net.ListenConfig.Control callback used by
// CreateSocket/CreateSocketV6 on Windows.
func platformControl(network, address string, c syscall.RawConn) error {
	var sockoptErr error
	err := c.Control(func(fd uintptr) {
		sockoptErr = setSocketOptions(fd)
	})
	if err != nil {
		return fmt.Errorf("raw conn control failed: %w", err)
	}
	return sockoptErr
}

// PlatformControl is the exported net.ListenConfig.Control function for
// this platform.
func PlatformControl(network, address string, c syscall.RawConn) error {
	return platformControl(network, address, c)
}
