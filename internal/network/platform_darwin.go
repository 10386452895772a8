//go:build darwin

package network

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions sets SO_REUSEADDR and SO_REUSEPORT so beacon can bind
// port 5353 alongside Bonjour's mDNSResponder. Both options are BSD
// standard and available on every macOS version beacon supports.
func setSocketOptions(fd uintptr) error {
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEADDR: %w", err)
	}

	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("failed to set SO_REUSEPORT: %w", err)
	}

	return nil
}

// KernelVersion returns empty string on macOS: Darwin kernel versioning
// doesn't map to SO_REUSEPORT support the way Linux's does, and every
// supported macOS release has it.
func KernelVersion() string {
	return ""
}

// platformControl is the net.ListenConfig.Control callback used by
// CreateSocket/CreateSocketV6 on macOS.
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
