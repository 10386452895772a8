// Package network provides the multicast socket collaborator spec.md §6
// lists as an external dependency: a non-blocking datagram socket bound
// to port 5353, joined to the mDNS group on every usable interface, with
// platform socket options that let beacon coexist with Avahi, Bonjour,
// or systemd-resolved on the same port.
package network

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/protocol"
)

// CreateSocket creates a UDP multicast socket bound to the mDNS port
// (RFC 6762 §5), with TTL=255 (RFC 6762 §11) and multicast loopback
// enabled. SO_REUSEADDR/SO_REUSEPORT are set via the platform-specific
// Control function before bind, so other mDNS stacks already listening
// on 5353 do not prevent beacon from joining too.
func CreateSocket() (net.PacketConn, error) {
	lc := net.ListenConfig{Control: PlatformControl}

	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", protocol.Port))
	if err != nil {
		return nil, &errors.NetworkError{
			Operation: "create socket",
			Err:       err,
			Details:   fmt.Sprintf("failed to bind to port %d (is another mDNS responder running without SO_REUSEPORT?)", protocol.Port),
		}
	}

	p := ipv4.NewPacketConn(conn)

	ifaces, err := net.Interfaces()
	if err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "enumerate interfaces", Err: err, Details: "failed to get network interfaces for multicast join"}
	}

	group := net.IPv4(224, 0, 0, 251)
	joined := 0
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		ifaceCopy := iface
		if err := p.JoinGroup(&ifaceCopy, &net.UDPAddr{IP: group}); err != nil {
			continue // interface doesn't support multicast; try the rest
		}
		joined++
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "join multicast group", Err: fmt.Errorf("no interfaces available"), Details: "failed to join 224.0.0.251 on any interface"}
	}

	if err := p.SetMulticastTTL(255); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set multicast TTL", Err: err, Details: "failed to set TTL=255"}
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set multicast loopback", Err: err, Details: "failed to enable loopback"}
	}

	if udpConn, ok := conn.(*net.UDPConn); ok {
		if err := udpConn.SetReadBuffer(65536); err != nil {
			_ = conn.Close()
			return nil, &errors.NetworkError{Operation: "configure socket", Err: err, Details: "failed to set read buffer size"}
		}
	}

	return conn, nil
}

// CreateSocketV6 creates a UDP multicast socket bound to the mDNS port on
// the IPv6 wildcard address, joined to ff02::fb on every usable interface
// (RFC 6762 §5). It mirrors CreateSocket's option set: SO_REUSEADDR/
// SO_REUSEPORT via PlatformControl, multicast hop limit 255, loopback
// enabled.
func CreateSocketV6() (net.PacketConn, error) {
	lc := net.ListenConfig{Control: PlatformControl}

	conn, err := lc.ListenPacket(context.Background(), "udp6", fmt.Sprintf("[::]:%d", protocol.Port))
	if err != nil {
		return nil, &errors.NetworkError{
			Operation: "create socket",
			Err:       err,
			Details:   fmt.Sprintf("failed to bind IPv6 port %d (is another mDNS responder running without SO_REUSEPORT?)", protocol.Port),
		}
	}

	p := ipv6.NewPacketConn(conn)

	ifaces, err := net.Interfaces()
	if err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "enumerate interfaces", Err: err, Details: "failed to get network interfaces for multicast join"}
	}

	group := net.ParseIP("ff02::fb")
	joined := 0
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		ifaceCopy := iface
		if err := p.JoinGroup(&ifaceCopy, &net.UDPAddr{IP: group}); err != nil {
			continue // interface doesn't support multicast; try the rest
		}
		joined++
	}
	if joined == 0 {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "join multicast group", Err: fmt.Errorf("no interfaces available"), Details: "failed to join ff02::fb on any interface"}
	}

	if err := p.SetMulticastHopLimit(255); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set multicast hop limit", Err: err, Details: "failed to set hop limit=255"}
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, &errors.NetworkError{Operation: "set multicast loopback", Err: err, Details: "failed to enable loopback"}
	}

	if udpConn, ok := conn.(*net.UDPConn); ok {
		if err := udpConn.SetReadBuffer(65536); err != nil {
			_ = conn.Close()
			return nil, &errors.NetworkError{Operation: "configure socket", Err: err, Details: "failed to set read buffer size"}
		}
	}

	return conn, nil
}
