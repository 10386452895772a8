package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/network"
)

// UDPv6Transport is the IPv6 counterpart to UDPv4Transport, joined to
// ff02::fb instead of 224.0.0.251 (RFC 6762 §5). Embedders that want
// dual-stack operation run one of each and feed both into the same
// Responder.
type UDPv6Transport struct {
	conn net.PacketConn
}

// NewUDPv6Transport creates a UDP IPv6 multicast transport bound to the
// mDNS port and joined to ff02::fb on every usable interface.
func NewUDPv6Transport() (*UDPv6Transport, error) {
	conn, err := network.CreateSocketV6()
	if err != nil {
		return nil, err
	}
	return &UDPv6Transport{conn: conn}, nil
}

var _ Transport = (*UDPv6Transport)(nil)

// Send transmits packet to dest over the IPv6 socket.
func (t *UDPv6Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &errors.NetworkError{Operation: "send", Err: ctx.Err(), Details: "context canceled before send"}
	default:
	}

	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &errors.NetworkError{Operation: "send", Err: err, Details: fmt.Sprintf("failed to send %d bytes to %s", len(packet), dest)}
	}
	if n != len(packet) {
		return &errors.NetworkError{Operation: "send", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet)), Details: "incomplete transmission"}
	}
	return nil
}

// Receive waits for one incoming IPv6 packet, respecting ctx cancellation
// and deadline.
func (t *UDPv6Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: ctx.Err(), Details: "context canceled before receive"}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &errors.NetworkError{Operation: "set read timeout", Err: err, Details: fmt.Sprintf("failed to set deadline %v", deadline)}
		}
	}

	bufPtr := GetBuffer()
	defer PutBuffer(bufPtr)
	buffer := *bufPtr

	n, srcAddr, err := t.conn.ReadFrom(buffer)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil, &errors.NetworkError{Operation: "receive", Err: err, Details: "timeout"}
		}
		return nil, nil, &errors.NetworkError{Operation: "receive", Err: err, Details: "failed to read from socket"}
	}

	result := make([]byte, n)
	copy(result, buffer[:n])
	return result, srcAddr, nil
}

// Close releases the underlying socket.
func (t *UDPv6Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err, Details: "failed to close UDP connection"}
	}
	return nil
}
