package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/network"
)

// UDPv4Transport adapts network.CreateSocket's raw net.PacketConn to the
// Transport interface, adding context-aware deadlines and pooled receive
// buffers on top of the platform-tuned socket.
type UDPv4Transport struct {
	conn net.PacketConn
}

// NewUDPv4Transport creates a UDP multicast transport bound to the mDNS
// port and joined to 224.0.0.251 (RFC 6762 §5).
func NewUDPv4Transport() (*UDPv4Transport, error) {
	conn, err := network.CreateSocket()
	if err != nil {
		return nil, err
	}
	return &UDPv4Transport{conn: conn}, nil
}

var _ Transport = (*UDPv4Transport)(nil)

// Send transmits packet to dest (RFC 6762 §5: queries and responses both
// go to 224.0.0.251:5353 unless the engine asked for a unicast reply).
func (t *UDPv4Transport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
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

// Receive waits for one incoming packet, respecting ctx cancellation and
// deadline. The returned slice is the caller's to keep; the read buffer
// itself comes from and returns to a shared pool (buffer_pool.go).
func (t *UDPv4Transport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
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
func (t *UDPv4Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &errors.NetworkError{Operation: "close socket", Err: err, Details: "failed to close UDP connection"}
	}
	return nil
}
