package transport

import (
	"context"
	"net"
	"sync"
)

// MockTransport is a test double for Transport, recording every Send
// call so packaging/wiring tests can assert on emitted bytes and
// destinations without a real socket.
type MockTransport struct {
	mu        sync.Mutex
	sendCalls []SendCall
	closed    bool
}

// SendCall records a single Send() invocation.
type SendCall struct {
	Packet []byte
	Dest   net.Addr
}

// NewMockTransport creates a new mock transport for testing.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		sendCalls: make([]SendCall, 0),
	}
}

var _ Transport = (*MockTransport)(nil)

// Send records the call for verification.
func (m *MockTransport) Send(_ context.Context, packet []byte, dest net.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendCalls = append(m.sendCalls, SendCall{
		Packet: append([]byte(nil), packet...),
		Dest:   dest,
	})

	return nil
}

// Receive always returns a nil packet; tests that need inbound traffic
// feed decoded messages straight into Responder.Input instead of routing
// them through a transport.
func (m *MockTransport) Receive(_ context.Context) ([]byte, net.Addr, error) {
	return nil, nil, nil
}

// Close marks the transport as closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// SendCalls returns a defensive copy of every recorded Send call.
func (m *MockTransport) SendCalls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]SendCall, len(m.sendCalls))
	copy(calls, m.sendCalls)
	return calls
}
