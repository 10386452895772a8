package transport

import (
	"context"
	"net"
)

// Transport is the socket collaborator the engine's embedder supplies
// (spec.md §6): send a packet to a destination, receive the next packet,
// and close the underlying socket. The core engine never sees this
// interface directly — it only produces (message, destination) pairs and
// consumes decoded messages; something in the embedding event loop (see
// cmd/beacond) bridges Transport to Responder.Input/Output.
type Transport interface {
	Send(ctx context.Context, packet []byte, dest net.Addr) error
	Receive(ctx context.Context) ([]byte, net.Addr, error)
	Close() error
}
