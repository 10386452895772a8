package querier

import (
	"context"
	goerrors "errors"
	"net"
	"strconv"
	"sync"
	"time"

	berrors "github.com/crowlark/beacon/internal/errors"
	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/transport"
	"github.com/crowlark/beacon/responder"
)

// Response aggregates every record a Query collected before its
// collection window closed.
type Response struct {
	Records []responder.Record
}

// inboundPacket is one datagram handed from a receive goroutine to the
// engine loop.
type inboundPacket struct {
	buf  []byte
	addr net.Addr
}

// Querier drives one responder.Responder against real UDP multicast
// sockets: a receive goroutine per transport hands raw datagrams to a
// single engine-loop goroutine, which decodes them, feeds them to the
// Responder and drains its Output. Query, Publish, Withdraw and Shutdown
// call the Responder from the caller's goroutine; every call into the
// Responder holds mu, matching spec.md §5's single-writer model while
// still presenting callers with an ordinary blocking Query call.
type Querier struct {
	mu sync.Mutex

	engine *responder.Responder

	transportV4 transport.Transport
	transportV6 transport.Transport

	inbound chan inboundPacket
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	defaultTimeout      time.Duration
	explicitInterfaces  []net.Interface
	ipv6Enabled         bool
	responderOpts       []responder.Option
	transportV4Override transport.Transport
	localAddrOverride   net.IP
}

// New creates a Querier bound to a local UDP multicast socket and starts
// its background receive and engine-loop goroutines.
func New(opts ...Option) (*Querier, error) {
	q := &Querier{defaultTimeout: 1 * time.Second, inbound: make(chan inboundPacket, 128), wake: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(q)
	}

	addr := q.localAddrOverride
	if addr == nil {
		var err error
		addr, err = localAddress(q.explicitInterfaces)
		if err != nil {
			return nil, err
		}
	}

	if q.transportV4Override != nil {
		q.transportV4 = q.transportV4Override
	} else {
		tr4, err := transport.NewUDPv4Transport()
		if err != nil {
			return nil, err
		}
		q.transportV4 = tr4
	}

	if q.ipv6Enabled {
		tr6, err := transport.NewUDPv6Transport()
		if err != nil {
			_ = q.transportV4.Close()
			return nil, err
		}
		q.transportV6 = tr6
	}

	q.engine = responder.New(addr, q.responderOpts...)
	q.ctx, q.cancel = context.WithCancel(context.Background())

	q.wg.Add(1)
	go q.receiveLoop(q.transportV4)
	if q.transportV6 != nil {
		q.wg.Add(1)
		go q.receiveLoop(q.transportV6)
	}
	q.wg.Add(1)
	go q.engineLoop()

	return q, nil
}

// localAddress picks the first non-loopback IPv4 address among ifaces
// (or every interface, if ifaces is empty), the address the engine uses
// to select its multicast group.
func localAddress(ifaces []net.Interface) (net.IP, error) {
	if len(ifaces) == 0 {
		all, err := net.Interfaces()
		if err != nil {
			return nil, &berrors.NetworkError{Operation: "list interfaces", Err: err}
		}
		ifaces = all
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
				continue
			}
			return ipNet.IP, nil
		}
	}
	return nil, &berrors.NetworkError{Operation: "select local address", Err: goerrors.New("no usable non-loopback IPv4 interface found")}
}

// Query sends a question for (name, typ) and collects every matching
// record until ctx is done or, if ctx carries no deadline, the Querier's
// default collection window elapses (spec.md §4.4).
func (q *Querier) Query(ctx context.Context, name string, typ responder.RecordType) (*Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.defaultTimeout)
		defer cancel()
	}

	resp := &Response{}
	var respMu sync.Mutex
	q.mu.Lock()
	h := q.engine.Query(name, typ, false, func(rec responder.Record, removed bool) {
		if removed {
			return
		}
		respMu.Lock()
		resp.Records = append(resp.Records, rec)
		respMu.Unlock()
	})
	q.mu.Unlock()
	q.wakeEngine()
	defer func() {
		q.mu.Lock()
		q.engine.CancelQuery(h)
		q.mu.Unlock()
	}()

	<-ctx.Done()
	if ctx.Err() == context.Canceled {
		return nil, ctx.Err()
	}

	respMu.Lock()
	defer respMu.Unlock()
	return &Response{Records: append([]responder.Record(nil), resp.Records...)}, nil
}

// receiveLoop pumps datagrams from tr into q.inbound until the Querier is
// closed. Each Receive call carries its own short deadline so the loop
// notices cancellation promptly instead of blocking indefinitely.
func (q *Querier) receiveLoop(tr transport.Transport) {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(q.ctx, 200*time.Millisecond)
		buf, addr, err := tr.Receive(ctx)
		if err != nil || buf == nil {
			<-ctx.Done()
			cancel()
			continue
		}
		cancel()
		select {
		case q.inbound <- inboundPacket{buf: buf, addr: addr}:
		case <-q.ctx.Done():
			return
		}
	}
}

// engineLoop is the goroutine that feeds inbound packets to the Responder
// and drains its Output, under mu, waking on whichever comes first: an
// inbound packet, a wakeEngine nudge or the engine's own Sleep deadline.
func (q *Querier) engineLoop() {
	defer q.wg.Done()
	for {
		now := time.Now().UnixMilli()
		q.mu.Lock()
		q.flushOutput(now)
		deadline := q.engine.Sleep(now)
		q.mu.Unlock()

		var timer *time.Timer
		if deadline != nil {
			d := time.Duration(*deadline-now) * time.Millisecond
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
		}

		select {
		case <-q.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case pkt := <-q.inbound:
			if timer != nil {
				timer.Stop()
			}
			q.handleInbound(pkt)
		case <-q.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC(timer):
		}
	}
}

// wakeEngine nudges engineLoop out of its select so a just-registered query
// or publish gets its first Output drained immediately instead of waiting
// for the next inbound packet or scheduler deadline.
func (q *Querier) wakeEngine() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (q *Querier) handleInbound(pkt inboundPacket) {
	msg, err := message.Decode(pkt.buf)
	if err != nil {
		return
	}
	host, portStr, err := net.SplitHostPort(pkt.addr.String())
	if err != nil {
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return
	}
	q.mu.Lock()
	q.engine.Input(msg, net.ParseIP(host), port, time.Now().UnixMilli())
	q.mu.Unlock()
}

func (q *Querier) flushOutput(nowMs int64) {
	for {
		out, ok := q.engine.Output(nowMs)
		if !ok {
			return
		}
		tr := q.transportV4
		if udpAddr, ok := out.Dest.(*net.UDPAddr); ok && udpAddr.IP.To4() == nil && q.transportV6 != nil {
			tr = q.transportV6
		}
		_ = tr.Send(q.ctx, out.Packet, out.Dest)
	}
}

// Shutdown transitions every owned record to Goodbye and blocks until the
// engine loop has fully drained the goodbye sequence, or ctx is done
// first. spec.md §5 requires the caller to keep pumping Output after
// Shutdown until it returns empty; engineLoop already does that on its
// own schedule, so Shutdown just has to wait for it rather than pump
// directly. Callers should call Shutdown before Close: Close cancels the
// background goroutines immediately and would otherwise cut the 3-message,
// protocol.GoodbyeInterval-spaced goodbye sequence short after its first
// packet.
func (q *Querier) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.engine.Shutdown(time.Now().UnixMilli())
	q.mu.Unlock()
	q.wakeEngine()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.mu.Lock()
		done := q.engine.Withdrawing() == 0
		q.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the background goroutines and releases both sockets.
func (q *Querier) Close() error {
	q.cancel()
	q.wg.Wait()

	var err error
	if e := q.transportV4.Close(); e != nil {
		err = e
	}
	if q.transportV6 != nil {
		if e := q.transportV6.Close(); e != nil {
			err = e
		}
	}
	return err
}

// Publish exposes the underlying engine's Publish for callers that want
// to both advertise a service and query for others over the same socket
// (spec.md §4.5).
func (q *Querier) Publish(rec responder.Record, unique bool) error {
	q.mu.Lock()
	err := q.engine.Publish(rec, unique)
	q.mu.Unlock()
	q.wakeEngine()
	return err
}

// Withdraw exposes the underlying engine's Withdraw, symmetric with Publish.
func (q *Querier) Withdraw(name string, typ responder.RecordType) error {
	q.mu.Lock()
	err := q.engine.Withdraw(name, typ)
	q.mu.Unlock()
	q.wakeEngine()
	return err
}
