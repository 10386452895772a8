// Package responder implements the mDNS/DNS-SD responder and querier
// engine (spec.md §4.5): a single per-interface Responder that composes
// the message codec, record store, query tracker, and publish scheduler
// into the externally-clocked Public API described there.
//
// The engine is single-threaded and performs no I/O of its own (spec.md
// §5). An embedder drives it from its own event loop:
//
//	r := responder.New(iface.Addr)
//	r.OnConflict(func(name string, typ responder.RecordType) { ... })
//	r.Publish(responder.Record{Name: "host.local.", Type: responder.TypeA, Unique: true, RData: message.AData{Addr: ip}}, true)
//
//	for {
//	    if pkt, from, err := transport.Receive(ctx); err == nil {
//	        msg, err := message.Decode(pkt)
//	        if udp, ok := from.(*net.UDPAddr); ok && err == nil {
//	            r.Input(msg, udp.IP, udp.Port, nowMs())
//	        }
//	    }
//	    for {
//	        out, ok := r.Output(nowMs())
//	        if !ok {
//	            break
//	        }
//	        transport.Send(ctx, out.Packet, out.Dest)
//	    }
//	    deadline := r.Sleep(nowMs())
//	    ... wait until *deadline (nil: no deadline) or the next inbound datagram ...
//	}
package responder
