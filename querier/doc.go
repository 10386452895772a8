// Package querier provides a synchronous, channel-free convenience API on
// top of the responder engine (spec.md §4.4), for callers that just want
// to ask "who answers to this name" without driving Input/Output/Sleep
// themselves. It owns the UDP multicast socket and the background
// goroutines that pump packets between the wire and the engine.
//
// Example:
//
//	q, err := querier.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//	defer cancel()
//
//	resp, err := q.Query(ctx, "_http._tcp.local.", responder.TypePTR)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rec := range resp.Records {
//	    fmt.Println(rec.Name)
//	}
package querier
