package responder

import (
	"net"
	"strconv"

	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
	"github.com/crowlark/beacon/internal/state"
)

// Input feeds one already-decoded inbound datagram to the engine
// (spec.md §4.5). fromIP/fromPort identify the sender so queries whose
// source port is not the mDNS port can be answered directly by unicast
// instead of through the shared-response aggregator.
// Malformed content inside msg was already rejected by message.Decode;
// Input itself never returns an error — drops are reported only through
// metrics, matching spec.md §7's "never panic on untrusted input".
func (r *Responder) Input(msg *message.Message, fromIP net.IP, fromPort int, nowMs int64) {
	r.clockMs = nowMs
	if r.shuttingDown {
		return
	}

	if r.sourceFilter != nil && !r.sourceFilterDisabled && !r.sourceFilter.IsValid(fromIP) {
		return
	}
	if r.rateLimiter != nil && !r.rateLimiter.Allow(fromIP.String(), nowMs) {
		r.metrics.PacketsRateLimited.Inc()
		return
	}
	r.metrics.PacketsDecoded.Inc()

	if msg.Header.IsQuery() {
		r.handleQuestions(msg, fromIP, fromPort, nowMs)
		r.handleProbeAuthorities(msg, nowMs)
		return
	}
	r.handleAnswers(msg, nowMs)
}

// handleQuestions answers every question this Responder owns a match for,
// applying known-answer suppression against the querier's Answers section
// (RFC 6762 §7.1) and routing the reply either to the unicast source (for
// a query sent from a port other than 5353) or into the shared multicast
// aggregator. The question's unicast-response bit is not consulted.
func (r *Responder) handleQuestions(msg *message.Message, fromIP net.IP, fromPort int, nowMs int64) {
	for _, q := range msg.Questions {
		matches := r.ownedMatchesForQuestion(q.Name, q.Type)
		if len(matches) == 0 {
			continue
		}
		matches = suppressKnownAnswers(matches, msg.Answers)
		if len(matches) == 0 {
			continue
		}
		r.queueResponse(matches, r.dnssdAdditionals(matches), fromIP, fromPort, nowMs)
	}
}

// dnssdAdditionals implements the DNS-SD "glue" convention (spec.md §4.3,
// RFC 6763 §12): a PTR answer carries its instance's SRV and TXT as
// additionals, transitively followed by the SRV target's A/AAAA; an SRV
// answer on its own carries just its target's A/AAAA.
func (r *Responder) dnssdAdditionals(matches []records.Record) []records.Record {
	var out []records.Record
	for _, m := range matches {
		switch rd := m.RData.(type) {
		case message.PTRData:
			srvs := r.ownedMatchesForQuestion(rd.Name, protocol.TypeSRV)
			out = append(out, srvs...)
			out = append(out, r.ownedMatchesForQuestion(rd.Name, protocol.TypeTXT)...)
			out = append(out, r.addressAdditionals(srvs)...)
		case message.SRVData:
			out = append(out, r.ownedMatchesForQuestion(rd.Target, protocol.TypeA)...)
			out = append(out, r.ownedMatchesForQuestion(rd.Target, protocol.TypeAAAA)...)
		}
	}
	return out
}

// addressAdditionals resolves each SRV record's target to its owned
// A/AAAA records, for the PTR-answer glue chain above.
func (r *Responder) addressAdditionals(srvs []records.Record) []records.Record {
	var out []records.Record
	for _, srv := range srvs {
		data, ok := srv.RData.(message.SRVData)
		if !ok {
			continue
		}
		out = append(out, r.ownedMatchesForQuestion(data.Target, protocol.TypeA)...)
		out = append(out, r.ownedMatchesForQuestion(data.Target, protocol.TypeAAAA)...)
	}
	return out
}

// ownedMatchesForQuestion returns this Responder's owned records matching
// name/typ, expanding protocol.TypeANY to every type owned for name.
// Records still in Probe or Conflict have not earned the right to answer
// yet (spec.md §4.3: only Published, and Announce-state as answers, are
// eligible).
func (r *Responder) ownedMatchesForQuestion(name string, typ protocol.RecordType) []records.Record {
	canon := message.CanonicalName(name)
	var out []records.Record
	for _, key := range r.store.AllOwnedKeys() {
		if key.Name != canon {
			continue
		}
		if typ != protocol.TypeANY && key.Type != typ {
			continue
		}
		if phase, tracked := r.scheduler.Phase(key); tracked && phase != state.PhaseAnnounce && phase != state.PhasePublished {
			continue
		}
		out = append(out, ownedRecords(r.store, key)...)
	}
	return out
}

// suppressKnownAnswers drops any candidate already present, with the
// same rdata and a remaining TTL at least half its nominal value, in the
// querier's known-answer section (RFC 6762 §7.1).
func suppressKnownAnswers(candidates []records.Record, known []message.ResourceRecord) []records.Record {
	out := candidates[:0:0]
	for _, c := range candidates {
		suppressed := false
		for _, k := range known {
			if k.Type != c.Type || !message.EqualNames(k.Name, c.Name) {
				continue
			}
			if !recordDataEqual(c, k) {
				continue
			}
			nominal := c.TTL
			if uint64(k.TTL)*2 >= uint64(nominal) {
				suppressed = true
			}
			break
		}
		if !suppressed {
			out = append(out, c)
		}
	}
	return out
}

// nominalTTL approximates the advertised TTL for a record type, per RFC
// 6762 §10: records.Store.Lookup reports a cached record's remaining TTL
// in Record.TTL and does not return its nominal TTL, so the known-answer
// list attached to outbound questions estimates nominal by type instead.
func nominalTTL(t protocol.RecordType) uint32 {
	if t == protocol.TypeA || t == protocol.TypeAAAA {
		return protocol.TTLHostname
	}
	return protocol.TTLService
}

func recordDataEqual(rec records.Record, rr message.ResourceRecord) bool {
	a, errA := message.RDataBytes(rec.Type, rec.RData)
	b, errB := message.RDataBytes(rr.Type, rr.RData)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}

// queueResponse merges matches into the pending aggregator for the
// appropriate destination: immediate unicast if fromPort isn't the mDNS
// port (a direct/legacy query), otherwise a jitter-delayed multicast
// response merged with any other answers already queued for this tick
// (RFC 6762 §6).
func (r *Responder) queueResponse(matches, additionals []records.Record, fromIP net.IP, fromPort int, nowMs int64) {
	var dest net.Addr
	destKey := "multicast"
	dueMs := nowMs + r.jitter.Duration(protocol.ResponseDelayMin, protocol.ResponseDelayMax).Milliseconds()

	if fromPort != protocol.Port {
		dest = &net.UDPAddr{IP: fromIP, Port: fromPort}
		destKey = fromIP.String() + ":" + strconv.Itoa(fromPort)
		dueMs = nowMs
	} else {
		dest = r.multicastGroup()
	}

	pr, ok := r.pending[destKey]
	if !ok {
		pr = &pendingResponse{dest: dest, dueMs: dueMs, answers: make(map[records.Key]Record), additionals: make(map[records.Key]Record)}
		r.pending[destKey] = pr
	}
	for _, rec := range matches {
		pr.answers[rec.Key()] = rec
	}
	for _, rec := range additionals {
		key := rec.Key()
		if _, isAnswer := pr.answers[key]; isAnswer {
			continue
		}
		pr.additionals[key] = rec
	}
}

// handleAnswers learns from a response's Answers/Additionals: cache
// records, notify registered queries, detect conflicts against owned
// Published records, and suppress any pending aggregated response this
// packet already satisfies (RFC 6762 §7.1's passive observation rule).
func (r *Responder) handleAnswers(msg *message.Message, nowMs int64) {
	for _, section := range [][]message.ResourceRecord{msg.Answers, msg.Additionals} {
		for _, rr := range section {
			rec := records.Record{Name: rr.Name, Type: rr.Type, Class: rr.PlainClass(), TTL: rr.TTL, Unique: rr.CacheFlush(), RData: rr.RData}
			r.checkAnswerConflict(rec, nowMs)
			r.store.PutCached(rec, rr.CacheFlush(), nowMs)
			r.tracker.Deliver(rec, rec.TTL == 0)
			if r.recordCb != nil {
				r.recordCb(rec)
			}
			r.suppressPendingFor(rec)
		}
	}
}

// checkAnswerConflict implements the unconditional post-probe conflict
// rule (RFC 6762 §9): once a record is Announced or Published, any
// different-rdata answer for the same unique key is a conflict with no
// tiebreak, unlike the Probe-phase rule in handleProbeAuthorities.
func (r *Responder) checkAnswerConflict(rec records.Record, nowMs int64) {
	key := rec.Key()
	phase, tracked := r.scheduler.Phase(key)
	if !tracked || phase == state.PhaseConflict || phase == state.PhaseProbe {
		return
	}
	for _, owned := range ownedRecords(r.store, key) {
		if !owned.Unique {
			continue
		}
		if recordsSameRData(owned, rec) {
			continue
		}
		r.declareConflict(key)
		return
	}
}

func recordsSameRData(a, b records.Record) bool {
	ab, errA := message.RDataBytes(a.Type, a.RData)
	bb, errB := message.RDataBytes(b.Type, b.RData)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

func (r *Responder) declareConflict(key records.Key) {
	r.scheduler.Conflict(key)
	r.metrics.Conflicts.Inc()
	for _, idx := range r.store.OwnedIndices(key) {
		r.store.Remove(idx)
	}
	if r.conflictCb != nil {
		r.conflictCb(key.Name, key.Type)
	}
}

// suppressPendingFor cancels any queued multicast response this
// already-observed answer renders redundant (RFC 6762 §7.1): if another
// responder put the same answer on the wire first, ours doesn't need to.
func (r *Responder) suppressPendingFor(rec records.Record) {
	pr, ok := r.pending["multicast"]
	if !ok {
		return
	}
	key := rec.Key()
	if pending, ok := pr.answers[key]; ok && recordsSameRData(pending, rec) {
		delete(pr.answers, key)
	}
}

// handleProbeAuthorities implements RFC 6762 §8.2's simultaneous-probe
// tiebreak: an inbound probe's Authority section proposes the same
// records the prober intends to claim. If one of our own keys is
// currently probing for the same name/type and our candidate precedes
// (loses to) theirs, we lost the race and must report a conflict rather
// than complete our own probe.
func (r *Responder) handleProbeAuthorities(msg *message.Message, nowMs int64) {
	for _, rr := range msg.Authorities {
		key := records.Key{Name: message.CanonicalName(rr.Name), Type: rr.Type}
		phase, tracked := r.scheduler.Phase(key)
		if !tracked || phase != state.PhaseProbe {
			continue
		}
		for _, owned := range ownedRecords(r.store, key) {
			if !owned.Unique {
				continue
			}
			ourBytes, err := message.RDataBytes(owned.Type, owned.RData)
			if err != nil {
				continue
			}
			theirBytes, err := message.RDataBytes(rr.Type, rr.RData)
			if err != nil {
				continue
			}
			ours := state.Candidate{Class: protocol.ClassIN, Type: owned.Type, RData: ourBytes}
			theirs := state.Candidate{Class: rr.PlainClass(), Type: rr.Type, RData: theirBytes}
			if state.Tiebreak(ours, theirs) < 0 {
				r.declareConflict(key)
			}
		}
	}
}
