package responder

import (
	"github.com/crowlark/beacon/internal/message"
	"github.com/crowlark/beacon/internal/protocol"
	"github.com/crowlark/beacon/internal/records"
	"github.com/crowlark/beacon/internal/state"
)

// Output drains one pending outbound message, if any is due by nowMs. The
// caller loops on Output until it returns ok=false, then calls Sleep to
// learn when to call back (spec.md §4.5). Call order within a single
// invocation: first scheduled probe/announce/goodbye actions, then due
// query questions, then aggregated query responses.
func (r *Responder) Output(nowMs int64) (OutMessage, bool) {
	r.clockMs = nowMs

	if len(r.outQueue) == 0 {
		r.renderScheduledActions(nowMs)
		r.renderDueQuestions(nowMs)
		r.renderDueResponses(nowMs)
	}

	if len(r.outQueue) == 0 {
		return OutMessage{}, false
	}
	out := r.outQueue[0]
	r.outQueue = r.outQueue[1:]
	return out, true
}

// renderScheduledActions converts every due state.Action into an encoded
// multicast packet, queuing it on outQueue. Goodbye actions that complete
// their final attempt also remove the owned records from the store.
func (r *Responder) renderScheduledActions(nowMs int64) {
	for _, action := range r.scheduler.Due(nowMs) {
		msg := r.buildActionMessage(action)
		buf, err := r.encodeWithSplit(msg)
		if err != nil {
			r.logger.Debug().Err(err).Str("key", action.Key.Name).Msg("dropping unencodable scheduled message")
			continue
		}
		for _, packet := range buf {
			r.outQueue = append(r.outQueue, OutMessage{Packet: packet, Dest: r.multicastGroup()})
		}
		r.metrics.MessagesSent.Inc()

		if action.Phase == state.PhaseGoodbye && action.Attempt >= protocol.GoodbyeCount {
			r.finishWithdrawal(action.Key)
		}
	}
}

func (r *Responder) finishWithdrawal(key records.Key) {
	for _, idx := range r.withdrawing[key] {
		r.store.Remove(idx)
	}
	delete(r.withdrawing, key)
}

// buildActionMessage renders the wire message for a single scheduled
// action: a probe query carries the candidate record(s) as Authorities
// (RFC 6762 §8.1); announce and goodbye carry them as Answers (§8.3, §10.1).
func (r *Responder) buildActionMessage(action state.Action) *message.Message {
	recs := ownedRecords(r.store, action.Key)
	rrs := make([]message.ResourceRecord, 0, len(recs))
	for _, rec := range recs {
		ttl := rec.TTL
		if action.Phase == state.PhaseGoodbye {
			ttl = 0
		}
		rrs = append(rrs, recordToRR(rec, ttl))
	}

	msg := &message.Message{}
	switch action.Phase {
	case state.PhaseProbe:
		msg.Questions = []message.Question{{Name: action.Key.Name, Type: action.Key.Type, Class: protocol.ClassIN}}
		msg.Authorities = rrs
	default: // Announce, Goodbye
		msg.Header.Flags = protocol.FlagQR | protocol.FlagAA
		msg.Answers = rrs
	}
	return msg
}

// renderDueQuestions emits the next outbound question for every registered
// query whose backoff deadline has elapsed (spec.md §4.3, §4.4), attaching
// known answers whose remaining TTL is still at least half of nominalTTL
// for their type (RFC 6762 §7.1) so responders can suppress redundant
// replies. The record's own advertised TTL is not used for this check.
func (r *Responder) renderDueQuestions(nowMs int64) {
	for _, dq := range r.tracker.DueQuestions(r.store, nowMs) {
		msg := &message.Message{Questions: []message.Question{{Name: dq.Name, Type: dq.Type, Class: protocol.ClassIN}}}
		for _, rec := range dq.KnownAnswers {
			if uint64(rec.TTL)*2 < uint64(nominalTTL(rec.Type)) {
				continue
			}
			msg.Answers = append(msg.Answers, recordToRR(rec, rec.TTL))
		}
		buf, err := r.encodeWithSplit(msg)
		if err != nil {
			continue
		}
		for _, packet := range buf {
			r.outQueue = append(r.outQueue, OutMessage{Packet: packet, Dest: r.multicastGroup()})
		}
		r.metrics.MessagesSent.Inc()
	}
}

// renderDueResponses flushes every pending aggregated response whose
// delay has elapsed and whose answer set was not entirely suppressed by
// matching answers observed on the wire first (RFC 6762 §6, §7.1). A due
// response with no answers left is discarded.
func (r *Responder) renderDueResponses(nowMs int64) {
	for destKey, pr := range r.pending {
		if pr.dueMs > nowMs {
			continue
		}
		if len(pr.answers) == 0 {
			delete(r.pending, destKey)
			continue
		}
		msg := &message.Message{Header: message.Header{Flags: protocol.FlagQR | protocol.FlagAA}}
		for _, rec := range pr.answers {
			msg.Answers = append(msg.Answers, recordToRR(rec, rec.TTL))
		}
		for _, rec := range pr.additionals {
			msg.Additionals = append(msg.Additionals, recordToRR(rec, rec.TTL))
		}
		buf, err := r.encodeWithSplit(msg)
		if err == nil {
			for _, packet := range buf {
				r.outQueue = append(r.outQueue, OutMessage{Packet: packet, Dest: pr.dest})
			}
			r.metrics.MessagesSent.Inc()
		}
		delete(r.pending, destKey)
	}
}

func ownedRecords(store *records.Store, key records.Key) []records.Record {
	var out []records.Record
	for _, idx := range store.OwnedIndices(key) {
		if rec, ok := store.Get(idx); ok {
			out = append(out, rec)
		}
	}
	return out
}

func recordToRR(rec records.Record, ttl uint32) message.ResourceRecord {
	class := rec.Class
	if rec.Unique {
		class |= protocol.ClassCacheFlushBit
	}
	return message.ResourceRecord{Name: rec.Name, Type: rec.Type, Class: class, TTL: ttl, RData: rec.RData}
}

// encodeWithSplit encodes msg, splitting the Answers section recursively
// and marking TC on every partial message but the last if the encoded
// result exceeds protocol.MaxMessageSize (spec.md §4.1, §7).
func (r *Responder) encodeWithSplit(msg *message.Message) ([][]byte, error) {
	buf, err := message.Encode(msg)
	if err == nil {
		return [][]byte{buf}, nil
	}
	if !isOversize(err) {
		return nil, err
	}
	if len(msg.Answers) <= 1 {
		return nil, err
	}

	mid := len(msg.Answers) / 2
	head := *msg
	head.Answers = msg.Answers[:mid]
	head.Header.Flags |= protocol.FlagTC
	tail := *msg
	tail.Answers = msg.Answers[mid:]

	headBufs, err := r.encodeWithSplit(&head)
	if err != nil {
		return nil, err
	}
	tailBufs, err := r.encodeWithSplit(&tail)
	if err != nil {
		return nil, err
	}
	return append(headBufs, tailBufs...), nil
}
