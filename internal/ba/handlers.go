package ba

import (
	"fmt"

	"github.com/danmuck/bactl/internal/observability"
	"github.com/danmuck/bactl/internal/wire"
)

// HandleFrame dispatches one inbound block-ack action frame. The returned
// error exists purely for the caller's logging: malformed input and protocol
// disagreement are both resolved here, never propagated as faults.
func (e *Engine) HandleFrame(frame []byte) error {
	category, action, err := wire.ActionCode(frame)
	if err != nil {
		observability.RecordFrameRx("UNKNOWN", "short")
		return err
	}
	if category != wire.CategoryBlockAck {
		observability.RecordFrameRx("UNKNOWN", "category")
		return wire.ErrWrongCategory
	}
	switch action {
	case wire.ActionAddBAReq:
		return e.onAddBAReq(frame)
	case wire.ActionAddBARsp:
		return e.onAddBARsp(frame)
	case wire.ActionDelBA:
		return e.onDelBA(frame)
	default:
		observability.RecordFrameRx(wire.ActionName(action), "unknown")
		return fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}
}

// onAddBAReq handles a peer-initiated negotiation. The responder decides
// synchronously: admit and answer SUCCESS, or answer a rejection status. The
// rejection path echoes a record synthesized from the request so the peer
// always receives a well-formed response.
func (e *Engine) onAddBAReq(frame []byte) error {
	hdr, req, err := wire.DecodeAddBAReq(frame)
	if err != nil {
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBAReq), "short")
		return err
	}
	peer := hdr.Addr2
	evt := e.log.With().Str("peer", peer.String()).Uint8("tid", req.Params.TID).Logger()

	caps := e.Capabilities()
	if !caps.QoSActive || !caps.AggregationEnabled {
		evt.Warn().Msg("refusing addba request, capability not ready")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBAReq), "refused")
		e.refuseAddBA(peer, req, wire.StatusRefused)
		return ErrCapabilityInactive
	}

	rs, ok := e.dir.RxStream(peer, req.Params.TID, true)
	if !ok {
		evt.Warn().Msg("refusing addba request, no receive stream")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBAReq), "refused")
		e.refuseAddBA(peer, req, wire.StatusRefused)
		return ErrUnknownStream
	}

	if req.Params.Policy == wire.PolicyDelayed {
		evt.Warn().Msg("refusing addba request, delayed policy unsupported")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBAReq), "invalid_param")
		e.refuseAddBA(peer, req, wire.StatusInvalidParam)
		return ErrInvalidPolicy
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	rec := &rs.Admitted
	rec.deactivate()
	rec.DialogToken = req.DialogToken
	rec.Params = req.Params
	rec.Timeout = req.Timeout
	rec.StartSeqCtl = req.StartSeqCtl
	rec.Params.BufferSize = e.bufferSize(caps)
	rec.activate(e.timers, tuDuration(rec.Timeout), func(gen uint64) {
		e.rxInactivityTimeout(rs, gen)
	})

	evt.Info().Uint8("token", rec.DialogToken).Uint16("buffer", rec.Params.BufferSize).
		Uint16("timeout", rec.Timeout).Msg("admitted addba request")
	observability.RecordFrameRx(wire.ActionName(wire.ActionAddBAReq), "admitted")
	return e.sendAddBARsp(peer, rec, wire.StatusSuccess)
}

// refuseAddBA answers a request we cannot admit. No server-side record exists
// on this path, so the response body is built from the request itself, with
// the policy forced back to immediate.
func (e *Engine) refuseAddBA(peer wire.Addr, req wire.AddBAReq, status uint16) {
	rec := Record{
		DialogToken: req.DialogToken,
		Params:      req.Params,
		Timeout:     req.Timeout,
	}
	rec.Params.Policy = wire.PolicyImmediate
	_ = e.sendAddBARsp(peer, &rec, status)
}

// onAddBARsp handles the peer's answer to our request: promote the pending
// record to admitted on success, or back off. Every mismatch short of a
// duplicate response is answered with DelBA(UNKNOWN_BA).
func (e *Engine) onAddBARsp(frame []byte) error {
	hdr, rsp, err := wire.DecodeAddBARsp(frame)
	if err != nil {
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "short")
		return err
	}
	peer := hdr.Addr2
	tid := rsp.Params.TID
	evt := e.log.With().Str("peer", peer.String()).Uint8("tid", tid).Logger()

	caps := e.Capabilities()
	if !caps.QoSActive || !caps.AggregationEnabled || !caps.AMPDUEnabled {
		evt.Warn().Msg("rejecting addba response, capability not ready")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "rejected")
		_ = e.sendDelBA(peer, tid, DirTx, wire.ReasonUnknownAgreement)
		return ErrCapabilityInactive
	}

	ts, ok := e.dir.TxStream(peer, tid, false)
	if !ok {
		evt.Warn().Msg("rejecting addba response, no transmit stream")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "rejected")
		_ = e.sendDelBA(peer, tid, DirTx, wire.ReasonUnknownAgreement)
		return ErrUnknownStream
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.ReqInProgress = false
	pending := &ts.Pending
	admitted := &ts.Admitted

	if admitted.Valid {
		// Agreement already set up; later responses are noise, not protocol
		// errors worth answering.
		evt.Debug().Msg("dropping duplicate addba response")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "dropped")
		return ErrDuplicateResponse
	}
	if !pending.Valid || rsp.DialogToken != pending.DialogToken {
		evt.Warn().Uint8("token", rsp.DialogToken).Uint8("pending", pending.DialogToken).
			Msg("rejecting addba response, no matching negotiation")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "rejected")
		_ = e.sendDelBA(peer, tid, DirTx, wire.ReasonUnknownAgreement)
		return ErrStaleDialogToken
	}
	pending.deactivate()

	if rsp.Status != wire.StatusSuccess {
		evt.Info().Str("status", wire.StatusName(rsp.Status)).
			Msg("addba refused by peer, delaying next attempt")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "refused")
		ts.ReqDelayed = true
		return nil
	}

	if rsp.Params.Policy == wire.PolicyDelayed {
		// A success carrying the delayed policy is still a failed setup for
		// us; end the exchange and back off.
		evt.Warn().Msg("peer answered with delayed policy, ending agreement")
		observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "rejected")
		ts.ReqDelayed = true
		admitted.deactivate()
		_ = e.sendDelBA(peer, tid, DirTx, wire.ReasonAgreementEnded)
		return ErrInvalidPolicy
	}

	// Promote. The peer's returned parameter set is stored as-is; the start
	// sequence is the one we proposed.
	admitted.DialogToken = rsp.DialogToken
	admitted.Timeout = rsp.Timeout
	admitted.StartSeqCtl = pending.StartSeqCtl
	admitted.Params = rsp.Params
	admitted.deactivate()
	admitted.activate(e.timers, tuDuration(rsp.Timeout), func(gen uint64) {
		e.txInactivityTimeout(ts, gen)
	})
	ts.UsingBA = true

	evt.Info().Uint8("token", admitted.DialogToken).Uint16("buffer", admitted.Params.BufferSize).
		Uint16("timeout", admitted.Timeout).Msg("addba admitted")
	observability.RecordFrameRx(wire.ActionName(wire.ActionAddBARsp), "admitted")
	return nil
}

// onDelBA handles a peer teardown. The initiator bit selects which local side
// dies: a transmit-direction initiator tears down our receive agreement, a
// receive-direction initiator tears down our transmit agreement.
func (e *Engine) onDelBA(frame []byte) error {
	hdr, del, err := wire.DecodeDelBA(frame)
	if err != nil {
		observability.RecordFrameRx(wire.ActionName(wire.ActionDelBA), "short")
		return err
	}
	caps := e.Capabilities()
	if !caps.QoSActive || !caps.AggregationEnabled {
		observability.RecordFrameRx(wire.ActionName(wire.ActionDelBA), "rejected")
		return ErrCapabilityInactive
	}

	peer := hdr.Addr2
	tid := del.Params.TID
	evt := e.log.With().Str("peer", peer.String()).Uint8("tid", tid).
		Str("reason", wire.ReasonName(del.Reason)).Logger()

	if del.Params.Initiator {
		rs, ok := e.dir.RxStream(peer, tid, false)
		if !ok {
			evt.Warn().Msg("delba for unknown receive stream")
			observability.RecordFrameRx(wire.ActionName(wire.ActionDelBA), "no_stream")
			return ErrUnknownStream
		}
		rs.mu.Lock()
		rs.Admitted.deactivate()
		rs.mu.Unlock()
		evt.Info().Msg("peer tore down receive-side agreement")
	} else {
		ts, ok := e.dir.TxStream(peer, tid, false)
		if !ok {
			evt.Warn().Msg("delba for unknown transmit stream")
			observability.RecordFrameRx(wire.ActionName(wire.ActionDelBA), "no_stream")
			return ErrUnknownStream
		}
		ts.mu.Lock()
		ts.UsingBA = false
		ts.ReqInProgress = false
		ts.ReqDelayed = false
		ts.Pending.deactivate()
		ts.Admitted.deactivate()
		ts.mu.Unlock()
		evt.Info().Msg("peer tore down transmit-side agreement")
	}
	observability.RecordFrameRx(wire.ActionName(wire.ActionDelBA), "ok")
	observability.RecordTeardown("peer")
	return nil
}
