package ba

import (
	"github.com/danmuck/bactl/internal/observability"
	"github.com/danmuck/bactl/internal/wire"
)

// setupTimeout fires when the peer never answered our AddBA request. The
// pending record dies silently; the delayed flag tells policy to back off
// before the next attempt.
func (e *Engine) setupTimeout(ts *TxStream, gen uint64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.Pending.armed(gen) {
		return
	}
	observability.RecordTimeout("setup")
	e.log.Info().Str("peer", ts.Peer.String()).Uint8("tid", ts.TID).
		Msg("addba setup timed out")
	ts.ReqInProgress = false
	ts.ReqDelayed = true
	ts.Pending.expire()
}

// txInactivityTimeout ends an idle transmit-side agreement. The DelBA is
// emitted unconditionally once the armed record is confirmed.
func (e *Engine) txInactivityTimeout(ts *TxStream, gen uint64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.Admitted.armed(gen) {
		return
	}
	observability.RecordTimeout("tx_inactivity")
	e.log.Info().Str("peer", ts.Peer.String()).Uint8("tid", ts.TID).
		Msg("transmit agreement idle, tearing down")
	tid := ts.Admitted.Params.TID
	ts.Admitted.expire()
	if ts.Pending.Valid {
		ts.Pending.deactivate()
	}
	ts.UsingBA = false
	_ = e.sendDelBA(ts.Peer, tid, DirTx, wire.ReasonTimeout)
}

// rxInactivityTimeout ends an idle receive-side agreement.
func (e *Engine) rxInactivityTimeout(rs *RxStream, gen uint64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Admitted.armed(gen) {
		return
	}
	observability.RecordTimeout("rx_inactivity")
	e.log.Info().Str("peer", rs.Peer.String()).Uint8("tid", rs.TID).
		Msg("receive agreement idle, tearing down")
	tid := rs.Admitted.Params.TID
	rs.Admitted.expire()
	_ = e.sendDelBA(rs.Peer, tid, DirRx, wire.ReasonTimeout)
}
