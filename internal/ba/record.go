package ba

import (
	"time"

	"github.com/danmuck/bactl/internal/wire"
)

// Record is the negotiated or in-flight agreement state for one direction of
// one traffic stream. The slot lives as long as the owning stream; lifecycle
// is expressed purely through Valid and field resets.
type Record struct {
	Valid       bool
	DialogToken uint8
	Params      wire.ParamSet
	Timeout     uint16
	StartSeqCtl uint16

	// gen guards the armed timer. Every deactivate bumps it, so a callback
	// scheduled against an older generation observes the mismatch under the
	// stream lock and must no-op. This is what makes deactivate-then-reuse
	// safe without blocking on a running callback.
	gen   uint64
	timer TimerHandle
}

// StartSeq returns the 12-bit start sequence number.
func (r *Record) StartSeq() uint16 {
	return wire.SeqFromCtl(r.StartSeqCtl)
}

// activate marks the record valid and, for a non-zero timeout, arms a one-shot
// timer. fire receives the generation it was armed under and must re-check it
// via armed() once it holds the stream lock.
func (r *Record) activate(svc TimerService, timeout time.Duration, fire func(gen uint64)) {
	r.Valid = true
	if timeout == 0 {
		return
	}
	gen := r.gen
	r.timer = svc.Schedule(timeout, func() { fire(gen) })
}

// deactivate clears the valid flag and cancels any armed timer. Safe on an
// already-inactive record. Callers hold the stream lock, which together with
// the generation bump gives cancel-then-join semantics: once deactivate
// returns, a late-firing callback can no longer observe this incarnation.
func (r *Record) deactivate() {
	r.Valid = false
	r.gen++
	if r.timer != nil {
		r.timer.Cancel()
		r.timer = nil
	}
}

// expire is deactivation from inside the record's own timer callback: the
// timer already fired, so there is nothing to cancel.
func (r *Record) expire() {
	r.Valid = false
	r.gen++
	r.timer = nil
}

// armed reports whether the record still holds the agreement a timer callback
// was scheduled against.
func (r *Record) armed(gen uint64) bool {
	return r.Valid && r.gen == gen
}

// Reset zeroes the record fields and releases any timer.
func (r *Record) Reset() {
	r.deactivate()
	r.DialogToken = 0
	r.Params = wire.ParamSet{}
	r.Timeout = 0
	r.StartSeqCtl = 0
}
