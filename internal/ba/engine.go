package ba

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bactl/internal/observability"
	"github.com/danmuck/bactl/internal/wire"
)

var (
	ErrCapabilityInactive = errors.New("ba: aggregation capability inactive")
	ErrUnknownStream      = errors.New("ba: no matching traffic stream")
	ErrInvalidPolicy      = errors.New("ba: unsupported acknowledgement policy")
	ErrStaleDialogToken   = errors.New("ba: response does not match pending dialog token")
	ErrDuplicateResponse  = errors.New("ba: agreement already admitted")
	ErrUnknownAction      = errors.New("ba: unknown block-ack action")
)

// Buffer sizes negotiated per link capability.
const (
	bufferSizeSingle  uint16 = 1
	bufferSizeDefault uint16 = 32
)

// Capabilities gates negotiation. A request or teardown needs QoS and
// aggregation active; accepting a response additionally needs AMPDU enabled.
// SingleFrameOnly clamps the negotiated buffer to one frame.
type Capabilities struct {
	QoSActive          bool
	AggregationEnabled bool
	AMPDUEnabled       bool
	SingleFrameOnly    bool
}

// Config carries the engine's station identity and setup timing.
type Config struct {
	LocalAddr    wire.Addr
	BSSID        wire.Addr
	SetupTimeout time.Duration
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		SetupTimeout: 200 * time.Millisecond,
	}
}

// Engine drives block-ack session negotiation for every stream the directory
// resolves. All record mutation, timer arming, and frame emission for one
// stream happen under that stream's lock; streams are independent of each
// other.
type Engine struct {
	cfg    Config
	dir    Directory
	tp     FrameTransport
	timers TimerService
	log    zerolog.Logger

	capMu sync.RWMutex
	caps  Capabilities
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cfg Config, dir Directory, tp FrameTransport, timers TimerService) *Engine {
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = DefaultConfig().SetupTimeout
	}
	if timers == nil {
		timers = SystemTimers()
	}
	return &Engine{
		cfg:    cfg,
		dir:    dir,
		tp:     tp,
		timers: timers,
		log:    log.With().Str("component", "ba").Str("addr", cfg.LocalAddr.String()).Logger(),
	}
}

// SetCapabilities replaces the engine's capability gates.
func (e *Engine) SetCapabilities(c Capabilities) {
	e.capMu.Lock()
	defer e.capMu.Unlock()
	e.caps = c
}

// Capabilities returns the current capability gates.
func (e *Engine) Capabilities() Capabilities {
	e.capMu.RLock()
	defer e.capMu.RUnlock()
	return e.caps
}

func (e *Engine) bufferSize(caps Capabilities) uint16 {
	if caps.SingleFrameOnly {
		return bufferSizeSingle
	}
	return bufferSizeDefault
}

// Initiate resolves the transmit stream for (peer, tid) and starts an AddBA
// negotiation on it.
func (e *Engine) Initiate(peer wire.Addr, tid uint8, policy wire.Policy, overwrite bool) error {
	ts, ok := e.dir.TxStream(peer, tid, true)
	if !ok {
		return ErrUnknownStream
	}
	return e.InitAddBA(ts, policy, overwrite)
}

// InitAddBA starts a negotiation on the transmit stream: bumps the dialog
// token, arms the setup timer, and emits an AddBA request. A pending
// negotiation already in flight is left alone unless overwrite is set.
func (e *Engine) InitAddBA(ts *TxStream, policy wire.Policy, overwrite bool) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	pending := &ts.Pending
	if pending.Valid && !overwrite {
		e.log.Debug().Str("peer", ts.Peer.String()).Uint8("tid", ts.TID).
			Msg("addba already pending, not overwriting")
		return nil
	}
	caps := e.Capabilities()

	pending.deactivate()
	pending.DialogToken++
	pending.Params = wire.ParamSet{
		AMSDUSupported: false,
		Policy:         policy,
		TID:            ts.TID,
		BufferSize:     e.bufferSize(caps),
	}
	pending.Timeout = 0
	pending.StartSeqCtl = wire.SeqCtl((ts.CurSeq + 3) % 4096)
	ts.ReqInProgress = true
	pending.activate(e.timers, e.cfg.SetupTimeout, func(gen uint64) {
		e.setupTimeout(ts, gen)
	})

	return e.sendAddBAReq(ts.Peer, pending)
}

// TeardownTx ends the transmit-side agreement. A DelBA is emitted only when a
// pending or admitted record was actually valid; the admitted record's
// parameters win when both existed.
func (e *Engine) TeardownTx(ts *TxStream) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	src := &ts.Pending
	send := false
	if ts.Pending.Valid {
		ts.Pending.deactivate()
		send = true
	}
	if ts.Admitted.Valid {
		ts.Admitted.deactivate()
		src = &ts.Admitted
		send = true
	}
	ts.UsingBA = false
	if !send {
		return nil
	}
	observability.RecordTeardown("local")
	return e.sendDelBA(ts.Peer, src.Params.TID, DirTx, wire.ReasonAgreementEnded)
}

// TeardownRx ends the receive-side agreement, emitting a DelBA if one was
// active.
func (e *Engine) TeardownRx(rs *RxStream) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Admitted.Valid {
		return nil
	}
	rs.Admitted.deactivate()
	observability.RecordTeardown("local")
	return e.sendDelBA(rs.Peer, rs.TID, DirRx, wire.ReasonAgreementEnded)
}

// Frame emission. State has already advanced by the time these run; a
// transport failure only costs the wire notification, which the peer's own
// inactivity timeout recovers from.

func (e *Engine) sendAddBAReq(dst wire.Addr, rec *Record) error {
	frame := wire.EncodeAddBAReq(dst, e.cfg.LocalAddr, e.cfg.BSSID, wire.AddBAReq{
		DialogToken: rec.DialogToken,
		Params:      rec.Params,
		Timeout:     rec.Timeout,
		StartSeqCtl: rec.StartSeqCtl,
	})
	return e.send(frame, dst, wire.ActionName(wire.ActionAddBAReq))
}

func (e *Engine) sendAddBARsp(dst wire.Addr, rec *Record, status uint16) error {
	frame := wire.EncodeAddBARsp(dst, e.cfg.LocalAddr, e.cfg.BSSID, wire.AddBARsp{
		DialogToken: rec.DialogToken,
		Status:      status,
		Params:      rec.Params,
		Timeout:     rec.Timeout,
	})
	return e.send(frame, dst, wire.ActionName(wire.ActionAddBARsp))
}

func (e *Engine) sendDelBA(dst wire.Addr, tid uint8, dir Direction, reason uint16) error {
	frame := wire.EncodeDelBA(dst, e.cfg.LocalAddr, e.cfg.BSSID, wire.DelBA{
		Params: wire.DelParamSet{
			Initiator: dir == DirTx,
			TID:       tid,
		},
		Reason: reason,
	})
	e.log.Info().Str("peer", dst.String()).Uint8("tid", tid).
		Str("direction", dir.String()).Str("reason", wire.ReasonName(reason)).
		Msg("sending delba")
	return e.send(frame, dst, wire.ActionName(wire.ActionDelBA))
}

func (e *Engine) send(frame []byte, dst wire.Addr, action string) error {
	observability.RecordFrameTx(action)
	if err := e.tp.Send(frame, dst); err != nil {
		e.log.Warn().Err(err).Str("peer", dst.String()).Str("action", action).
			Msg("frame emission failed")
		return err
	}
	return nil
}

func tuDuration(v uint16) time.Duration {
	return time.Duration(v) * time.Millisecond
}
