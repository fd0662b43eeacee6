package ba

import (
	"sync"

	"github.com/danmuck/bactl/internal/wire"
)

// Direction selects which side of a traffic stream an operation targets.
type Direction uint8

const (
	DirTx Direction = iota
	DirRx
)

func (d Direction) String() string {
	if d == DirTx {
		return "tx"
	}
	return "rx"
}

// TxStream is the transmit side of one (peer, TID) traffic stream. The engine
// mutates it only under mu; the same lock serializes inbound frames, timer
// callbacks, and local policy calls for this stream.
type TxStream struct {
	mu sync.Mutex

	Peer wire.Addr
	TID  uint8

	Pending  Record
	Admitted Record

	ReqInProgress bool
	ReqDelayed    bool
	UsingBA       bool

	CurSeq uint16
}

// NewTxStream returns an idle transmit stream record slot.
func NewTxStream(peer wire.Addr, tid uint8) *TxStream {
	return &TxStream{Peer: peer, TID: tid}
}

// SetCurrentSeq records the transmit sequence counter the data path is at.
func (t *TxStream) SetCurrentSeq(seq uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CurSeq = seq % 4096
}

// ResetRecords returns the stream to idle, releasing any armed timers.
func (t *TxStream) ResetRecords() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Pending.Reset()
	t.Admitted.Reset()
	t.ReqInProgress = false
	t.ReqDelayed = false
	t.UsingBA = false
}

// RxStream is the receive side of one (peer, TID) traffic stream. The
// responder decides synchronously, so there is no pending record.
type RxStream struct {
	mu sync.Mutex

	Peer wire.Addr
	TID  uint8

	Admitted Record
}

// NewRxStream returns an idle receive stream record slot.
func NewRxStream(peer wire.Addr, tid uint8) *RxStream {
	return &RxStream{Peer: peer, TID: tid}
}

// ResetRecords returns the stream to idle, releasing any armed timer.
func (r *RxStream) ResetRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Admitted.Reset()
}

// StreamState is a lock-consistent copy of one stream side, for inspection.
type StreamState struct {
	Peer        string `json:"peer"`
	TID         uint8  `json:"tid"`
	Direction   string `json:"direction"`
	Valid       bool   `json:"valid"`
	DialogToken uint8  `json:"dialog_token"`
	Policy      string `json:"policy"`
	BufferSize  uint16 `json:"buffer_size"`
	Timeout     uint16 `json:"timeout"`
	StartSeq    uint16 `json:"start_seq"`
	Pending     bool   `json:"pending,omitempty"`
	InProgress  bool   `json:"request_in_progress,omitempty"`
	Delayed     bool   `json:"request_delayed,omitempty"`
	UsingBA     bool   `json:"using_ba,omitempty"`
}

// State snapshots the transmit stream under its lock.
func (t *TxStream) State() StreamState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return StreamState{
		Peer:        t.Peer.String(),
		TID:         t.TID,
		Direction:   DirTx.String(),
		Valid:       t.Admitted.Valid,
		DialogToken: t.Admitted.DialogToken,
		Policy:      t.Admitted.Params.Policy.String(),
		BufferSize:  t.Admitted.Params.BufferSize,
		Timeout:     t.Admitted.Timeout,
		StartSeq:    t.Admitted.StartSeq(),
		Pending:     t.Pending.Valid,
		InProgress:  t.ReqInProgress,
		Delayed:     t.ReqDelayed,
		UsingBA:     t.UsingBA,
	}
}

// State snapshots the receive stream under its lock.
func (r *RxStream) State() StreamState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return StreamState{
		Peer:        r.Peer.String(),
		TID:         r.TID,
		Direction:   DirRx.String(),
		Valid:       r.Admitted.Valid,
		DialogToken: r.Admitted.DialogToken,
		Policy:      r.Admitted.Params.Policy.String(),
		BufferSize:  r.Admitted.Params.BufferSize,
		Timeout:     r.Admitted.Timeout,
		StartSeq:    r.Admitted.StartSeq(),
	}
}

// Directory resolves traffic streams. The engine never creates or destroys
// streams; it only mutates the records inside whatever the directory hands
// back.
type Directory interface {
	TxStream(peer wire.Addr, tid uint8, create bool) (*TxStream, bool)
	RxStream(peer wire.Addr, tid uint8, create bool) (*RxStream, bool)
}

// FrameTransport hands a constructed frame to the link-layer transmit path.
type FrameTransport interface {
	Send(frame []byte, dst wire.Addr) error
}
