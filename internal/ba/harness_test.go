package ba

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/bactl/internal/wire"
)

// fakeDir hands out streams for a single peer, keyed by TID.
type fakeDir struct {
	mu         sync.Mutex
	tx         map[uint8]*TxStream
	rx         map[uint8]*RxStream
	denyCreate bool
}

func newFakeDir() *fakeDir {
	return &fakeDir{
		tx: make(map[uint8]*TxStream),
		rx: make(map[uint8]*RxStream),
	}
}

func (d *fakeDir) TxStream(peer wire.Addr, tid uint8, create bool) (*TxStream, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ts, ok := d.tx[tid]; ok {
		return ts, true
	}
	if !create || d.denyCreate {
		return nil, false
	}
	ts := NewTxStream(peer, tid)
	d.tx[tid] = ts
	return ts, true
}

func (d *fakeDir) RxStream(peer wire.Addr, tid uint8, create bool) (*RxStream, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rs, ok := d.rx[tid]; ok {
		return rs, true
	}
	if !create || d.denyCreate {
		return nil, false
	}
	rs := NewRxStream(peer, tid)
	d.rx[tid] = rs
	return rs, true
}

type sentFrame struct {
	frame []byte
	dst   wire.Addr
}

// fakeTransport captures emitted frames.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentFrame
	err  error
}

func (f *fakeTransport) Send(frame []byte, dst wire.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, sentFrame{frame: cp, dst: dst})
	return f.err
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) last(t *testing.T) sentFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no frames captured")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) lastAction(t *testing.T) uint8 {
	t.Helper()
	_, action, err := wire.ActionCode(f.last(t).frame)
	if err != nil {
		t.Fatalf("captured frame unreadable: %v", err)
	}
	return action
}

// fakeTimers records scheduled callbacks and fires them by hand.
type fakeTimers struct {
	mu        sync.Mutex
	scheduled []*fakeTimer
}

type fakeTimer struct {
	d        time.Duration
	fn       func()
	canceled bool
}

func (f *fakeTimers) Schedule(d time.Duration, fn func()) TimerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	ft := &fakeTimer{d: d, fn: fn}
	f.scheduled = append(f.scheduled, ft)
	return ft
}

func (ft *fakeTimer) Cancel() {
	ft.canceled = true
}

func (f *fakeTimers) pending(t *testing.T) *fakeTimer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.scheduled) - 1; i >= 0; i-- {
		if !f.scheduled[i].canceled {
			return f.scheduled[i]
		}
	}
	t.Fatalf("no armed timer")
	return nil
}

// fireLast expires the newest armed timer, like the wheel would.
func (f *fakeTimers) fireLast(t *testing.T) {
	t.Helper()
	f.pending(t).fn()
}

var allCaps = Capabilities{
	QoSActive:          true,
	AggregationEnabled: true,
	AMPDUEnabled:       true,
}

const (
	testTID uint8 = 3
)

var (
	localAddr = wire.Addr{0x02, 0, 0, 0, 0, 0x01}
	peerAddr  = wire.Addr{0x02, 0, 0, 0, 0, 0x02}
	bssidAddr = wire.Addr{0x02, 0, 0, 0, 0, 0xff}
)

type testRig struct {
	engine *Engine
	dir    *fakeDir
	tp     *fakeTransport
	timers *fakeTimers
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	dir := newFakeDir()
	tp := &fakeTransport{}
	timers := &fakeTimers{}
	e := NewEngine(Config{
		LocalAddr:    localAddr,
		BSSID:        bssidAddr,
		SetupTimeout: 200 * time.Millisecond,
	}, dir, tp, timers)
	e.SetCapabilities(allCaps)
	return &testRig{engine: e, dir: dir, tp: tp, timers: timers}
}

func (r *testRig) txStream(t *testing.T) *TxStream {
	t.Helper()
	ts, ok := r.dir.TxStream(peerAddr, testTID, true)
	if !ok {
		t.Fatalf("directory refused tx stream")
	}
	return ts
}

func (r *testRig) rxStream(t *testing.T) *RxStream {
	t.Helper()
	rs, ok := r.dir.RxStream(peerAddr, testTID, true)
	if !ok {
		t.Fatalf("directory refused rx stream")
	}
	return rs
}

// peerAddBAReq builds a request as the peer would send it to us.
func peerAddBAReq(token uint8, policy wire.Policy, timeout uint16, startSeq uint16) []byte {
	return wire.EncodeAddBAReq(localAddr, peerAddr, bssidAddr, wire.AddBAReq{
		DialogToken: token,
		Params: wire.ParamSet{
			Policy:     policy,
			TID:        testTID,
			BufferSize: 64,
		},
		Timeout:     timeout,
		StartSeqCtl: wire.SeqCtl(startSeq),
	})
}

// peerAddBARsp builds a response as the peer would send it to us.
func peerAddBARsp(token uint8, status uint16, policy wire.Policy, timeout uint16) []byte {
	return wire.EncodeAddBARsp(localAddr, peerAddr, bssidAddr, wire.AddBARsp{
		DialogToken: token,
		Status:      status,
		Params: wire.ParamSet{
			Policy:     policy,
			TID:        testTID,
			BufferSize: 32,
		},
		Timeout: timeout,
	})
}

// peerDelBA builds a teardown as the peer would send it to us.
func peerDelBA(initiator bool, reason uint16) []byte {
	return wire.EncodeDelBA(localAddr, peerAddr, bssidAddr, wire.DelBA{
		Params: wire.DelParamSet{Initiator: initiator, TID: testTID},
		Reason: reason,
	})
}
