package stream

import (
	"sort"
	"sync"

	"github.com/danmuck/bactl/internal/ba"
	"github.com/danmuck/bactl/internal/wire"
)

// Key identifies one (peer, TID) traffic stream pair.
type Key struct {
	Peer wire.Addr
	TID  uint8
}

// Directory owns traffic stream lifetimes. The negotiation engine resolves
// streams through it but never creates or destroys them itself; Remove is the
// only destruction path and belongs to whoever owns peer lifecycle.
type Directory struct {
	mu  sync.RWMutex
	tx  map[Key]*ba.TxStream
	rx  map[Key]*ba.RxStream
	max int
}

// DefaultMaxStreams bounds how many stream pairs a directory will hold.
const DefaultMaxStreams = 64

func NewDirectory() *Directory {
	return &Directory{
		tx:  make(map[Key]*ba.TxStream),
		rx:  make(map[Key]*ba.RxStream),
		max: DefaultMaxStreams,
	}
}

// WithMaxStreams caps the number of stream pairs; zero means unbounded.
func (d *Directory) WithMaxStreams(n int) *Directory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.max = n
	return d
}

var _ ba.Directory = (*Directory)(nil)

// TxStream resolves the transmit side for (peer, tid), creating the pair when
// create is set and capacity allows.
func (d *Directory) TxStream(peer wire.Addr, tid uint8, create bool) (*ba.TxStream, bool) {
	key := Key{Peer: peer, TID: tid & 0x0F}

	d.mu.RLock()
	ts, ok := d.tx[key]
	d.mu.RUnlock()
	if ok {
		return ts, true
	}
	if !create {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if ts, ok := d.tx[key]; ok {
		return ts, true
	}
	if d.full() {
		return nil, false
	}
	d.createPair(key)
	return d.tx[key], true
}

// RxStream resolves the receive side for (peer, tid), creating the pair when
// create is set and capacity allows.
func (d *Directory) RxStream(peer wire.Addr, tid uint8, create bool) (*ba.RxStream, bool) {
	key := Key{Peer: peer, TID: tid & 0x0F}

	d.mu.RLock()
	rs, ok := d.rx[key]
	d.mu.RUnlock()
	if ok {
		return rs, true
	}
	if !create {
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if rs, ok := d.rx[key]; ok {
		return rs, true
	}
	if d.full() {
		return nil, false
	}
	d.createPair(key)
	return d.rx[key], true
}

// Remove destroys both directions of the (peer, tid) pair. Records inside the
// streams are reset first so any armed timers are released.
func (d *Directory) Remove(peer wire.Addr, tid uint8) {
	key := Key{Peer: peer, TID: tid & 0x0F}

	d.mu.Lock()
	ts := d.tx[key]
	rs := d.rx[key]
	delete(d.tx, key)
	delete(d.rx, key)
	d.mu.Unlock()

	if ts != nil {
		ts.ResetRecords()
	}
	if rs != nil {
		rs.ResetRecords()
	}
}

// Len returns the number of stream pairs currently held.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tx)
}

// Snapshot returns a stable-ordered view of every stream side.
func (d *Directory) Snapshot() []ba.StreamState {
	d.mu.RLock()
	txs := make([]*ba.TxStream, 0, len(d.tx))
	for _, ts := range d.tx {
		txs = append(txs, ts)
	}
	rxs := make([]*ba.RxStream, 0, len(d.rx))
	for _, rs := range d.rx {
		rxs = append(rxs, rs)
	}
	d.mu.RUnlock()

	out := make([]ba.StreamState, 0, len(txs)+len(rxs))
	for _, ts := range txs {
		out = append(out, ts.State())
	}
	for _, rs := range rxs {
		out = append(out, rs.State())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Peer != out[j].Peer {
			return out[i].Peer < out[j].Peer
		}
		if out[i].TID != out[j].TID {
			return out[i].TID < out[j].TID
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

func (d *Directory) full() bool {
	return d.max > 0 && len(d.tx) >= d.max
}

// Streams exist in pairs: both directions are born together and die together.
func (d *Directory) createPair(key Key) {
	d.tx[key] = ba.NewTxStream(key.Peer, key.TID)
	d.rx[key] = ba.NewRxStream(key.Peer, key.TID)
}
