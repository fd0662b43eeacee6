package transport

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bactl/internal/wire"
)

var (
	ErrUnknownDestination = errors.New("transport: no station at destination address")
	ErrPortClosed         = errors.New("transport: port closed")
)

// FrameHandler receives inbound frames. ba.Engine satisfies it.
type FrameHandler interface {
	HandleFrame(frame []byte) error
}

const loopbackQueueDepth = 64

// Loopback is an in-process frame fabric: stations attach under their
// link-layer address and frames sent to that address are delivered on a
// per-station dispatch goroutine.
type Loopback struct {
	mu    sync.RWMutex
	ports map[wire.Addr]*LoopbackPort
}

func NewLoopback() *Loopback {
	return &Loopback{ports: make(map[wire.Addr]*LoopbackPort)}
}

// Attach registers a station and starts its dispatcher. The returned port is
// the station's FrameTransport.
func (l *Loopback) Attach(addr wire.Addr, h FrameHandler) *LoopbackPort {
	p := &LoopbackPort{
		fabric: l,
		addr:   addr,
		inbox:  make(chan []byte, loopbackQueueDepth),
		done:   make(chan struct{}),
	}
	l.mu.Lock()
	l.ports[addr] = p
	l.mu.Unlock()

	go p.dispatch(h)
	return p
}

// Close detaches every station and stops their dispatchers.
func (l *Loopback) Close() {
	l.mu.Lock()
	ports := make([]*LoopbackPort, 0, len(l.ports))
	for _, p := range l.ports {
		ports = append(ports, p)
	}
	l.ports = make(map[wire.Addr]*LoopbackPort)
	l.mu.Unlock()

	for _, p := range ports {
		p.close()
	}
}

func (l *Loopback) lookup(addr wire.Addr) (*LoopbackPort, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.ports[addr]
	return p, ok
}

// LoopbackPort is one attached station's transmit handle. The inbox channel is
// never closed; done marks closure, so a racing Send can never panic.
type LoopbackPort struct {
	fabric *Loopback
	addr   wire.Addr

	closeOnce sync.Once
	inbox     chan []byte
	done      chan struct{}
}

// Send queues the frame at the destination station. A full destination queue
// drops the frame, like a saturated link would; the sender never blocks.
func (p *LoopbackPort) Send(frame []byte, dst wire.Addr) error {
	dstPort, ok := p.fabric.lookup(dst)
	if !ok {
		return ErrUnknownDestination
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)

	select {
	case <-dstPort.done:
		return ErrPortClosed
	case dstPort.inbox <- cp:
	default:
		log.Warn().Str("src", p.addr.String()).Str("dst", dst.String()).
			Msg("loopback queue full, dropping frame")
	}
	return nil
}

func (p *LoopbackPort) dispatch(h FrameHandler) {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.inbox:
			if err := h.HandleFrame(frame); err != nil {
				log.Debug().Err(err).Str("station", p.addr.String()).
					Msg("inbound frame not processed")
			}
		}
	}
}

func (p *LoopbackPort) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}
