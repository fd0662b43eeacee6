package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bactl/internal/wire"
)

const maxFrameSize = 2048

// UDP tunnels link-layer frames between stations on different hosts. Each
// peer's station address maps to one UDP endpoint.
type UDP struct {
	conn *net.UDPConn
	log  zerolog.Logger

	mu    sync.RWMutex
	peers map[wire.Addr]*net.UDPAddr
}

func NewUDP(listen string) (*UDP, error) {
	laddr, err := net.ResolveUDPAddr("udp", listen)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve listen addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen: %w", err)
	}
	return &UDP{
		conn:  conn,
		log:   log.With().Str("component", "udp").Str("listen", conn.LocalAddr().String()).Logger(),
		peers: make(map[wire.Addr]*net.UDPAddr),
	}, nil
}

// MapPeer binds a station address to a UDP endpoint.
func (u *UDP) MapPeer(station wire.Addr, endpoint string) error {
	raddr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return fmt.Errorf("transport: resolve peer %s: %w", station, err)
	}
	u.mu.Lock()
	u.peers[station] = raddr
	u.mu.Unlock()
	return nil
}

// Send forwards the frame to the destination station's endpoint.
func (u *UDP) Send(frame []byte, dst wire.Addr) error {
	u.mu.RLock()
	raddr, ok := u.peers[dst]
	u.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, dst)
	}
	if _, err := u.conn.WriteToUDP(frame, raddr); err != nil {
		return fmt.Errorf("transport: send to %s: %w", dst, err)
	}
	return nil
}

// Serve reads frames until ctx is canceled, handing each to h. Handler errors
// are logged, never fatal to the loop.
func (u *UDP) Serve(ctx context.Context, h FrameHandler) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			u.conn.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, maxFrameSize)
	for {
		n, raddr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("transport: read: %w", err)
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		if err := h.HandleFrame(frame); err != nil {
			u.log.Debug().Err(err).Str("from", raddr.String()).
				Msg("inbound frame not processed")
		}
	}
}

func (u *UDP) Close() error {
	return u.conn.Close()
}
