package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

const (
	AddrLen          = 6
	HeaderLen uint16 = 24
)

// Addr is a 6-byte link-layer station address.
type Addr [AddrLen]byte

func (a Addr) String() string {
	return net.HardwareAddr(a[:]).String()
}

// ParseAddr parses a textual MAC address into an Addr.
func ParseAddr(s string) (Addr, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return Addr{}, fmt.Errorf("wire: parse addr %q: %w", s, err)
	}
	if len(hw) != AddrLen {
		return Addr{}, fmt.Errorf("wire: addr %q: want %d bytes, got %d", s, AddrLen, len(hw))
	}
	var a Addr
	copy(a[:], hw)
	return a, nil
}

// Header is the fixed 3-address management header preceding every action body.
// Addr1 is the destination, Addr2 the transmitter, Addr3 the BSS identifier.
type Header struct {
	FrameControl uint16
	Duration     uint16
	Addr1        Addr
	Addr2        Addr
	Addr3        Addr
	SeqCtl       uint16
}

// EncodeHeader appends the wire form of h to buf and returns the extended slice.
func EncodeHeader(buf []byte, h Header) []byte {
	var fixed [HeaderLen]byte
	binary.LittleEndian.PutUint16(fixed[0:2], h.FrameControl)
	binary.LittleEndian.PutUint16(fixed[2:4], h.Duration)
	copy(fixed[4:10], h.Addr1[:])
	copy(fixed[10:16], h.Addr2[:])
	copy(fixed[16:22], h.Addr3[:])
	binary.LittleEndian.PutUint16(fixed[22:24], h.SeqCtl)
	return append(buf, fixed[:]...)
}

// DecodeHeader extracts the fixed header from the front of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < int(HeaderLen) {
		return Header{}, ErrShortFrame
	}
	var h Header
	h.FrameControl = binary.LittleEndian.Uint16(b[0:2])
	h.Duration = binary.LittleEndian.Uint16(b[2:4])
	copy(h.Addr1[:], b[4:10])
	copy(h.Addr2[:], b[10:16])
	copy(h.Addr3[:], b[16:22])
	h.SeqCtl = binary.LittleEndian.Uint16(b[22:24])
	return h, nil
}

// SeqCtl packs a 12-bit sequence number into a sequence-control field with a
// zero fragment number.
func SeqCtl(seq uint16) uint16 {
	return (seq % 4096) << 4
}

// SeqFromCtl recovers the 12-bit sequence number from a sequence-control field.
func SeqFromCtl(ctl uint16) uint16 {
	return ctl >> 4
}
