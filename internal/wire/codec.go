package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// Action body sizes: category(1) + action(1) + the per-type fields.
	AddBABodyLen = 9
	DelBABodyLen = 6
)

var (
	ErrShortFrame    = errors.New("wire: frame shorter than required")
	ErrWrongCategory = errors.New("wire: not a block-ack action frame")
)

// ParamSet is the decoded block-ack parameter-set field.
//
// Bit layout (little-endian u16): bit0 AMSDU support, bit1 policy,
// bits2-5 TID, bits6-15 buffer size.
type ParamSet struct {
	AMSDUSupported bool
	Policy         Policy
	TID            uint8
	BufferSize     uint16
}

func (p ParamSet) Encode() uint16 {
	var v uint16
	if p.AMSDUSupported {
		v |= 1
	}
	v |= uint16(p.Policy&1) << 1
	v |= uint16(p.TID&0x0F) << 2
	v |= (p.BufferSize & 0x03FF) << 6
	return v
}

func DecodeParamSet(v uint16) ParamSet {
	return ParamSet{
		AMSDUSupported: v&1 != 0,
		Policy:         Policy(v >> 1 & 1),
		TID:            uint8(v >> 2 & 0x0F),
		BufferSize:     v >> 6 & 0x03FF,
	}
}

// DelParamSet is the decoded DelBA parameter-set field.
//
// Bit layout (little-endian u16): bit0 initiator, bits1-4 TID. Initiator set
// means the sender tore down the agreement it transmits under.
type DelParamSet struct {
	Initiator bool
	TID       uint8
}

func (p DelParamSet) Encode() uint16 {
	var v uint16
	if p.Initiator {
		v |= 1
	}
	v |= uint16(p.TID&0x0F) << 1
	return v
}

func DecodeDelParamSet(v uint16) DelParamSet {
	return DelParamSet{
		Initiator: v&1 != 0,
		TID:       uint8(v >> 1 & 0x0F),
	}
}

// AddBAReq is the request action body.
type AddBAReq struct {
	DialogToken uint8
	Params      ParamSet
	Timeout     uint16
	StartSeqCtl uint16
}

// AddBARsp is the response action body.
type AddBARsp struct {
	DialogToken uint8
	Status      uint16
	Params      ParamSet
	Timeout     uint16
}

// DelBA is the teardown action body.
type DelBA struct {
	Params DelParamSet
	Reason uint16
}

// EncodeAddBAReq builds a complete request frame addressed dst/src/bssid.
func EncodeAddBAReq(dst, src, bssid Addr, m AddBAReq) []byte {
	buf := EncodeHeader(make([]byte, 0, int(HeaderLen)+AddBABodyLen), actionHeader(dst, src, bssid))
	buf = append(buf, CategoryBlockAck, ActionAddBAReq, m.DialogToken)
	buf = binary.LittleEndian.AppendUint16(buf, m.Params.Encode())
	buf = binary.LittleEndian.AppendUint16(buf, m.Timeout)
	buf = binary.LittleEndian.AppendUint16(buf, m.StartSeqCtl)
	return buf
}

// EncodeAddBARsp builds a complete response frame.
func EncodeAddBARsp(dst, src, bssid Addr, m AddBARsp) []byte {
	buf := EncodeHeader(make([]byte, 0, int(HeaderLen)+AddBABodyLen), actionHeader(dst, src, bssid))
	buf = append(buf, CategoryBlockAck, ActionAddBARsp, m.DialogToken)
	buf = binary.LittleEndian.AppendUint16(buf, m.Status)
	buf = binary.LittleEndian.AppendUint16(buf, m.Params.Encode())
	buf = binary.LittleEndian.AppendUint16(buf, m.Timeout)
	return buf
}

// EncodeDelBA builds a complete teardown frame.
func EncodeDelBA(dst, src, bssid Addr, m DelBA) []byte {
	buf := EncodeHeader(make([]byte, 0, int(HeaderLen)+DelBABodyLen), actionHeader(dst, src, bssid))
	buf = append(buf, CategoryBlockAck, ActionDelBA)
	buf = binary.LittleEndian.AppendUint16(buf, m.Params.Encode())
	buf = binary.LittleEndian.AppendUint16(buf, m.Reason)
	return buf
}

func actionHeader(dst, src, bssid Addr) Header {
	return Header{
		FrameControl: FrameControlAction,
		Addr1:        dst,
		Addr2:        src,
		Addr3:        bssid,
	}
}

// ActionCode returns the category and action bytes of a frame. It only
// requires the bytes up to the action field to be present.
func ActionCode(b []byte) (category, action uint8, err error) {
	if len(b) < int(HeaderLen)+2 {
		return 0, 0, ErrShortFrame
	}
	return b[HeaderLen], b[HeaderLen+1], nil
}

// DecodeAddBAReq validates the frame length and extracts header and body.
func DecodeAddBAReq(b []byte) (Header, AddBAReq, error) {
	h, body, err := splitAction(b, AddBABodyLen)
	if err != nil {
		return Header{}, AddBAReq{}, err
	}
	return h, AddBAReq{
		DialogToken: body[2],
		Params:      DecodeParamSet(binary.LittleEndian.Uint16(body[3:5])),
		Timeout:     binary.LittleEndian.Uint16(body[5:7]),
		StartSeqCtl: binary.LittleEndian.Uint16(body[7:9]),
	}, nil
}

// DecodeAddBARsp validates the frame length and extracts header and body.
func DecodeAddBARsp(b []byte) (Header, AddBARsp, error) {
	h, body, err := splitAction(b, AddBABodyLen)
	if err != nil {
		return Header{}, AddBARsp{}, err
	}
	return h, AddBARsp{
		DialogToken: body[2],
		Status:      binary.LittleEndian.Uint16(body[3:5]),
		Params:      DecodeParamSet(binary.LittleEndian.Uint16(body[5:7])),
		Timeout:     binary.LittleEndian.Uint16(body[7:9]),
	}, nil
}

// DecodeDelBA validates the frame length and extracts header and body.
func DecodeDelBA(b []byte) (Header, DelBA, error) {
	h, body, err := splitAction(b, DelBABodyLen)
	if err != nil {
		return Header{}, DelBA{}, err
	}
	return h, DelBA{
		Params: DecodeDelParamSet(binary.LittleEndian.Uint16(body[2:4])),
		Reason: binary.LittleEndian.Uint16(body[4:6]),
	}, nil
}

func splitAction(b []byte, bodyLen int) (Header, []byte, error) {
	if len(b) < int(HeaderLen)+bodyLen {
		return Header{}, nil, ErrShortFrame
	}
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	body := b[HeaderLen:]
	if body[0] != CategoryBlockAck {
		return Header{}, nil, ErrWrongCategory
	}
	return h, body, nil
}
