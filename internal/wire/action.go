package wire

import "fmt"

// Byte codes shared with the peer. These must match the link partner exactly;
// they are not free to change between releases.
const (
	// FrameControlAction is the frame-control word of a management action frame.
	FrameControlAction uint16 = 0x00D0

	CategoryBlockAck uint8 = 3

	ActionAddBAReq uint8 = 0
	ActionAddBARsp uint8 = 1
	ActionDelBA    uint8 = 2
)

// AddBA response status codes.
const (
	StatusSuccess      uint16 = 0
	StatusRefused      uint16 = 37
	StatusInvalidParam uint16 = 38
)

// DelBA reason codes.
const (
	ReasonQSTALeaving      uint16 = 36
	ReasonAgreementEnded   uint16 = 37
	ReasonUnknownAgreement uint16 = 38
	ReasonTimeout          uint16 = 39
)

// Policy is the block-ack acknowledgement policy bit.
type Policy uint8

const (
	PolicyDelayed   Policy = 0
	PolicyImmediate Policy = 1
)

func (p Policy) String() string {
	switch p {
	case PolicyDelayed:
		return "delayed"
	case PolicyImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ActionName returns a human-readable name for an action byte.
func ActionName(a uint8) string {
	switch a {
	case ActionAddBAReq:
		return "ADDBA_REQ"
	case ActionAddBARsp:
		return "ADDBA_RSP"
	case ActionDelBA:
		return "DELBA"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", a)
	}
}

// StatusName returns a human-readable name for an AddBA response status.
func StatusName(s uint16) string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusRefused:
		return "REFUSED"
	case StatusInvalidParam:
		return "INVALID_PARAM"
	default:
		return fmt.Sprintf("STATUS(%d)", s)
	}
}

// ReasonName returns a human-readable name for a DelBA reason.
func ReasonName(r uint16) string {
	switch r {
	case ReasonQSTALeaving:
		return "QSTA_LEAVING"
	case ReasonAgreementEnded:
		return "END_BA"
	case ReasonUnknownAgreement:
		return "UNKNOWN_BA"
	case ReasonTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("REASON(%d)", r)
	}
}
