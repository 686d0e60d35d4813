package sdo

import "encoding/binary"

// SegmentationPhase classifies a logical transfer's framing (spec
// §4.3.2).
type SegmentationPhase uint8

const (
	PhaseExpedited SegmentationPhase = 0
	PhaseInitiate  SegmentationPhase = 1
	PhaseSegment   SegmentationPhase = 2
	PhaseComplete  SegmentationPhase = 3
)

const (
	flagResponse uint8 = 1 << 7
	flagAbort    uint8 = 1 << 6
	phaseMask    uint8 = 0x03
	phaseShift         = 4
)

// CommandHeader is the SDO Command layer header: transaction id,
// response/abort/segmentation flags, command id and segment size (spec
// §4.3.2). Unlike CANopen's 8-byte CAN-frame-bound layout, POWERLINK
// SDO commands ride over ASnd/UDP datagrams: SegmentSize is the size of
// the chunk carried in this frame, not a fixed 7-byte window.
type CommandHeader struct {
	TransactionId uint8
	Response      bool
	Abort         bool
	Phase         SegmentationPhase
	Command       CommandId
	SegmentSize   uint16
}

// HeaderSize is the fixed command-layer header length (spec §4.3.2).
const HeaderSize = 1 + 1 + 1 + 2 + 3

// Encode writes h into buf (which must be at least HeaderSize long) and
// returns HeaderSize.
func (h CommandHeader) Encode(buf []byte) int {
	buf[0] = h.TransactionId
	flags := (uint8(h.Phase) & phaseMask) << phaseShift
	if h.Response {
		flags |= flagResponse
	}
	if h.Abort {
		flags |= flagAbort
	}
	buf[1] = flags
	buf[2] = byte(h.Command)
	binary.LittleEndian.PutUint16(buf[3:5], h.SegmentSize)
	buf[5] = 0
	buf[6] = 0
	buf[7] = 0
	return HeaderSize
}

// DecodeCommandHeader parses the fixed header portion of buf.
func DecodeCommandHeader(buf []byte) (CommandHeader, error) {
	if len(buf) < HeaderSize {
		return CommandHeader{}, ErrShortCommand
	}
	flags := buf[1]
	return CommandHeader{
		TransactionId: buf[0],
		Response:      flags&flagResponse != 0,
		Abort:         flags&flagAbort != 0,
		Phase:         SegmentationPhase((flags >> phaseShift) & phaseMask),
		Command:       CommandId(buf[2]),
		SegmentSize:   binary.LittleEndian.Uint16(buf[3:5]),
	}, nil
}

// EncodeAbortPayload returns the 4-byte little-endian abort code body
// that follows a CommandHeader with Abort set (spec §4.3.2).
func EncodeAbortPayload(code AbortCode) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(code))
	return buf
}

// DecodeAbortPayload parses the 4-byte abort code body.
func DecodeAbortPayload(buf []byte) (AbortCode, error) {
	if len(buf) < 4 {
		return 0, ErrShortCommand
	}
	return AbortCode(binary.LittleEndian.Uint32(buf)), nil
}
