package sdo

import "encoding/binary"

// EmbeddedBaseIndex and embeddedTopIndex bound the PDO-container OD
// range the embedded SDO variant rides in (spec §4.3.5).
const (
	EmbeddedBaseIndex uint16 = 0x1200
	embeddedTopIndex  uint16 = 0x127F
)

// EmbeddedSequenceHeaderSize is the simplified 1-byte sequence header
// used by the PDO-embedded variant, in place of the 4-byte ASnd/UDP one
// (spec §4.3.5).
const EmbeddedSequenceHeaderSize = 1

// EmbeddedHeader packs sequence_number (6 bits) and connection_state (2
// bits) into a single byte.
type EmbeddedHeader struct {
	SequenceNumber uint8
	State          ConnectionState
}

func (h EmbeddedHeader) Encode() byte {
	return (h.SequenceNumber & 0x3F) | byte(h.State)<<6
}

func DecodeEmbeddedHeader(b byte) EmbeddedHeader {
	return EmbeddedHeader{SequenceNumber: b & 0x3F, State: ConnectionState(b >> 6)}
}

// EmbeddedHandler runs the embedded SDO variant: only Expedited
// segmentation is supported and every response is padded out to a fixed
// container length so it fits the PDO mapping that carries it (spec
// §4.3.5).
type EmbeddedHandler struct {
	server       *Server
	client       ClientKey
	lastReceived uint8
	nextSend     uint8
	state        ConnectionState
	container    int
}

// NewEmbeddedHandler creates a handler for one embedded SDO channel,
// padding every response to containerSize bytes.
func NewEmbeddedHandler(server *Server, client ClientKey, containerSize int) *EmbeddedHandler {
	return &EmbeddedHandler{server: server, client: client, container: containerSize}
}

// Process handles one embedded-SDO PDO container payload and returns
// the response container, padded to the configured size.
func (e *EmbeddedHandler) Process(payload []byte) []byte {
	if len(payload) < EmbeddedSequenceHeaderSize {
		return e.pad(nil)
	}
	in := DecodeEmbeddedHeader(payload[0])
	body := payload[EmbeddedSequenceHeaderSize:]

	switch e.state {
	case ConnNoConnection:
		if in.State != ConnInitialization {
			return e.pad(e.wrapAbort(AbortSequenceInvalid))
		}
		e.state = ConnInitialization
		e.lastReceived = in.SequenceNumber
		return e.pad(e.wrap(nil))
	case ConnInitialization:
		if in.State != ConnConnectionValid {
			return e.pad(e.wrapAbort(AbortSequenceInvalid))
		}
		e.state = ConnConnectionValid
		e.lastReceived = in.SequenceNumber
	default:
		if in.SequenceNumber != nextSeq(e.lastReceived) {
			return e.pad(e.wrapAbort(AbortSequenceInvalid))
		}
		e.lastReceived = in.SequenceNumber
	}

	header, err := DecodeCommandHeader(body)
	if err != nil || header.Phase != PhaseExpedited {
		return e.pad(e.wrapAbort(AbortCommandInvalid))
	}
	cmdBody := body[HeaderSize:]

	var resp []byte
	switch header.Command {
	case CmdWriteByIndex:
		if len(cmdBody) < 3 {
			resp = e.abortCommand(header, AbortCommandInvalid)
		} else {
			index := binary.LittleEndian.Uint16(cmdBody[0:2])
			subIndex := cmdBody[2]
			if err := e.server.dict.Write(index, subIndex, cmdBody[3:]); err != nil {
				resp = e.abortCommand(header, AbortFor(err))
			} else {
				resp = e.ackCommand(header, nil)
			}
		}
	case CmdReadByIndex:
		if len(cmdBody) < 3 {
			resp = e.abortCommand(header, AbortCommandInvalid)
		} else {
			index := binary.LittleEndian.Uint16(cmdBody[0:2])
			subIndex := cmdBody[2]
			value, err := e.server.dict.Read(index, subIndex)
			if err != nil {
				resp = e.abortCommand(header, AbortFor(err))
			} else if len(value) > e.container-EmbeddedSequenceHeaderSize-HeaderSize {
				resp = e.abortCommand(header, AbortLengthMismatch)
			} else {
				resp = e.ackCommand(header, value)
			}
		}
	default:
		resp = e.abortCommand(header, AbortCommandInvalid)
	}
	return e.pad(e.wrap(resp))
}

func (e *EmbeddedHandler) ackCommand(req CommandHeader, data []byte) []byte {
	resp := CommandHeader{TransactionId: req.TransactionId, Response: true, Phase: PhaseExpedited, Command: req.Command, SegmentSize: uint16(len(data))}
	buf := make([]byte, HeaderSize+len(data))
	resp.Encode(buf)
	copy(buf[HeaderSize:], data)
	return buf
}

func (e *EmbeddedHandler) abortCommand(req CommandHeader, code AbortCode) []byte {
	payload := EncodeAbortPayload(code)
	resp := CommandHeader{TransactionId: req.TransactionId, Response: true, Abort: true, Command: req.Command, SegmentSize: uint16(len(payload))}
	buf := make([]byte, HeaderSize+len(payload))
	resp.Encode(buf)
	copy(buf[HeaderSize:], payload)
	return buf
}

func (e *EmbeddedHandler) wrap(body []byte) []byte {
	send := e.nextSend
	e.nextSend = nextSeq(send)
	out := make([]byte, EmbeddedSequenceHeaderSize+len(body))
	out[0] = EmbeddedHeader{SequenceNumber: send, State: e.state}.Encode()
	copy(out[EmbeddedSequenceHeaderSize:], body)
	return out
}

func (e *EmbeddedHandler) wrapAbort(code AbortCode) []byte {
	return e.wrap(e.abortCommand(CommandHeader{}, code))
}

func (e *EmbeddedHandler) pad(frame []byte) []byte {
	if len(frame) >= e.container {
		return frame[:e.container]
	}
	out := make([]byte, e.container)
	copy(out, frame)
	return out
}
