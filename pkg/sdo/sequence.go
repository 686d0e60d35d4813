package sdo

// ConnectionState is the per-direction sequence-layer connection state
// (spec §4.3.1). ConnectionValidAckRequest is the sender's request for
// an acknowledgment; the same numeric value, ErrorResponse, is how the
// receive side reports a rejected frame.
type ConnectionState uint8

const (
	ConnNoConnection              ConnectionState = 0
	ConnInitialization            ConnectionState = 1
	ConnConnectionValid           ConnectionState = 2
	ConnConnectionValidAckRequest ConnectionState = 3
	ConnErrorResponse             ConnectionState = 3
)

// SequenceHeader is the 4-byte sequence-layer header prefixing every
// command-layer frame (spec §4.3.1): receive sequence number and
// connection state, then send sequence number and connection state,
// then 2 reserved bytes.
type SequenceHeader struct {
	ReceiveSeq uint8
	ReceiveCon ConnectionState
	SendSeq    uint8
	SendCon    ConnectionState
}

// SequenceHeaderSize is the fixed size of SequenceHeader on the wire.
const SequenceHeaderSize = 4

// Encode writes h into buf (at least SequenceHeaderSize long) and
// returns SequenceHeaderSize.
func (h SequenceHeader) Encode(buf []byte) int {
	buf[0] = (h.ReceiveSeq & 0x3F) | byte(h.ReceiveCon)<<6
	buf[1] = (h.SendSeq & 0x3F) | byte(h.SendCon)<<6
	buf[2] = 0
	buf[3] = 0
	return SequenceHeaderSize
}

// DecodeSequenceHeader parses the sequence-layer header from buf.
func DecodeSequenceHeader(buf []byte) (SequenceHeader, error) {
	if len(buf) < SequenceHeaderSize {
		return SequenceHeader{}, ErrShortCommand
	}
	return SequenceHeader{
		ReceiveSeq: buf[0] & 0x3F,
		ReceiveCon: ConnectionState(buf[0] >> 6),
		SendSeq:    buf[1] & 0x3F,
		SendCon:    ConnectionState(buf[1] >> 6),
	}, nil
}

// nextSeq advances a 6-bit sequence number modulo 64; wrap from 63 to 0
// is accepted (spec §4.3.1).
func nextSeq(n uint8) uint8 { return (n + 1) & 0x3F }

// SequenceHandler tracks one sequence-layer connection (spec §4.3.1):
// one instance per active client-info (NodeId for ASnd; IP+port for
// UDP), per spec §4.3.3. It is not a goroutine — Accept/Wrap are called
// synchronously from the owning Server's Process call.
type SequenceHandler struct {
	state        ConnectionState
	lastReceived uint8
	nextSend     uint8
	lastSent     []byte
}

// NewSequenceHandler creates a handler with no established connection.
func NewSequenceHandler() *SequenceHandler {
	return &SequenceHandler{state: ConnNoConnection}
}

// Accept validates and advances the sequence layer for one incoming
// frame (spec §4.3.1's three-step handshake and duplicate detection).
// It returns the command-layer payload to dispatch. If duplicate is
// true the frame repeats the last accepted sequence number and the
// caller should re-emit LastSent() rather than reprocess the command.
// If abort is non-zero the frame's sequence number was invalid and the
// caller should send an abort response instead of dispatching.
func (h *SequenceHandler) Accept(frame []byte) (payload []byte, duplicate bool, abort AbortCode, err error) {
	seqHdr, err := DecodeSequenceHeader(frame)
	if err != nil {
		return nil, false, 0, err
	}
	payload = frame[SequenceHeaderSize:]

	switch h.state {
	case ConnNoConnection:
		if seqHdr.SendCon != ConnInitialization {
			return nil, false, AbortSequenceInvalid, nil
		}
		h.state = ConnInitialization
		h.lastReceived = seqHdr.SendSeq
		return payload, false, AbortNone, nil
	case ConnInitialization:
		if seqHdr.SendCon != ConnConnectionValid {
			return nil, false, AbortSequenceInvalid, nil
		}
		h.state = ConnConnectionValid
		h.lastReceived = seqHdr.SendSeq
		return payload, false, AbortNone, nil
	default:
		if seqHdr.SendSeq == h.lastReceived {
			return nil, true, AbortNone, nil
		}
		if seqHdr.SendSeq != nextSeq(h.lastReceived) {
			return nil, false, AbortSequenceInvalid, nil
		}
		h.lastReceived = seqHdr.SendSeq
		return payload, false, AbortNone, nil
	}
}

// Wrap prefixes a command-layer response with the next sequence header,
// advances the send sequence number, and remembers the result so a
// duplicate request can be answered with the identical bytes.
func (h *SequenceHandler) Wrap(response []byte) []byte {
	send := h.nextSend
	h.nextSend = nextSeq(send)
	hdr := SequenceHeader{
		ReceiveSeq: h.lastReceived,
		ReceiveCon: h.state,
		SendSeq:    send,
		SendCon:    h.state,
	}
	out := make([]byte, SequenceHeaderSize+len(response))
	hdr.Encode(out)
	copy(out[SequenceHeaderSize:], response)
	h.lastSent = out
	return out
}

// LastSent returns the most recent frame Wrap produced, for retransmit
// on a duplicate request.
func (h *SequenceHandler) LastSent() []byte { return h.lastSent }

// State reports the current connection state.
func (h *SequenceHandler) State() ConnectionState { return h.state }
