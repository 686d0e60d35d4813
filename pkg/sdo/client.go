package sdo

import "encoding/binary"

// Client drives the client side of one sequence-layer connection (spec
// §4.3.1's three-step handshake) plus the command layer on top of it.
// Like Server, it holds no transport or timers of its own, and no code in
// this module retransmits or times out a request (OD 0x1300 is not
// consulted); each method here is a pure request/response transform.
type Client struct {
	state    ConnectionState
	sendSeq  uint8
	lastRecv uint8
	txid     uint8
}

// NewClient creates an SDO client with no established connection.
func NewClient() *Client { return &Client{state: ConnNoConnection} }

// wrap prefixes body with the current sequence header and advances the
// client's send sequence number and connection state per the handshake
// (spec §4.3.1: client sends rcon=0/scon=1, then rcon=2/scon=2).
func (c *Client) wrap(body []byte) []byte {
	var hdr SequenceHeader
	switch c.state {
	case ConnNoConnection:
		hdr = SequenceHeader{ReceiveSeq: 0, ReceiveCon: ConnNoConnection, SendSeq: c.sendSeq, SendCon: ConnInitialization}
		c.state = ConnInitialization
	case ConnInitialization:
		hdr = SequenceHeader{ReceiveSeq: c.lastRecv, ReceiveCon: ConnConnectionValid, SendSeq: c.sendSeq, SendCon: ConnConnectionValid}
		c.state = ConnConnectionValid
	default:
		hdr = SequenceHeader{ReceiveSeq: c.lastRecv, ReceiveCon: c.state, SendSeq: c.sendSeq, SendCon: c.state}
	}
	c.sendSeq = nextSeq(c.sendSeq)
	out := make([]byte, SequenceHeaderSize+len(body))
	hdr.Encode(out)
	copy(out[SequenceHeaderSize:], body)
	return out
}

func (c *Client) nextTxId() uint8 {
	c.txid++
	return c.txid
}

// BuildReadByIndex requests a value (spec §4.3.2 CmdReadByIndex).
func (c *Client) BuildReadByIndex(index uint16, subIndex uint8) []byte {
	addr := make([]byte, 3)
	binary.LittleEndian.PutUint16(addr[0:2], index)
	addr[2] = subIndex
	h := CommandHeader{TransactionId: c.nextTxId(), Phase: PhaseExpedited, Command: CmdReadByIndex, SegmentSize: uint16(len(addr))}
	buf := make([]byte, HeaderSize+len(addr))
	h.Encode(buf)
	copy(buf[HeaderSize:], addr)
	return c.wrap(buf)
}

// BuildReadSegment requests the next chunk of a segmented upload in
// progress, reusing the original request's transaction id.
func (c *Client) BuildReadSegment(transactionId uint8, phase SegmentationPhase) []byte {
	h := CommandHeader{TransactionId: transactionId, Phase: phase, Command: CmdReadByIndex}
	buf := make([]byte, HeaderSize)
	h.Encode(buf)
	return c.wrap(buf)
}

// BuildWriteByIndex writes value. Values of at most expeditedThreshold
// bytes are sent inline; larger values start a segmented transfer and
// the caller must follow up with BuildWriteSegment for the remainder.
func (c *Client) BuildWriteByIndex(index uint16, subIndex uint8, value []byte) (frame []byte, transactionId uint8, segmented bool) {
	transactionId = c.nextTxId()
	addr := make([]byte, 3)
	binary.LittleEndian.PutUint16(addr[0:2], index)
	addr[2] = subIndex

	if len(value) <= expeditedThreshold {
		body := append(addr, value...)
		h := CommandHeader{TransactionId: transactionId, Phase: PhaseExpedited, Command: CmdWriteByIndex, SegmentSize: uint16(len(body))}
		buf := make([]byte, HeaderSize+len(body))
		h.Encode(buf)
		copy(buf[HeaderSize:], body)
		return c.wrap(buf), transactionId, false
	}

	body := append(addr, encodeInitiateUploadBody(len(value), value[:min(maxSegmentPayload, len(value))])...)
	h := CommandHeader{TransactionId: transactionId, Phase: PhaseInitiate, Command: CmdWriteByIndex, SegmentSize: uint16(len(body))}
	buf := make([]byte, HeaderSize+len(body))
	h.Encode(buf)
	copy(buf[HeaderSize:], body)
	return c.wrap(buf), transactionId, true
}

// BuildWriteSegment sends one chunk of a segmented write. phase must be
// PhaseSegment for intermediate chunks and PhaseComplete for the last.
func (c *Client) BuildWriteSegment(transactionId uint8, phase SegmentationPhase, chunk []byte) []byte {
	h := CommandHeader{TransactionId: transactionId, Phase: phase, Command: CmdWriteByIndex, SegmentSize: uint16(len(chunk))}
	buf := make([]byte, HeaderSize+len(chunk))
	h.Encode(buf)
	copy(buf[HeaderSize:], chunk)
	return c.wrap(buf)
}

// ParseResponse strips the sequence header and decodes the command
// layer response, returning the response body, its phase, and an
// AbortCode when the server aborted the transaction.
func ParseResponse(frame []byte) (body []byte, phase SegmentationPhase, abort AbortCode, err error) {
	if len(frame) < SequenceHeaderSize {
		return nil, 0, 0, ErrShortCommand
	}
	payload := frame[SequenceHeaderSize:]
	if len(payload) == 0 {
		return nil, 0, 0, nil
	}
	h, err := DecodeCommandHeader(payload)
	if err != nil {
		return nil, 0, 0, err
	}
	rest := payload[HeaderSize:]
	if h.Abort {
		code, err := DecodeAbortPayload(rest)
		return nil, h.Phase, code, err
	}
	return rest, h.Phase, AbortNone, nil
}
