package plframe

import "github.com/powerlink/gopowerlink"

// PReq is the Poll Request frame the MN sends to invite exactly one CN to
// transmit its PRes (spec §4.1.2).
type PReq struct {
	Destination powerlink.NodeId
	Source      powerlink.NodeId
	// RD requests the CN transition its Operational TPDO mapping version
	// into the exchange-active state; it mirrors the CN's own RD flag in
	// PRes once the request has been honoured.
	RD         bool
	PDOVersion uint8
	Payload    []byte
}

func (f PReq) MessageType() powerlink.MessageType { return powerlink.MessageTypePReq }

func (f PReq) Serialize(buf []byte) (int, error) {
	const headLen = 1 + 1 + 1 + 2
	need := plHeaderSize + headLen + len(f.Payload)
	if len(buf) < need {
		return 0, powerlink.ErrBufferTooShort
	}
	putPLHeader(buf, powerlink.MessageTypePReq, f.Destination, f.Source)
	off := plHeaderSize
	var flags byte
	if f.RD {
		flags |= 1 << 0
	}
	buf[off] = flags
	off++
	buf[off] = f.PDOVersion
	off++
	buf[off] = 0 // reserved
	off++
	putLE16(buf[off:], uint16(len(f.Payload)))
	off += 2
	off += copy(buf[off:], f.Payload)
	return off, nil
}

func deserializePReq(dst, src powerlink.NodeId, buf []byte) (Frame, error) {
	const headLen = 1 + 1 + 1 + 2
	if len(buf) < plHeaderSize+headLen {
		return nil, powerlink.ErrTruncatedFrame
	}
	off := plHeaderSize
	flags := buf[off]
	off++
	pdoVersion := buf[off]
	off += 2 // pdoVersion + reserved
	size := le16(buf[off:])
	off += 2
	if len(buf) < off+int(size) {
		return nil, powerlink.ErrTruncatedFrame
	}
	payload := make([]byte, size)
	copy(payload, buf[off:off+int(size)])
	return PReq{
		Destination: dst,
		Source:      src,
		RD:          flags&(1<<0) != 0,
		PDOVersion:  pdoVersion,
		Payload:     payload,
	}, nil
}
