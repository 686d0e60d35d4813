// Package plframe implements bit-exact (de)serialization of the five
// POWERLINK frame types (SoC, PReq, PRes, SoA, ASnd), per EPSG DS 301
// §4.6.1. Codecs are pure: they never touch engine state, mirroring the
// teacher's pkg/od/variable.go EncodeFromString/DecodeToType split between
// "bytes on the wire" and "what the engine does with them".
package plframe

import (
	"encoding/binary"

	powerlink "github.com/powerlink/gopowerlink"
)

// Frame is the common interface implemented by every POWERLINK frame type.
type Frame interface {
	// Serialize writes the POWERLINK-header-onward payload into buf (buf
	// does not include the Ethernet header) and returns the number of
	// bytes written. Padding the frame out to the minimum Ethernet
	// payload, if needed, is the netio transport's job, not the codec's.
	Serialize(buf []byte) (int, error)
	MessageType() powerlink.MessageType
}

const plHeaderSize = 3 // MessageType(1) + Destination(1) + Source(1)

func putPLHeader(buf []byte, mt powerlink.MessageType, dst, src powerlink.NodeId) {
	buf[0] = byte(mt)
	buf[1] = byte(dst)
	buf[2] = byte(src)
}

// DeserializeFrame validates the Ethernet header and dispatches on
// MessageType. A non-POWERLINK EtherType returns ErrNotPowerlinkFrame so
// the caller can silently ignore the frame, per spec §4.1.
func DeserializeFrame(eth powerlink.EthernetFrame) (Frame, error) {
	if eth.EtherType != powerlink.EtherTypePowerlink {
		return nil, powerlink.ErrNotPowerlinkFrame
	}
	buf := eth.Payload
	if len(buf) < plHeaderSize {
		return nil, powerlink.ErrTruncatedFrame
	}
	mt := powerlink.MessageType(buf[0])
	dst := powerlink.NodeId(buf[1])
	src := powerlink.NodeId(buf[2])

	switch mt {
	case powerlink.MessageTypeSoC:
		return deserializeSoC(dst, src, buf)
	case powerlink.MessageTypePReq:
		return deserializePReq(dst, src, buf)
	case powerlink.MessageTypePRes:
		return deserializePRes(eth, dst, src, buf)
	case powerlink.MessageTypeSoA:
		return deserializeSoA(dst, src, buf)
	case powerlink.MessageTypeASnd:
		return deserializeASnd(dst, src, buf)
	default:
		return nil, powerlink.ErrInvalidMessageType
	}
}

func le16(b []byte) uint16       { return binary.LittleEndian.Uint16(b) }
func putLE16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func le32(b []byte) uint32       { return binary.LittleEndian.Uint32(b) }
func putLE32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func le64(b []byte) uint64       { return binary.LittleEndian.Uint64(b) }
func putLE64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
