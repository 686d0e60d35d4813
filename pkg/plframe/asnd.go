package plframe

import "github.com/powerlink/gopowerlink"

// ASndServiceId identifies the service carried by an ASnd frame's Data
// field (spec §4.1.5). Each service's own payload layout is owned by the
// package that understands it (pkg/sdo for SDO, pkg/nmt for NMT requests
// and IdentResponse/StatusResponse).
type ASndServiceId uint8

const (
	ASndIdentResponse  ASndServiceId = 0x01
	ASndStatusResponse ASndServiceId = 0x02
	ASndNMTRequest     ASndServiceId = 0x03
	ASndNMTCommand     ASndServiceId = 0x04
	ASndSDO            ASndServiceId = 0x05
)

// ASnd is the Asynchronous Send frame used for all non-isochronous
// traffic: SDO, NMT requests/commands, IdentResponse and StatusResponse.
type ASnd struct {
	Destination powerlink.NodeId
	Source      powerlink.NodeId
	ServiceId   ASndServiceId
	Data        []byte
}

func (f ASnd) MessageType() powerlink.MessageType { return powerlink.MessageTypeASnd }

func (f ASnd) Serialize(buf []byte) (int, error) {
	need := plHeaderSize + 1 + len(f.Data)
	if len(buf) < need {
		return 0, powerlink.ErrBufferTooShort
	}
	putPLHeader(buf, powerlink.MessageTypeASnd, f.Destination, f.Source)
	off := plHeaderSize
	buf[off] = byte(f.ServiceId)
	off++
	off += copy(buf[off:], f.Data)
	return off, nil
}

func deserializeASnd(dst, src powerlink.NodeId, buf []byte) (Frame, error) {
	if len(buf) < plHeaderSize+1 {
		return nil, powerlink.ErrTruncatedFrame
	}
	off := plHeaderSize
	serviceId := buf[off]
	off++
	data := make([]byte, len(buf)-off)
	copy(data, buf[off:])
	return ASnd{
		Destination: dst,
		Source:      src,
		ServiceId:   ASndServiceId(serviceId),
		Data:        data,
	}, nil
}
