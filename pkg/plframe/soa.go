package plframe

import "github.com/powerlink/gopowerlink"

// RequestedServiceId enumerates the ASnd services an SoA can invite
// (spec §4.1.4).
type RequestedServiceId uint8

const (
	ServiceNoService         RequestedServiceId = 0x00
	ServiceIdentRequest      RequestedServiceId = 0x01
	ServiceStatusRequest     RequestedServiceId = 0x02
	ServiceNMTRequest        RequestedServiceId = 0x03
	ServiceAsndSdoExpedited  RequestedServiceId = 0x05
	ServiceUnspecifiedInvite RequestedServiceId = 0xFF
)

// SoA is the Start of Asynchronous frame: the MN's invitation for exactly
// one node to transmit a single ASnd during the asynchronous period.
type SoA struct {
	Destination      powerlink.NodeId
	Source           powerlink.NodeId
	EPLVersion       uint8
	RequestedService RequestedServiceId
	RequestedTarget  powerlink.NodeId
}

func (f SoA) MessageType() powerlink.MessageType { return powerlink.MessageTypeSoA }

func (f SoA) Serialize(buf []byte) (int, error) {
	const bodyLen = 1 + 1 + 1 + 1 + 4
	if len(buf) < plHeaderSize+bodyLen {
		return 0, powerlink.ErrBufferTooShort
	}
	putPLHeader(buf, powerlink.MessageTypeSoA, f.Destination, f.Source)
	off := plHeaderSize
	buf[off] = 0 // reserved
	off++
	buf[off] = byte(f.RequestedService)
	off++
	buf[off] = byte(f.RequestedTarget)
	off++
	buf[off] = f.EPLVersion
	off++
	for i := 0; i < 4; i++ {
		buf[off] = 0 // reserved
		off++
	}
	return off, nil
}

func deserializeSoA(dst, src powerlink.NodeId, buf []byte) (Frame, error) {
	const bodyLen = 1 + 1 + 1 + 1 + 4
	if len(buf) < plHeaderSize+bodyLen {
		return nil, powerlink.ErrTruncatedFrame
	}
	off := plHeaderSize + 1 // skip reserved
	service := buf[off]
	off++
	target := buf[off]
	off++
	eplVersion := buf[off]
	return SoA{
		Destination:      dst,
		Source:           src,
		EPLVersion:       eplVersion,
		RequestedService: RequestedServiceId(service),
		RequestedTarget:  powerlink.NodeId(target),
	}, nil
}
