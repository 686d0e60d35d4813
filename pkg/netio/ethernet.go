// Package netio provides concrete powerlink.NetworkInterface adapters:
// an in-memory VirtualSegment for tests and examples, and a raw-socket
// adapter for real Ethernet segments on Linux (spec §6.4). Framing
// helpers here own exactly what pkg/plframe's codecs deliberately don't:
// the Ethernet header and the pad-to-60-bytes rule.
package netio

import (
	"encoding/binary"

	powerlink "github.com/powerlink/gopowerlink"
)

const ethernetHeaderSize = 14

// ParseEthernetFrame splits a raw Ethernet II frame (as handed back by
// NetworkInterface.ReceiveFrame) into the header fields plframe.Frame
// codecs need plus the POWERLINK payload.
func ParseEthernetFrame(raw []byte) (powerlink.EthernetFrame, error) {
	if len(raw) < ethernetHeaderSize {
		return powerlink.EthernetFrame{}, powerlink.ErrTruncatedFrame
	}
	var dst, src powerlink.MacAddress
	copy(dst[:], raw[0:6])
	copy(src[:], raw[6:12])
	etherType := binary.BigEndian.Uint16(raw[12:14])
	return powerlink.EthernetFrame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     raw[ethernetHeaderSize:],
	}, nil
}

// BuildEthernetFrame prepends an Ethernet II header to payload and pads
// the result out to the 60-byte Ethernet minimum frame size — the
// responsibility plframe.Frame.Serialize's doc comment explicitly
// leaves to the transport.
func BuildEthernetFrame(dst, src powerlink.MacAddress, payload []byte) []byte {
	total := ethernetHeaderSize + len(payload)
	if total < powerlink.MinEthernetFrame {
		total = powerlink.MinEthernetFrame
	}
	out := make([]byte, total)
	copy(out[0:6], dst[:])
	copy(out[6:12], src[:])
	binary.BigEndian.PutUint16(out[12:14], powerlink.EtherTypePowerlink)
	copy(out[ethernetHeaderSize:], payload)
	return out
}

// MACResolver looks up the Ethernet MAC for a NodeId. The lookup is
// supplied by the caller (e.g. VirtualSegment's RegisterMAC table); no
// engine fills it from received frames.
type MACResolver func(powerlink.NodeId) (powerlink.MacAddress, bool)

// ResolveDestinationMAC derives the Ethernet destination address for an
// outbound POWERLINK payload from its message type and embedded
// destination NodeId (spec §3.2/§4.1): SoC/PReq/SoA ride the shared
// multicast group, PRes its own multicast group, and ASnd unicasts to
// the addressed node's MAC via lookup, falling back to the ASnd
// multicast group when the node's MAC isn't known yet or the frame is
// itself a broadcast.
func ResolveDestinationMAC(payload []byte, lookup MACResolver) powerlink.MacAddress {
	if len(payload) < 2 {
		return powerlink.MulticastASnd
	}
	mt := powerlink.MessageType(payload[0])
	dstNode := powerlink.NodeId(payload[1])
	switch mt {
	case powerlink.MessageTypeSoC, powerlink.MessageTypePReq, powerlink.MessageTypeSoA:
		return powerlink.MulticastSoCPReqSoA
	case powerlink.MessageTypePRes:
		return powerlink.MulticastPRes
	case powerlink.MessageTypeASnd:
		if dstNode == powerlink.NodeIdBroadcast {
			return powerlink.MulticastASnd
		}
		if lookup != nil {
			if mac, ok := lookup(dstNode); ok {
				return mac
			}
		}
		return powerlink.MulticastASnd
	default:
		return powerlink.MulticastASnd
	}
}
