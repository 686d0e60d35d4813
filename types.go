// Package powerlink provides the shared wire-level types and external
// collaborator interfaces used by every other package in this module: the
// node-id space, the POWERLINK message types, the Ethernet/UDP framing
// constants and the Action result returned by a node's RunCycle.
package powerlink

import "fmt"

// NodeId identifies a node on the POWERLINK segment. Valid ranges are
// defined by EPSG DS 301 §4.2.1 (see constants below).
type NodeId uint8

const (
	NodeIdMin          NodeId = 1
	NodeIdMax          NodeId = 239
	NodeIdMN           NodeId = 240
	NodeIdDiagnostic   NodeId = 253
	NodeIdPResChainedCN NodeId = 254
	NodeIdBroadcast    NodeId = 255
)

// IsCN reports whether id is in the valid Controlled Node range.
func (id NodeId) IsCN() bool { return id >= NodeIdMin && id <= NodeIdMax }

func (id NodeId) String() string {
	switch id {
	case NodeIdMN:
		return "MN"
	case NodeIdDiagnostic:
		return "diagnostic"
	case NodeIdPResChainedCN:
		return "PRes-chained-CN"
	case NodeIdBroadcast:
		return "broadcast"
	default:
		return fmt.Sprintf("%d", uint8(id))
	}
}

// MessageType is the first octet of every POWERLINK frame.
type MessageType uint8

const (
	MessageTypeSoC  MessageType = 0x01
	MessageTypePReq MessageType = 0x03
	MessageTypePRes MessageType = 0x04
	MessageTypeSoA  MessageType = 0x05
	MessageTypeASnd MessageType = 0x06
)

func (mt MessageType) String() string {
	switch mt {
	case MessageTypeSoC:
		return "SoC"
	case MessageTypePReq:
		return "PReq"
	case MessageTypePRes:
		return "PRes"
	case MessageTypeSoA:
		return "SoA"
	case MessageTypeASnd:
		return "ASnd"
	default:
		return fmt.Sprintf("0x%02X", uint8(mt))
	}
}

// EtherType used to identify POWERLINK frames on the wire.
const EtherTypePowerlink uint16 = 0x88AB

// UDP port used for SDO-over-UDP transport.
const UDPPortSDO = 3819

// POWERLINK-over-UDP framing header, prefixed to every SDO-over-UDP
// datagram to mimic ASnd framing (spec §4.3.4 / §6.2).
var UDPFrameHeader = [4]byte{0x06, 0x00, 0x00, 0x05}

// MacAddress is a 6-byte hardware address.
type MacAddress [6]byte

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Fixed multicast MAC groups, one per spec §3.2 / §4.1.
var (
	MulticastSoCPReqSoA = MacAddress{0x01, 0x11, 0x1E, 0x00, 0x00, 0x01}
	MulticastPRes       = MacAddress{0x01, 0x11, 0x1E, 0x00, 0x00, 0x02}
	MulticastASnd       = MacAddress{0x01, 0x11, 0x1E, 0x00, 0x00, 0x03}
)

const (
	MinEthernetFrame = 60
	MaxEthernetFrame = 1518
	MinPayloadPad    = 46
)

// EthernetFrame is the raw frame handed to/from a NetworkInterface.
// Header fields are kept split out so callers can inspect them
// independently of the payload; the plframe codecs check only EtherType
// and do not filter frames by destination address.
type EthernetFrame struct {
	Destination MacAddress
	Source      MacAddress
	EtherType   uint16
	Payload     []byte
}
