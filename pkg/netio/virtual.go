package netio

import (
	"sync"

	powerlink "github.com/powerlink/gopowerlink"
)

// VirtualSegment is an in-memory stand-in for a switched POWERLINK
// Ethernet segment, grounded on the teacher's VirtualCanBus (a TCP-backed
// loopback bus for tests) but kept purely in-process: every adapter on
// the segment observes every frame any other adapter sends, mirroring
// the multicast/broadcast nature of a real segment, and RunCycle's
// single-threaded polling model means no subscriber goroutine is needed
// — each adapter just drains its own inbox on ReceiveFrame.
type VirtualSegment struct {
	mu       sync.Mutex
	adapters []*VirtualAdapter
	macTable map[powerlink.NodeId]powerlink.MacAddress
}

// NewVirtualSegment creates an empty segment.
func NewVirtualSegment() *VirtualSegment {
	return &VirtualSegment{macTable: map[powerlink.NodeId]powerlink.MacAddress{}}
}

// RegisterMAC lets ASnd unicast resolve node to mac without a live
// IdentResponse exchange having happened yet (useful for examples/tests
// that skip BOOT_STEP1 identification).
func (s *VirtualSegment) RegisterMAC(node powerlink.NodeId, mac powerlink.MacAddress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.macTable[node] = mac
}

func (s *VirtualSegment) lookup(node powerlink.NodeId) (powerlink.MacAddress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mac, ok := s.macTable[node]
	return mac, ok
}

// NewAdapter attaches a new station to the segment with the given MAC.
func (s *VirtualSegment) NewAdapter(mac powerlink.MacAddress) *VirtualAdapter {
	a := &VirtualAdapter{
		segment:  s,
		mac:      mac,
		inbox:    make(chan []byte, 64),
		udpInbox: make(chan udpDatagram, 64),
	}
	s.mu.Lock()
	s.adapters = append(s.adapters, a)
	s.mu.Unlock()
	return a
}

func (s *VirtualSegment) broadcast(from *VirtualAdapter, raw []byte) {
	s.mu.Lock()
	targets := make([]*VirtualAdapter, len(s.adapters))
	copy(targets, s.adapters)
	s.mu.Unlock()
	for _, a := range targets {
		if a == from {
			continue
		}
		select {
		case a.inbox <- raw:
		default: // slow/uninterested receiver: drop rather than block the sender
		}
	}
}

type udpDatagram struct {
	from    powerlink.MacAddress
	ip      [4]byte
	port    uint16
	payload []byte
}

// VirtualAdapter is one station's powerlink.NetworkInterface view onto a
// shared VirtualSegment.
type VirtualAdapter struct {
	segment  *VirtualSegment
	mac      powerlink.MacAddress
	inbox    chan []byte
	udpInbox chan udpDatagram
	udpIP    [4]byte
	udpPort  uint16
}

// BindUDP assigns this adapter's UDP endpoint so SendUDP from another
// adapter can target it; unbound adapters never receive datagrams addressed by ip.
func (a *VirtualAdapter) BindUDP(ip [4]byte, port uint16) {
	a.udpIP, a.udpPort = ip, port
}

func (a *VirtualAdapter) LocalMAC() powerlink.MacAddress { return a.mac }

func (a *VirtualAdapter) SendFrame(payload []byte) error {
	dst := ResolveDestinationMAC(payload, a.segment.lookup)
	raw := BuildEthernetFrame(dst, a.mac, payload)
	a.segment.broadcast(a, raw)
	return nil
}

func (a *VirtualAdapter) ReceiveFrame(buf []byte) (int, error) {
	select {
	case raw := <-a.inbox:
		return copy(buf, raw), nil
	default:
		return 0, nil
	}
}

func (a *VirtualAdapter) SendUDP(ip [4]byte, port uint16, payload []byte) error {
	s := a.segment
	s.mu.Lock()
	targets := make([]*VirtualAdapter, len(s.adapters))
	copy(targets, s.adapters)
	s.mu.Unlock()
	dgram := udpDatagram{from: a.mac, ip: ip, port: port, payload: payload}
	for _, other := range targets {
		if other == a || other.udpIP != ip || other.udpPort != port {
			continue
		}
		select {
		case other.udpInbox <- dgram:
		default:
		}
	}
	return nil
}

func (a *VirtualAdapter) ReceiveUDP(buf []byte) (n int, ip [4]byte, port uint16, ok bool, err error) {
	select {
	case d := <-a.udpInbox:
		return copy(buf, d.payload), d.ip, d.port, true, nil
	default:
		return 0, [4]byte{}, 0, false, nil
	}
}

// SetReadTimeout is a no-op: a VirtualAdapter's channel reads never
// block (RunCycle polls non-blockingly every tick).
func (a *VirtualAdapter) SetReadTimeout(us uint32) error { return nil }
