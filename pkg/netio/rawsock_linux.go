//go:build linux

package netio

import (
	"encoding/binary"
	"net"
	"time"

	"golang.org/x/sys/unix"

	powerlink "github.com/powerlink/gopowerlink"
)

// RawSocketAdapter is a powerlink.NetworkInterface backed by an
// AF_PACKET/SOCK_RAW socket bound to one Ethernet interface, for running
// against a real POWERLINK segment. Ethernet multicast is how SoC/PReq/
// PRes/SoA/ASnd are delivered (spec §3.2/§4.1), which rules out a plain
// AF_INET socket; UDP SDO (spec §4.3.4) rides an ordinary *net.UDPConn
// alongside it.
type RawSocketAdapter struct {
	fd      int
	ifIndex int
	mac     powerlink.MacAddress
	udp     *net.UDPConn
	lookup  MACResolver
	recvBuf [powerlink.MaxEthernetFrame]byte
}

// NewRawSocketAdapter opens a raw AF_PACKET socket on ifaceName and a
// UDP listener on powerlink.UDPPortSDO, joining the three POWERLINK
// multicast groups. lookup resolves a NodeId to its MAC for ASnd
// unicast; pass nil to always fall back to the ASnd multicast group.
func NewRawSocketAdapter(ifaceName string, lookup MACResolver) (*RawSocketAdapter, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, err
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	var mac powerlink.MacAddress
	copy(mac[:], iface.HardwareAddr)

	for _, group := range []powerlink.MacAddress{
		powerlink.MulticastSoCPReqSoA, powerlink.MulticastPRes, powerlink.MulticastASnd,
	} {
		mreq := unix.PacketMreq{
			Ifindex: int32(iface.Index),
			Type:    unix.PACKET_MR_MULTICAST,
			Alen:    6,
		}
		copy(mreq.Address[:], group[:])
		_ = unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq)
	}

	udp, err := net.ListenUDP("udp4", &net.UDPAddr{Port: powerlink.UDPPortSDO})
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &RawSocketAdapter{fd: fd, ifIndex: iface.Index, mac: mac, udp: udp, lookup: lookup}, nil
}

func htons(v uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return binary.LittleEndian.Uint16(b)
}

func (a *RawSocketAdapter) LocalMAC() powerlink.MacAddress { return a.mac }

func (a *RawSocketAdapter) SendFrame(payload []byte) error {
	dst := ResolveDestinationMAC(payload, a.lookup)
	raw := BuildEthernetFrame(dst, a.mac, payload)
	addr := unix.SockaddrLinklayer{Ifindex: a.ifIndex, Halen: 6}
	copy(addr.Addr[:], dst[:])
	return unix.Sendto(a.fd, raw, 0, &addr)
}

func (a *RawSocketAdapter) ReceiveFrame(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(a.fd, a.recvBuf[:], unix.MSG_DONTWAIT)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, powerlink.ErrIoError
	}
	return copy(buf, a.recvBuf[:n]), nil
}

func (a *RawSocketAdapter) SendUDP(ip [4]byte, port uint16, payload []byte) error {
	_, err := a.udp.WriteToUDP(payload, &net.UDPAddr{IP: net.IP(ip[:]), Port: int(port)})
	if err != nil {
		return powerlink.ErrIoError
	}
	return nil
}

func (a *RawSocketAdapter) ReceiveUDP(buf []byte) (n int, ip [4]byte, port uint16, ok bool, err error) {
	a.udp.SetReadDeadline(time.Now().Add(time.Microsecond))
	nn, addr, rerr := a.udp.ReadFromUDP(buf)
	if rerr != nil {
		if netErr, isNetErr := rerr.(net.Error); isNetErr && netErr.Timeout() {
			return 0, [4]byte{}, 0, false, nil
		}
		return 0, [4]byte{}, 0, false, powerlink.ErrIoError
	}
	var ipArr [4]byte
	copy(ipArr[:], addr.IP.To4())
	return nn, ipArr, uint16(addr.Port), true, nil
}

func (a *RawSocketAdapter) SetReadTimeout(us uint32) error {
	tv := unix.Timeval{Sec: int64(us / 1_000_000), Usec: int64(us % 1_000_000)}
	return unix.SetsockoptTimeval(a.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Close releases the raw socket and UDP listener.
func (a *RawSocketAdapter) Close() error {
	_ = a.udp.Close()
	return unix.Close(a.fd)
}
