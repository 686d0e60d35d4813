package sdo

import "fmt"

// UDPPort is the well-known SDO-over-UDP port (spec §4.3.4).
const UDPPort = 3819

// udpMagic is the 4-byte POWERLINK-over-UDP header prefixed to every
// datagram payload, mimicking the ASnd ServiceId=SDO framing (spec
// §4.3.4).
var udpMagic = [4]byte{0x06, 0x00, 0x00, 0x05}

// MaxUDPDatagram bounds one SDO-over-UDP datagram (spec §4.3.4).
const MaxUDPDatagram = 1500

// UDPClientKey builds the ClientKey a Server uses to track one
// SDO-over-UDP client, keyed by the observed source address.
func UDPClientKey(addr string) ClientKey {
	return ClientKey(fmt.Sprintf("udp:%s", addr))
}

// HandleUDPDatagram strips the POWERLINK-over-UDP magic prefix, runs
// the sequence+command layers, and re-wraps the response with the same
// prefix. It returns nil if the datagram is malformed or the sequence
// layer produced nothing to send back.
func (s *Server) HandleUDPDatagram(clientAddr string, datagram []byte) []byte {
	if len(datagram) < len(udpMagic) || [4]byte(datagram[:4]) != udpMagic {
		return nil
	}
	resp := s.Process(UDPClientKey(clientAddr), datagram[4:])
	if resp == nil {
		return nil
	}
	out := make([]byte, 0, len(udpMagic)+len(resp))
	out = append(out, udpMagic[:]...)
	out = append(out, resp...)
	return out
}
