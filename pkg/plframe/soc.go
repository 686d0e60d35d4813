package plframe

import "github.com/powerlink/gopowerlink"

// SoCFlags carries the two status bits attached to a Start of Cycle frame
// (spec §4.1.1).
type SoCFlags struct {
	// MC indicates the previous cycle completed a multiplexed slot.
	MC bool
	// PS indicates the previous cycle consumed a prescaled slot.
	PS bool
}

// SoC is the Start of Cycle frame, broadcast by the MN at the start of
// every isochronous cycle.
type SoC struct {
	Destination  powerlink.NodeId
	Source       powerlink.NodeId
	Flags        SoCFlags
	NetTimeSec   uint32
	NetTimeNsec  uint32
	RelativeTime uint64
}

func (f SoC) MessageType() powerlink.MessageType { return powerlink.MessageTypeSoC }

// Serialize writes the SoC payload (PL header onward) into buf, which must
// have capacity for at least 21 bytes (PL header plus the 18-byte body).
func (f SoC) Serialize(buf []byte) (int, error) {
	const bodyLen = 1 + 1 + 4 + 4 + 8
	if len(buf) < plHeaderSize+bodyLen {
		return 0, powerlink.ErrBufferTooShort
	}
	putPLHeader(buf, powerlink.MessageTypeSoC, f.Destination, f.Source)
	off := plHeaderSize
	buf[off] = 0 // reserved
	off++
	var flags byte
	if f.Flags.MC {
		flags |= 1 << 7
	}
	if f.Flags.PS {
		flags |= 1 << 6
	}
	buf[off] = flags
	off++
	putLE32(buf[off:], f.NetTimeSec)
	off += 4
	putLE32(buf[off:], f.NetTimeNsec)
	off += 4
	putLE64(buf[off:], f.RelativeTime)
	off += 8
	return off, nil
}

func deserializeSoC(dst, src powerlink.NodeId, buf []byte) (Frame, error) {
	const bodyLen = 1 + 1 + 4 + 4 + 8
	if len(buf) < plHeaderSize+bodyLen {
		return nil, powerlink.ErrTruncatedFrame
	}
	off := plHeaderSize + 1 // skip reserved
	flags := buf[off]
	off++
	sec := le32(buf[off:])
	off += 4
	nsec := le32(buf[off:])
	off += 4
	rel := le64(buf[off:])
	return SoC{
		Destination:  dst,
		Source:       src,
		Flags:        SoCFlags{MC: flags&(1<<7) != 0, PS: flags&(1<<6) != 0},
		NetTimeSec:   sec,
		NetTimeNsec:  nsec,
		RelativeTime: rel,
	}, nil
}
