package plframe

import "github.com/powerlink/gopowerlink"

// PRFlag is the 3-bit ASnd request priority a CN advertises in PRes.
type PRFlag uint8

const (
	PRLow1          PRFlag = 0b000
	PRLow2          PRFlag = 0b001
	PRLow3          PRFlag = 0b010
	PRLow4          PRFlag = 0b011
	PRLow5          PRFlag = 0b100
	PRLow6          PRFlag = 0b101
	PRGeneric       PRFlag = 0b110
	PRNmtRequest    PRFlag = 0b111
)

// RSFlag is the 3-bit ASnd request slot count a CN advertises in PRes,
// clamped to the 0..=7 range the wire format allows.
type RSFlag uint8

// NewRSFlag clamps v into the representable 0..=7 range.
func NewRSFlag(v uint8) RSFlag {
	if v > 7 {
		v = 7
	}
	return RSFlag(v)
}

// PResFlags are the CN status flags attached to a Poll Response
// (spec §4.1.3, grounded byte-for-byte on the reference implementation's
// PResFlags/Codec pair).
type PResFlags struct {
	// MS indicates a multiplexed slot was consumed this cycle.
	MS bool
	// EN indicates the CN has at least one active exception (error/event).
	EN bool
	// RD indicates the CN's TPDO data is valid and ready to be consumed.
	RD bool
	PR PRFlag
	RS RSFlag
}

// PRes is the Poll Response frame a CN sends after being polled with
// PReq (or, for the MN's own response, after SoC).
type PRes struct {
	Destination powerlink.NodeId
	Source      powerlink.NodeId
	NMTState    uint8
	Flags       PResFlags
	PDOVersion  uint8
	Payload     []byte
}

func (f PRes) MessageType() powerlink.MessageType { return powerlink.MessageTypePRes }

func (f PRes) Serialize(buf []byte) (int, error) {
	const headLen = 1 + 1 + 1 + 1 + 1 + 2 // NMTState, Flags1, Flags2, PDOVersion, Reserved, Size
	need := plHeaderSize + headLen + len(f.Payload)
	if len(buf) < need {
		return 0, powerlink.ErrBufferTooShort
	}
	putPLHeader(buf, powerlink.MessageTypePRes, f.Destination, f.Source)
	off := plHeaderSize
	buf[off] = f.NMTState
	off++
	var flags1 byte
	if f.Flags.MS {
		flags1 |= 1 << 5
	}
	if f.Flags.EN {
		flags1 |= 1 << 4
	}
	if f.Flags.RD {
		flags1 |= 1 << 0
	}
	buf[off] = flags1
	off++
	buf[off] = byte(f.Flags.PR)<<3 | byte(f.Flags.RS)
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

func deserializePRes(eth powerlink.EthernetFrame, dst, src powerlink.NodeId, buf []byte) (Frame, error) {
	const headLen = 1 + 1 + 1 + 1 + 1 + 2
	if len(buf) < plHeaderSize+headLen {
		return nil, powerlink.ErrTruncatedFrame
	}
	off := plHeaderSize
	nmtState := buf[off]
	off++
	flags1 := buf[off]
	off++
	flags2 := buf[off]
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
	return PRes{
		Destination: dst,
		Source:      src,
		NMTState:    nmtState,
		Flags: PResFlags{
			MS: flags1&(1<<5) != 0,
			EN: flags1&(1<<4) != 0,
			RD: flags1&(1<<0) != 0,
			PR: PRFlag((flags2 >> 3) & 0x07),
			RS: RSFlag(flags2 & 0x07),
		},
		PDOVersion: pdoVersion,
		Payload:    payload,
	}, nil
}
