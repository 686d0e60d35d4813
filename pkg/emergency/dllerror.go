package emergency

import powerlink "github.com/powerlink/gopowerlink"

// DllError enumerates the DLL-detected error conditions that feed the
// threshold counters (spec §4.5.1, Tables 27/28).
type DllError uint8

const (
	ErrCollision DllError = iota
	ErrLossOfSoC
	ErrLossOfSoA
	ErrLossOfPReq
	ErrSoCJitter
	ErrCRC
	ErrHeartbeatTimeout
	ErrLossOfLink
	ErrPDOMapVersion
	ErrPDOPayloadShort
	ErrCNLatePRes
	ErrCNLossOfPRes
	ErrCNLossOfStatusResponse
	ErrCycleTimeExceeded
)

func (e DllError) String() string {
	switch e {
	case ErrCollision:
		return "collision"
	case ErrLossOfSoC:
		return "loss of SoC"
	case ErrLossOfSoA:
		return "loss of SoA"
	case ErrLossOfPReq:
		return "loss of PReq"
	case ErrSoCJitter:
		return "SoC jitter"
	case ErrCRC:
		return "CRC error"
	case ErrHeartbeatTimeout:
		return "heartbeat timeout"
	case ErrLossOfLink:
		return "loss of link"
	case ErrPDOMapVersion:
		return "PDO mapping version mismatch"
	case ErrPDOPayloadShort:
		return "PDO payload shorter than mapped"
	case ErrCNLatePRes:
		return "CN PRes arrived late"
	case ErrCNLossOfPRes:
		return "loss of CN PRes"
	case ErrCNLossOfStatusResponse:
		return "loss of CN StatusResponse"
	case ErrCycleTimeExceeded:
		return "cycle time exceeded"
	default:
		return "unknown DLL error"
	}
}

// NmtActionKind discriminates the NMT reaction a tripped threshold
// counter asks for.
type NmtActionKind uint8

const (
	NmtActionNone NmtActionKind = iota
	NmtActionResetCommunication
	NmtActionResetNode
)

// NmtAction is the reaction signaled back to the NMT state machine when
// a threshold counter trips (spec §4.5.1 Tables 27/28). Node is only
// meaningful when Kind is NmtActionResetNode.
type NmtAction struct {
	Kind NmtActionKind
	Node powerlink.NodeId
}

var noAction = NmtAction{Kind: NmtActionNone}
