package dll

import (
	"encoding/binary"
	"log/slog"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/emergency"
	"github.com/powerlink/gopowerlink/pkg/nmt"
	"github.com/powerlink/gopowerlink/pkg/pdo"
	"github.com/powerlink/gopowerlink/pkg/plframe"
)

// TrackedCN is the MN's bookkeeping for one CN across the isochronous
// cycle and BOOT_STEP1 (spec §4.4.4, §4.7).
type TrackedCN struct {
	Id       powerlink.NodeId
	RPDO     *pdo.RPDO // consumes this CN's PRes
	TPDO     *pdo.TPDO // produces this CN's PReq
	Identity powerlink.Identity
	Expected powerlink.Identity
	State    nmt.State
	// CanAdvanceTo reports whether the CN's own NMT state report is
	// consistent with the MN's current boot step, mirroring the
	// reference implementation's TrackedState.CanAdvanceTo guard: a CN
	// reporting PreOperational2 while the MN is still in
	// PreOperational1 must not be treated as ready.
}

// CanAdvanceTo reports whether next is a state DS301 allows this CN to
// have reached given the MN's own current boot state mnState.
func (t *TrackedCN) CanAdvanceTo(next nmt.State, mnState nmt.State) bool {
	switch mnState {
	case nmt.StatePreOperational1:
		return next == nmt.StatePreOperational1
	case nmt.StatePreOperational2:
		return next == nmt.StatePreOperational1 || next == nmt.StatePreOperational2
	default:
		return true
	}
}

// MNEngine is the Managing Node's Data Link Layer: it drives the
// isochronous cycle (SoC, one PReq/PRes exchange per tracked CN, then
// SoA) and processes the ASnd responses that carry IdentResponse and
// StatusResponse during BOOT_STEP1 (spec §4.4.4, §4.7).
type MNEngine struct {
	logger *slog.Logger

	NMT      *nmt.MN
	Counters *emergency.MnCounters
	Sink     *emergency.Sink
	Nodes    []*TrackedCN

	cycleIndex int
	sendBuf    [powerlink.MaxEthernetFrame]byte
}

// NewMNEngine wires an MNEngine from its collaborators.
func NewMNEngine(logger *slog.Logger, nmtMachine *nmt.MN, sink *emergency.Sink) *MNEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MNEngine{
		logger:   logger.With("component", "dll_ms"),
		NMT:      nmtMachine,
		Counters: emergency.NewMnCounters(),
		Sink:     sink,
	}
}

// AddNode registers a CN to be polled each cycle, in the order added.
func (e *MNEngine) AddNode(cn *TrackedCN) { e.Nodes = append(e.Nodes, cn) }

// BuildSoC resets the cycle to its first slot and returns the Action to
// broadcast SoC.
func (e *MNEngine) BuildSoC(netTimeSec, netTimeNsec uint32, relativeTime uint64) powerlink.Action {
	e.cycleIndex = 0
	soc := plframe.SoC{
		Destination:  powerlink.NodeIdBroadcast,
		Source:       powerlink.NodeIdMN,
		NetTimeSec:   netTimeSec,
		NetTimeNsec:  netTimeNsec,
		RelativeTime: relativeTime,
	}
	return e.serialize(soc)
}

// NextAction returns the next Action in the isochronous cycle: a PReq to
// the next tracked CN, or (once every CN has been polled) the SoA that
// opens the asynchronous period. done reports the latter case.
func (e *MNEngine) NextAction() (action powerlink.Action, done bool) {
	if e.cycleIndex >= len(e.Nodes) {
		return e.serialize(plframe.SoA{
			Destination:      powerlink.NodeIdBroadcast,
			Source:           powerlink.NodeIdMN,
			EPLVersion:       0x20,
			RequestedService: plframe.ServiceUnspecifiedInvite,
		}), true
	}
	cn := e.Nodes[e.cycleIndex]
	var payload []byte
	if cn.TPDO != nil {
		if p, err := cn.TPDO.Produce(); err == nil {
			payload = p
		} else {
			e.logger.Error("failed producing PReq payload", "node", cn.Id, "error", err)
		}
	}
	return e.serialize(plframe.PReq{
		Destination: cn.Id,
		Source:      powerlink.NodeIdMN,
		RD:          true,
		Payload:     payload,
	}), false
}

// HandlePRes consumes a CN's Poll Response: its process data is written
// into the matching TrackedCN's RPDO and its reported NMT state is
// recorded, then the cycle advances to the next CN.
func (e *MNEngine) HandlePRes(f plframe.PRes) {
	cn := e.findNode(f.Source)
	if cn == nil {
		return
	}
	cn.State = stateFromWireCode(f.NMTState)
	if cn.RPDO != nil {
		if err := cn.RPDO.Consume(f.Payload); err != nil {
			action, _ := e.Counters.HandleCnError(f.Source, emergency.ErrPDOPayloadShort)
			e.Sink.ReportDllError(emergency.ErrPDOPayloadShort)
			_ = action
		}
	}
	e.cycleIndex++
}

// HandleMissingPRes is called by the embedding loop when the expected
// PRes for the currently polled CN does not arrive before the next
// scheduled slot, advancing the cycle and counting the loss
// (spec §4.5.1 Table 28, cn_loss_of_pres).
func (e *MNEngine) HandleMissingPRes() (nodeId powerlink.NodeId, action emergency.NmtAction) {
	if e.cycleIndex >= len(e.Nodes) {
		return 0, emergency.NmtAction{}
	}
	cn := e.Nodes[e.cycleIndex]
	act, _ := e.Counters.HandleCnError(cn.Id, emergency.ErrCNLossOfPRes)
	e.Sink.ReportDllError(emergency.ErrCNLossOfPRes)
	e.cycleIndex++
	return cn.Id, act
}

// HandleASnd processes IdentResponse/StatusResponse ASnd frames
// received during the asynchronous period.
func (e *MNEngine) HandleASnd(f plframe.ASnd) {
	cn := e.findNode(f.Source)
	if cn == nil {
		return
	}
	switch f.ServiceId {
	case plframe.ASndIdentResponse:
		if len(f.Data) < 20 {
			return
		}
		cn.Identity = powerlink.Identity{
			VendorId:    binary.LittleEndian.Uint32(f.Data[0:4]),
			ProductCode: binary.LittleEndian.Uint32(f.Data[4:8]),
			Revision:    binary.LittleEndian.Uint32(f.Data[8:12]),
			Serial:      binary.LittleEndian.Uint32(f.Data[12:16]),
			DeviceType:  binary.LittleEndian.Uint32(f.Data[16:20]),
		}
	case plframe.ASndStatusResponse:
		if len(f.Data) < 1 {
			return
		}
		cn.State = stateFromWireCode(f.Data[0])
	}
}

func (e *MNEngine) findNode(id powerlink.NodeId) *TrackedCN {
	for _, cn := range e.Nodes {
		if cn.Id == id {
			return cn
		}
	}
	return nil
}

func (e *MNEngine) serialize(f plframe.Frame) powerlink.Action {
	n, err := f.Serialize(e.sendBuf[:])
	if err != nil {
		e.logger.Error("failed serializing frame", "type", f.MessageType(), "error", err)
		return powerlink.NoAction
	}
	out := make([]byte, n)
	copy(out, e.sendBuf[:n])
	return powerlink.SendEthernetFrame(out)
}

func stateFromWireCode(code uint8) nmt.State {
	for _, s := range []nmt.State{
		nmt.StateOff, nmt.StateInitialising, nmt.StateResetApplication,
		nmt.StateResetCommunication, nmt.StateResetConfiguration, nmt.StateNotActive,
		nmt.StatePreOperational1, nmt.StatePreOperational2, nmt.StateReadyToOperate,
		nmt.StateOperational, nmt.StateStopped, nmt.StateBasicEthernet,
	} {
		if s.WireCode() == code {
			return s
		}
	}
	return nmt.StateOff
}
