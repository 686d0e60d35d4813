// Package dll implements the Data Link Layer cycle engines (spec §4.1,
// §4.7): DLL_CS on the Controlled Node side and DLL_MS on the Managing
// Node side. Both are pure: HandleFrame/Step take the current engine
// state and an input, and return the single Action the caller should
// perform, matching the single-threaded event-driven model of spec §5
// rather than the teacher's goroutine-per-node architecture.
package dll

import (
	"log/slog"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/emergency"
	"github.com/powerlink/gopowerlink/pkg/nmt"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/pdo"
	"github.com/powerlink/gopowerlink/pkg/plframe"
)

// CNEngine is the Controlled Node's Data Link Layer: it reacts to the
// three frame types a CN ever needs to answer (SoC, PReq addressed to
// it, SoA inviting it) and stays silent otherwise.
type CNEngine struct {
	logger   *slog.Logger
	NodeId   powerlink.NodeId
	MAC      powerlink.MacAddress
	Identity powerlink.Identity

	NMT      *nmt.CN
	Counters *emergency.CnCounters
	Sink     *emergency.Sink
	RPDO     *pdo.RPDO
	TPDO     *pdo.TPDO

	pdoVersion uint8
	sendBuf    [powerlink.MaxEthernetFrame]byte
}

// NewCNEngine wires a CNEngine from its collaborators. RPDO/TPDO may be
// nil if the node maps no process data (spec §4.6 allows a CN with an
// empty mapping).
func NewCNEngine(logger *slog.Logger, nodeId powerlink.NodeId, mac powerlink.MacAddress, identity powerlink.Identity, nmtMachine *nmt.CN, dict *od.ObjectDictionary, rpdo *pdo.RPDO, tpdo *pdo.TPDO) *CNEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CNEngine{
		logger:   logger.With("component", "dll_cs", "node", nodeId),
		NodeId:   nodeId,
		MAC:      mac,
		Identity: identity,
		NMT:      nmtMachine,
		Counters: emergency.NewCnCounters(),
		Sink:     emergency.NewSink(logger, dict),
		RPDO:     rpdo,
		TPDO:     tpdo,
	}
}

// HandleFrame processes one received frame and returns the Action (if
// any) the node's network I/O loop should perform in response.
func (e *CNEngine) HandleFrame(frame plframe.Frame) powerlink.Action {
	switch f := frame.(type) {
	case plframe.SoC:
		return e.onSoC(f)
	case plframe.PReq:
		return e.onPReq(f)
	case plframe.SoA:
		return e.onSoA(f)
	default:
		return powerlink.NoAction
	}
}

func (e *CNEngine) onSoC(f plframe.SoC) powerlink.Action {
	e.NMT.OnReducedCycleFrame()
	if e.Counters.OnCycleComplete() {
		e.logger.Info("dll error counters decayed to zero")
	}
	return powerlink.NoAction
}

func (e *CNEngine) onPReq(f plframe.PReq) powerlink.Action {
	if f.Destination != e.NodeId {
		return powerlink.NoAction
	}
	e.NMT.OnIdentified()

	if e.RPDO != nil {
		if err := e.RPDO.Consume(f.Payload); err != nil {
			action, _ := e.Counters.HandleError(emergency.ErrPDOPayloadShort)
			e.Sink.ReportDllError(emergency.ErrPDOPayloadShort)
			_ = action // CN-side PDO errors never request ResetNode; only logged + counted
		}
	}

	var payload []byte
	if e.TPDO != nil {
		var err error
		payload, err = e.TPDO.Produce()
		if err != nil {
			e.logger.Error("failed producing PRes payload", "error", err)
			payload = nil
		}
	}

	resp := plframe.PRes{
		Destination: powerlink.NodeIdBroadcast,
		Source:      e.NodeId,
		NMTState:    e.NMT.State().WireCode(),
		Flags: plframe.PResFlags{
			EN: e.Sink.IsErrorSignaled(),
			RD: true,
			PR: plframe.PRLow1,
			RS: plframe.NewRSFlag(0),
		},
		PDOVersion: e.pdoVersion,
		Payload:    payload,
	}
	n, err := resp.Serialize(e.sendBuf[:])
	if err != nil {
		e.logger.Error("failed serializing PRes", "error", err)
		return powerlink.NoAction
	}
	out := make([]byte, n)
	copy(out, e.sendBuf[:n])
	return powerlink.SendEthernetFrame(out)
}

func (e *CNEngine) onSoA(f plframe.SoA) powerlink.Action {
	e.NMT.OnReducedCycleFrame()
	if f.RequestedTarget != e.NodeId {
		return powerlink.NoAction
	}
	switch f.RequestedService {
	case plframe.ServiceIdentRequest:
		return e.sendIdentResponse()
	case plframe.ServiceStatusRequest:
		return e.sendStatusResponse()
	default:
		return powerlink.NoAction
	}
}

func (e *CNEngine) sendIdentResponse() powerlink.Action {
	data := make([]byte, 20)
	putLE32(data[0:4], e.Identity.VendorId)
	putLE32(data[4:8], e.Identity.ProductCode)
	putLE32(data[8:12], e.Identity.Revision)
	putLE32(data[12:16], e.Identity.Serial)
	putLE32(data[16:20], e.Identity.DeviceType)
	asnd := plframe.ASnd{
		Destination: powerlink.NodeIdMN,
		Source:      e.NodeId,
		ServiceId:   plframe.ASndIdentResponse,
		Data:        data,
	}
	n, err := asnd.Serialize(e.sendBuf[:])
	if err != nil {
		e.logger.Error("failed serializing IdentResponse", "error", err)
		return powerlink.NoAction
	}
	out := make([]byte, n)
	copy(out, e.sendBuf[:n])
	return powerlink.SendEthernetFrame(out)
}

func (e *CNEngine) sendStatusResponse() powerlink.Action {
	data := []byte{e.NMT.State().WireCode()}
	asnd := plframe.ASnd{
		Destination: powerlink.NodeIdMN,
		Source:      e.NodeId,
		ServiceId:   plframe.ASndStatusResponse,
		Data:        data,
	}
	n, err := asnd.Serialize(e.sendBuf[:])
	if err != nil {
		e.logger.Error("failed serializing StatusResponse", "error", err)
		return powerlink.NoAction
	}
	out := make([]byte, n)
	copy(out, e.sendBuf[:n])
	return powerlink.SendEthernetFrame(out)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
