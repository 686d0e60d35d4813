// Package mn wires the Managing Node collaborators — Object Dictionary,
// NMT state machine, DLL engine, SDO server, emergency sink — into the
// single run_cycle entry point spec §4.7/§5 calls for: one pure call per
// tick, driven by the caller's clock, that advances the isochronous
// cycle (SoC -> PReq/PRes per tracked CN -> SoA -> asynchronous period)
// and returns the single Action to perform. Grounded on the teacher's
// pkg/network (the CANopen master-side Network type that owns
// AddRemoteNode, a BusManager and a background SYNC producer goroutine)
// but rebuilt as a single-threaded step machine since spec §5 forbids a
// background scheduler here: the embedding loop supplies now_us and
// gets back exactly one Action per call.
package mn

import (
	"fmt"
	"log/slog"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/dll"
	"github.com/powerlink/gopowerlink/pkg/emergency"
	"github.com/powerlink/gopowerlink/pkg/netio"
	"github.com/powerlink/gopowerlink/pkg/nmt"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/plframe"
	"github.com/powerlink/gopowerlink/pkg/sdo"
)

// phase tracks where RunCycle is within one isochronous cycle (spec
// §4.7). The DLL engine itself is a pure step function; phase is the
// bookkeeping RunCycle needs to spread those steps across many calls
// rather than one blocking loop.
type phase uint8

const (
	phaseStartCycle phase = iota
	phaseSendPReq
	phaseAwaitPRes
	phaseAsyncPeriod
)

// Defaults for the timers RunCycle uses to pace the cycle; an embedding
// node can override them through the Node's CyclePeriodUs, PResTimeoutUs
// and AsyncWindowUs fields before the first RunCycle call.
const (
	DefaultCyclePeriodUs = 1000
	DefaultPResTimeoutUs = 200
	DefaultAsyncWindowUs = 300
)

// Node is a Managing Node: the network-facing orchestrator tying the
// protocol engines to one powerlink.NetworkInterface.
type Node struct {
	logger *slog.Logger
	net    powerlink.NetworkInterface

	Dict      *od.ObjectDictionary
	NMT       *nmt.MN
	DLL       *dll.MNEngine
	SDOServer *sdo.Server

	CyclePeriodUs uint64
	PResTimeoutUs uint64
	AsyncWindowUs uint64

	// Config is the optional BOOT_STEP1 identity/Concise-DCF collaborator
	// (spec §4.4.4, §6.5); nil disables both checks, leaving every
	// identified CN accepted as-is.
	Config    powerlink.ConfigurationInterface
	downloads map[powerlink.NodeId]*configDownload

	phase          phase
	cycleStartUs   uint64
	presDeadlineUs uint64
	asyncStartUs   uint64

	ethBuf [powerlink.MaxEthernetFrame]byte
	udpBuf [powerlink.MaxEthernetFrame]byte
}

// configDownload tracks one in-flight Concise-DCF push to OD 0x1F22 of a
// mismatched CN (spec §4.4.4). Retry/timeout policy is deliberately not
// modeled here: spec §5 assigns retransmission to the SDO sequence layer,
// and the sequence layer this download rides has no standing connection
// failure signal beyond an abort code.
type configDownload struct {
	client           *sdo.Client
	blob             []byte
	offset           int
	txid             uint8
	segmented        bool
	pendingFrame     []byte
	awaitingResponse bool
}

// New builds an MN orchestrator and runs its node-local boot chain
// (spec §4.4.3) so it is ready to enter PreOperational1 and start
// producing SoC once the caller is ready.
func New(logger *slog.Logger, net powerlink.NetworkInterface, dict *od.ObjectDictionary) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mn_node")

	nmtMachine := nmt.NewMN(logger, dict)
	nmtMachine.Boot()
	sink := emergency.NewSink(logger, dict)

	return &Node{
		logger:        logger,
		net:           net,
		Dict:          dict,
		NMT:           nmtMachine,
		DLL:           dll.NewMNEngine(logger, nmtMachine, sink),
		SDOServer:     sdo.NewServer(logger, dict),
		CyclePeriodUs: DefaultCyclePeriodUs,
		PResTimeoutUs: DefaultPResTimeoutUs,
		AsyncWindowUs: DefaultAsyncWindowUs,
		phase:         phaseStartCycle,
	}
}

// AddNode registers a CN to poll each cycle (spec §4.7); call before
// StartNetwork.
func (n *Node) AddNode(cn *dll.TrackedCN) { n.DLL.AddNode(cn) }

// SetConfiguration attaches the BOOT_STEP1 identity/Concise-DCF
// collaborator (spec §6.5). Optional: a nil (or never-set) Config accepts
// every identified CN without an identity or configuration check.
func (n *Node) SetConfiguration(cfg powerlink.ConfigurationInterface) { n.Config = cfg }

// StartNetwork begins BOOT_STEP1 by entering PreOperational1 (spec
// §4.4.3): the next RunCycle call will start producing SoC.
func (n *Node) StartNetwork() {
	n.NMT.EnterPreOperational1()
	n.phase = phaseStartCycle
}

// RunCycle is the MN's run_cycle (spec §4.7, §5): it advances the
// isochronous cycle state machine by exactly one step, using nowUs to
// decide when a new cycle starts and when a PRes has timed out, and
// returns the single resulting Action.
func (n *Node) RunCycle(nowUs uint64) (powerlink.Action, error) {
	switch n.phase {
	case phaseStartCycle:
		return n.startCycle(nowUs)
	case phaseSendPReq:
		return n.sendPReq(nowUs)
	case phaseAwaitPRes:
		return n.awaitPRes(nowUs)
	case phaseAsyncPeriod:
		return n.asyncPeriod(nowUs)
	default:
		n.phase = phaseStartCycle
		return powerlink.NoAction, nil
	}
}

func (n *Node) startCycle(nowUs uint64) (powerlink.Action, error) {
	if n.cycleStartUs != 0 && nowUs-n.cycleStartUs < n.CyclePeriodUs {
		return powerlink.NoAction, nil
	}
	n.cycleStartUs = nowUs
	action := n.DLL.BuildSoC(uint32(nowUs/1_000_000), uint32((nowUs%1_000_000)*1000), nowUs)
	n.phase = phaseSendPReq
	return action, nil
}

func (n *Node) sendPReq(nowUs uint64) (powerlink.Action, error) {
	action, done := n.DLL.NextAction()
	if done {
		n.phase = phaseAsyncPeriod
		n.asyncStartUs = nowUs
		return action, nil
	}
	n.presDeadlineUs = nowUs + n.PResTimeoutUs
	n.phase = phaseAwaitPRes
	return action, nil
}

func (n *Node) awaitPRes(nowUs uint64) (powerlink.Action, error) {
	read, err := n.net.ReceiveFrame(n.ethBuf[:])
	if err != nil {
		return powerlink.NoAction, err
	}
	if read > 0 {
		if eth, perr := netio.ParseEthernetFrame(n.ethBuf[:read]); perr == nil {
			if frame, ferr := plframe.DeserializeFrame(eth); ferr == nil {
				switch f := frame.(type) {
				case plframe.PRes:
					n.DLL.HandlePRes(f)
					n.phase = phaseSendPReq
					return powerlink.NoAction, nil
				case plframe.ASnd:
					n.handleASnd(f)
					return powerlink.NoAction, nil
				}
			}
		}
	}
	if nowUs >= n.presDeadlineUs {
		nodeId, action := n.DLL.HandleMissingPRes()
		n.applyNmtAction(nodeId, action)
		n.phase = phaseSendPReq
	}
	return powerlink.NoAction, nil
}

func (n *Node) asyncPeriod(nowUs uint64) (powerlink.Action, error) {
	if action, sent := n.sendPendingDownload(); sent {
		return action, nil
	}
	if action, handled, err := n.pollAsync(); handled || err != nil {
		return action, err
	}
	if nowUs-n.asyncStartUs >= n.AsyncWindowUs {
		n.phase = phaseStartCycle
	}
	return powerlink.NoAction, nil
}

func (n *Node) pollAsync() (powerlink.Action, bool, error) {
	read, err := n.net.ReceiveFrame(n.ethBuf[:])
	if err != nil {
		return powerlink.NoAction, false, err
	}
	if read > 0 {
		if eth, perr := netio.ParseEthernetFrame(n.ethBuf[:read]); perr == nil {
			if frame, ferr := plframe.DeserializeFrame(eth); ferr == nil {
				if asnd, ok := frame.(plframe.ASnd); ok {
					if asnd.ServiceId == plframe.ASndSDO {
						if dl, pending := n.downloads[asnd.Source]; pending && dl.awaitingResponse {
							return n.handleDownloadResponse(asnd.Source, dl, asnd.Data), true, nil
						}
						resp := n.SDOServer.HandleAsndSDO(asnd.Source, powerlink.NodeIdMN, asnd)
						if resp != nil {
							buf := make([]byte, powerlink.MaxEthernetFrame)
							written, serr := resp.Serialize(buf)
							if serr == nil {
								return powerlink.SendEthernetFrame(buf[:written]), true, nil
							}
						}
						return powerlink.NoAction, true, nil
					}
					n.handleASnd(asnd)
					return powerlink.NoAction, true, nil
				}
			}
		}
	}

	readUDP, ip, port, ok, err := n.net.ReceiveUDP(n.udpBuf[:])
	if err != nil {
		return powerlink.NoAction, false, err
	}
	if ok {
		resp := n.SDOServer.HandleUDPDatagram(fmt.Sprintf("%d.%d.%d.%d:%d", ip[0], ip[1], ip[2], ip[3], port), n.udpBuf[:readUDP])
		if resp != nil {
			return powerlink.SendUDP(ip, port, resp), true, nil
		}
		return powerlink.NoAction, true, nil
	}
	return powerlink.NoAction, false, nil
}

func (n *Node) handleASnd(f plframe.ASnd) {
	n.DLL.HandleASnd(f)
	if f.ServiceId == plframe.ASndIdentResponse {
		n.checkBootStep1(f.Source)
	}
}

// checkBootStep1 runs the identity check and starts the Concise-DCF
// download once a CN's IdentResponse has updated its TrackedCN.Identity. A
// mismatched identity is only logged and no download is started; the CN's
// tracked State is still updated by dll.MNEngine from its PRes and
// StatusResponse frames. No software or configuration dates are compared.
// A matching CN gets a download unless one is already in flight.
func (n *Node) checkBootStep1(nodeId powerlink.NodeId) {
	if n.Config == nil {
		return
	}
	var cn *dll.TrackedCN
	for _, tracked := range n.DLL.Nodes {
		if tracked.Id == nodeId {
			cn = tracked
			break
		}
	}
	if cn == nil {
		return
	}

	if expected, ok := n.Config.GetExpectedIdentity(nodeId); ok && !identityMatches(expected, cn.Identity) {
		n.logger.Warn("identity mismatch against manifest, leaving CN unconfigured", "node", nodeId)
		return
	}
	if _, inProgress := n.downloads[nodeId]; inProgress {
		return
	}
	blob, err := n.Config.GetConfiguration(nodeId)
	if err != nil {
		return
	}
	n.startConfigDownload(nodeId, blob)
}

// identityMatches reports whether actual satisfies expected, treating a
// zero field in expected as "do not check" (mirroring OD 0x1F84-0x1F87's
// own wildcard convention).
func identityMatches(expected, actual powerlink.Identity) bool {
	if expected.DeviceType != 0 && expected.DeviceType != actual.DeviceType {
		return false
	}
	if expected.VendorId != 0 && expected.VendorId != actual.VendorId {
		return false
	}
	if expected.ProductCode != 0 && expected.ProductCode != actual.ProductCode {
		return false
	}
	if expected.Revision != 0 && expected.Revision != actual.Revision {
		return false
	}
	return true
}

func (n *Node) startConfigDownload(nodeId powerlink.NodeId, blob []byte) {
	client := sdo.NewClient()
	frame, txid, segmented := client.BuildWriteByIndex(0x1F22, uint8(nodeId), blob)
	offset := len(blob)
	if segmented {
		offset = sdo.MaxSegmentPayload
		if offset > len(blob) {
			offset = len(blob)
		}
	}
	if n.downloads == nil {
		n.downloads = map[powerlink.NodeId]*configDownload{}
	}
	n.downloads[nodeId] = &configDownload{
		client:       client,
		blob:         blob,
		offset:       offset,
		txid:         txid,
		segmented:    segmented,
		pendingFrame: frame,
	}
	n.logger.Info("starting Concise-DCF download", "node", nodeId, "bytes", len(blob))
}

// sendPendingDownload transmits at most one queued download frame as the
// tick's single Action, per spec §5's one-Action-per-RunCycle contract.
func (n *Node) sendPendingDownload() (powerlink.Action, bool) {
	for nodeId, dl := range n.downloads {
		if dl.pendingFrame == nil || dl.awaitingResponse {
			continue
		}
		asnd := plframe.ASnd{Destination: nodeId, Source: powerlink.NodeIdMN, ServiceId: plframe.ASndSDO, Data: dl.pendingFrame}
		buf := make([]byte, powerlink.MaxEthernetFrame)
		written, err := asnd.Serialize(buf)
		dl.pendingFrame = nil
		dl.awaitingResponse = true
		if err != nil {
			n.logger.Error("failed serializing Concise-DCF download frame", "node", nodeId, "error", err)
			delete(n.downloads, nodeId)
			continue
		}
		return powerlink.SendEthernetFrame(buf[:written]), true
	}
	return powerlink.NoAction, false
}

// handleDownloadResponse consumes the server's ack for the last segment
// sent and either queues the next one or, once the buffer is exhausted,
// retires the download. Nothing confirms the push afterwards: a later
// IdentResponse from the CN runs checkBootStep1 again, which starts
// another download.
func (n *Node) handleDownloadResponse(nodeId powerlink.NodeId, dl *configDownload, frame []byte) powerlink.Action {
	dl.awaitingResponse = false
	_, _, abort, err := sdo.ParseResponse(frame)
	if err != nil || abort != sdo.AbortNone {
		n.logger.Warn("Concise-DCF download aborted", "node", nodeId, "abort", abort, "error", err)
		delete(n.downloads, nodeId)
		return powerlink.NoAction
	}
	if !dl.segmented || dl.offset >= len(dl.blob) {
		n.logger.Info("Concise-DCF download complete", "node", nodeId)
		delete(n.downloads, nodeId)
		return powerlink.NoAction
	}

	end := dl.offset + sdo.MaxSegmentPayload
	phase := sdo.PhaseSegment
	if end >= len(dl.blob) {
		end = len(dl.blob)
		phase = sdo.PhaseComplete
	}
	chunk := dl.blob[dl.offset:end]
	dl.offset = end
	dl.pendingFrame = dl.client.BuildWriteSegment(dl.txid, phase, chunk)
	return powerlink.NoAction
}

// applyNmtAction carries out the NmtAction an emergency counter trip
// produced (spec §4.5.2). ResetNode is only logged; no NMTCommand frame
// is sent to the CN. ResetCommunication is logged and resets the MN's own
// NMT state machine through NMT.ResetCommunication.
func (n *Node) applyNmtAction(nodeId powerlink.NodeId, action emergency.NmtAction) {
	switch action.Kind {
	case emergency.NmtActionResetNode:
		n.logger.Warn("threshold tripped, requesting CN reset", "node", nodeId)
	case emergency.NmtActionResetCommunication:
		n.logger.Warn("threshold tripped, resetting network communication")
		n.NMT.ResetCommunication()
	}
}
