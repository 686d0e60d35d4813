// Package cn wires the Controlled Node collaborators — Object
// Dictionary, NMT state machine, DLL engine, SDO server, emergency sink
// — into the single run_cycle entry point spec §4.7/§5 calls for: one
// pure call per tick that reads whatever is waiting on the network and
// returns the single Action to perform in response. Grounded on the
// teacher's pkg/node/local.go (a LocalNode wiring NMT+SDO+PDO+emergency
// around a BusManager) but rebuilt around powerlink.NetworkInterface and
// plframe instead of a CAN BusManager, and around one RunCycle call
// instead of the teacher's three separate ProcessTPDO/ProcessRPDO/
// ProcessSync/ProcessMain entry points driven by goroutines.
package cn

import (
	"fmt"
	"log/slog"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/dll"
	"github.com/powerlink/gopowerlink/pkg/netio"
	"github.com/powerlink/gopowerlink/pkg/nmt"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/pdo"
	"github.com/powerlink/gopowerlink/pkg/plframe"
	"github.com/powerlink/gopowerlink/pkg/sdo"
)

// Node is a Controlled Node: the network-facing orchestrator that ties
// the protocol engines to one powerlink.NetworkInterface.
type Node struct {
	logger *slog.Logger
	net    powerlink.NetworkInterface

	Dict      *od.ObjectDictionary
	NMT       *nmt.CN
	DLL       *dll.CNEngine
	SDOServer *sdo.Server

	ethBuf [powerlink.MaxEthernetFrame]byte
	udpBuf [powerlink.MaxEthernetFrame]byte
}

// New builds a CN orchestrator and runs the node-local boot chain
// (Off -> ... -> NotActive, spec §4.4.2) so it is ready to react to the
// network as soon as RunCycle is called.
func New(logger *slog.Logger, net powerlink.NetworkInterface, dict *od.ObjectDictionary, nodeId powerlink.NodeId, identity powerlink.Identity, rpdo *pdo.RPDO, tpdo *pdo.TPDO) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cn_node", "node", nodeId)

	nmtMachine := nmt.NewCN(logger, dict)
	nmtMachine.Boot()

	n := &Node{
		logger:    logger,
		net:       net,
		Dict:      dict,
		NMT:       nmtMachine,
		DLL:       dll.NewCNEngine(logger, nodeId, net.LocalMAC(), identity, nmtMachine, dict, rpdo, tpdo),
		SDOServer: sdo.NewServer(logger, dict),
	}
	return n
}

// RunCycle is the CN's run_cycle (spec §4.7, §5): it drains at most one
// Ethernet frame and one UDP datagram from the network and returns the
// single resulting Action. now_us is accepted for parity with the MN's
// RunCycle and future timeout accounting but the CN engine is currently
// purely reactive to received frames.
func (n *Node) RunCycle(nowUs uint64) (powerlink.Action, error) {
	if action, handled, err := n.pollEthernet(); handled || err != nil {
		return action, err
	}
	if action, handled, err := n.pollUDP(); handled || err != nil {
		return action, err
	}
	return powerlink.NoAction, nil
}

func (n *Node) pollEthernet() (powerlink.Action, bool, error) {
	read, err := n.net.ReceiveFrame(n.ethBuf[:])
	if err != nil {
		return powerlink.NoAction, false, err
	}
	if read == 0 {
		return powerlink.NoAction, false, nil
	}
	eth, err := netio.ParseEthernetFrame(n.ethBuf[:read])
	if err != nil {
		n.logger.Debug("dropping malformed ethernet frame", "error", err)
		return powerlink.NoAction, true, nil
	}
	frame, err := plframe.DeserializeFrame(eth)
	if err != nil {
		return powerlink.NoAction, true, nil
	}

	if asnd, ok := frame.(plframe.ASnd); ok && asnd.ServiceId == plframe.ASndSDO && asnd.Destination == n.DLL.NodeId {
		resp := n.SDOServer.HandleAsndSDO(asnd.Source, n.DLL.NodeId, asnd)
		if resp == nil {
			return powerlink.NoAction, true, nil
		}
		buf := make([]byte, powerlink.MaxEthernetFrame)
		written, err := resp.Serialize(buf)
		if err != nil {
			n.logger.Error("failed serializing SDO response", "error", err)
			return powerlink.NoAction, true, nil
		}
		return powerlink.SendEthernetFrame(buf[:written]), true, nil
	}

	return n.DLL.HandleFrame(frame), true, nil
}

func (n *Node) pollUDP() (powerlink.Action, bool, error) {
	read, ip, port, ok, err := n.net.ReceiveUDP(n.udpBuf[:])
	if err != nil {
		return powerlink.NoAction, false, err
	}
	if !ok {
		return powerlink.NoAction, false, nil
	}
	resp := n.SDOServer.HandleUDPDatagram(udpAddr(ip, port), n.udpBuf[:read])
	if resp == nil {
		return powerlink.NoAction, true, nil
	}
	return powerlink.SendUDP(ip, port, resp), true, nil
}

func udpAddr(ip [4]byte, port uint16) string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", ip[0], ip[1], ip[2], ip[3], port)
}
