// Command powerlink-sim drives one Managing Node and a handful of
// Controlled Nodes against an in-memory netio.VirtualSegment, stepping
// every node's RunCycle in lockstep. It exists to exercise the
// NetworkInterface/Action contract end to end without a real Ethernet
// segment, the way the teacher's cmd/canopen/main.go exercises a
// BusManager against a SocketCAN or virtual CAN bus.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/dll"
	"github.com/powerlink/gopowerlink/pkg/netio"
	"github.com/powerlink/gopowerlink/pkg/node/cn"
	"github.com/powerlink/gopowerlink/pkg/node/mn"
	"github.com/powerlink/gopowerlink/pkg/od"
)

func main() {
	log.SetLevel(log.InfoLevel)

	cnCount := flag.Int("n", 3, "number of simulated Controlled Nodes")
	cycles := flag.Int("cycles", 200, "number of RunCycle ticks to run")
	flag.Parse()

	// Internal engine components log through slog (matching pkg/nmt,
	// pkg/dll, pkg/emergency); the CLI itself logs through logrus, the
	// way the teacher's cmd/canopen/main.go does for top-level status.
	componentLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	segment := netio.NewVirtualSegment()

	mnMAC := powerlink.MacAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0xF0}
	mnAdapter := segment.NewAdapter(mnMAC)
	mnNode := mn.New(componentLogger, mnAdapter, od.New(componentLogger, od.NopPersistence{}))

	cnNodes := make([]*cn.Node, 0, *cnCount)
	cnAdapters := make([]*netio.VirtualAdapter, 0, *cnCount)
	for i := 0; i < *cnCount; i++ {
		nodeId := powerlink.NodeId(1 + i)
		mac := powerlink.MacAddress{0x02, 0x00, 0x00, 0x00, 0x00, byte(nodeId)}
		adapter := segment.NewAdapter(mac)
		segment.RegisterMAC(nodeId, mac)

		identity := powerlink.Identity{VendorId: 0x00000100, ProductCode: 0x00000001, Revision: 1, Serial: uint32(nodeId)}
		dict := od.New(componentLogger, od.NopPersistence{})
		node := cn.New(componentLogger, adapter, dict, nodeId, identity, nil, nil)
		cnNodes = append(cnNodes, node)
		cnAdapters = append(cnAdapters, adapter)

		mnNode.AddNode(&dll.TrackedCN{Id: nodeId, Identity: identity})
		log.Infof("simulated CN %d joined the segment", nodeId)
	}

	mnNode.StartNetwork()
	log.Info("MN entering PreOperational1, starting isochronous polling")

	start := time.Now()
	for tick := 0; tick < *cycles; tick++ {
		nowUs := uint64(time.Since(start).Microseconds())

		if action, err := mnNode.RunCycle(nowUs); err != nil {
			log.Errorf("MN RunCycle error: %v", err)
		} else {
			deliver(mnAdapter, action)
		}

		for i, node := range cnNodes {
			action, err := node.RunCycle(nowUs)
			if err != nil {
				log.Errorf("CN %d RunCycle error: %v", i+1, err)
				continue
			}
			deliver(cnAdapters[i], action)
		}
	}

	log.Infof("ran %d cycles against %d simulated CNs", *cycles, *cnCount)
}

// deliver performs the Action's I/O against the adapter that produced it,
// matching the embedding-loop contract of spec §5
// ("match action { SendEthernetFrame(b) => write(...); ... }").
func deliver(adapter *netio.VirtualAdapter, action powerlink.Action) {
	switch action.Kind {
	case powerlink.ActionSendEthernetFrame:
		_ = adapter.SendFrame(action.Bytes)
	case powerlink.ActionSendUDP:
		_ = adapter.SendUDP(action.IP, action.Port, action.Bytes)
	}
}
