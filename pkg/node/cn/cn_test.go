package cn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/netio"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/plframe"
	"github.com/powerlink/gopowerlink/pkg/sdo"
)

// newTestPair builds a segment with one CN adapter (the node under test)
// and one peer adapter standing in for the MN, so tests can inject a
// frame the way a real MN's SendFrame would deliver it.
func newTestPair(t *testing.T, nodeId powerlink.NodeId) (*Node, *netio.VirtualAdapter) {
	t.Helper()
	segment := netio.NewVirtualSegment()
	cnMac := powerlink.MacAddress{0x02, 0, 0, 0, 0, byte(nodeId)}
	cnAdapter := segment.NewAdapter(cnMac)
	segment.RegisterMAC(nodeId, cnMac)
	mnAdapter := segment.NewAdapter(powerlink.MacAddress{0x02, 0, 0, 0, 0, 0xF0})

	dict := od.New(nil, od.NopPersistence{})
	identity := powerlink.Identity{VendorId: 0x100, ProductCode: 1, Revision: 1, Serial: uint32(nodeId)}
	node := New(nil, cnAdapter, dict, nodeId, identity, nil, nil)
	return node, mnAdapter
}

func sendFrame(t *testing.T, from *netio.VirtualAdapter, f plframe.Frame) {
	t.Helper()
	buf := make([]byte, powerlink.MaxEthernetFrame)
	n, err := f.Serialize(buf)
	require.NoError(t, err)
	require.NoError(t, from.SendFrame(buf[:n]))
}

func TestNodeRunCycleAnswersPReq(t *testing.T) {
	node, mnAdapter := newTestPair(t, 5)
	sendFrame(t, mnAdapter, plframe.PReq{Destination: 5, Source: powerlink.NodeIdMN, RD: true})

	action, err := node.RunCycle(0)
	require.NoError(t, err)
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: action.Bytes})
	require.NoError(t, err)
	pres, ok := frame.(plframe.PRes)
	require.True(t, ok)
	assert.Equal(t, powerlink.NodeId(5), pres.Source)
}

func TestNodeRunCycleIgnoresFrameForOtherNode(t *testing.T) {
	node, mnAdapter := newTestPair(t, 5)
	sendFrame(t, mnAdapter, plframe.PReq{Destination: 9, Source: powerlink.NodeIdMN})

	action, err := node.RunCycle(0)
	require.NoError(t, err)
	assert.Equal(t, powerlink.ActionNone, action.Kind)
}

func TestNodeRunCycleAnswersIdentRequest(t *testing.T) {
	node, mnAdapter := newTestPair(t, 5)
	sendFrame(t, mnAdapter, plframe.SoA{
		Destination:      powerlink.NodeIdBroadcast,
		Source:           powerlink.NodeIdMN,
		RequestedService: plframe.ServiceIdentRequest,
		RequestedTarget:  5,
	})

	action, err := node.RunCycle(0)
	require.NoError(t, err)
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: action.Bytes})
	require.NoError(t, err)
	asnd, ok := frame.(plframe.ASnd)
	require.True(t, ok)
	assert.Equal(t, plframe.ASndIdentResponse, asnd.ServiceId)
}

func TestNodeRunCycleNoFrameReturnsNoAction(t *testing.T) {
	node, _ := newTestPair(t, 7)
	action, err := node.RunCycle(0)
	require.NoError(t, err)
	assert.Equal(t, powerlink.ActionNone, action.Kind)
}

func TestNodeRunCycleRoutesSDOOverASnd(t *testing.T) {
	node, mnAdapter := newTestPair(t, 5)

	client := sdo.NewClient()
	readReq := client.BuildReadByIndex(0x1018, 0)
	sendFrame(t, mnAdapter, plframe.ASnd{Destination: 5, Source: powerlink.NodeIdMN, ServiceId: plframe.ASndSDO, Data: readReq})

	action, err := node.RunCycle(0)
	require.NoError(t, err)
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: action.Bytes})
	require.NoError(t, err)
	asnd, ok := frame.(plframe.ASnd)
	require.True(t, ok)
	assert.Equal(t, plframe.ASndSDO, asnd.ServiceId)
}
