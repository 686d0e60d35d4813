package mn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/dll"
	"github.com/powerlink/gopowerlink/pkg/netio"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/plframe"
	"github.com/powerlink/gopowerlink/pkg/sdo"
)

func newTestNode(t *testing.T) (*Node, *netio.VirtualAdapter) {
	t.Helper()
	segment := netio.NewVirtualSegment()
	adapter := segment.NewAdapter(powerlink.MacAddress{0x02, 0, 0, 0, 0, 0xF0})
	node := New(nil, adapter, od.New(nil, od.NopPersistence{}))
	return node, adapter
}

func TestNodeRunCycleEmitsSoCThenPReq(t *testing.T) {
	node, _ := newTestNode(t)
	node.AddNode(&dll.TrackedCN{Id: 5})
	node.StartNetwork()

	soc, err := node.RunCycle(0)
	require.NoError(t, err)
	assert.Equal(t, powerlink.ActionSendEthernetFrame, soc.Kind)

	preq, err := node.RunCycle(0)
	require.NoError(t, err)
	require.Equal(t, powerlink.ActionSendEthernetFrame, preq.Kind)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: preq.Bytes})
	require.NoError(t, err)
	p, ok := frame.(plframe.PReq)
	require.True(t, ok)
	assert.Equal(t, powerlink.NodeId(5), p.Destination)
}

func TestNodeRunCycleHandlesMissingPResWithoutPanicking(t *testing.T) {
	node, _ := newTestNode(t)
	node.AddNode(&dll.TrackedCN{Id: 5})
	node.StartNetwork()

	_, err := node.RunCycle(0)
	require.NoError(t, err)
	_, err = node.RunCycle(0)
	require.NoError(t, err)

	// Nothing answers the PReq: once now_us reaches the PRes deadline the
	// engine must record the miss and move back to polling rather than
	// blocking forever on one CN.
	action, err := node.RunCycle(node.PResTimeoutUs + 1)
	require.NoError(t, err)
	assert.Equal(t, powerlink.ActionNone, action.Kind)
	assert.Equal(t, phaseSendPReq, node.phase)
}

type fakeConfig struct {
	expected powerlink.Identity
	haveOK   bool
	blob     []byte
	blobErr  error
}

func (f *fakeConfig) GetExpectedIdentity(node powerlink.NodeId) (powerlink.Identity, bool) {
	return f.expected, f.haveOK
}

func (f *fakeConfig) GetConfiguration(node powerlink.NodeId) ([]byte, error) {
	return f.blob, f.blobErr
}

func (f *fakeConfig) IsSoftwareUpdateRequired(node powerlink.NodeId, receivedDate, receivedTime uint16) bool {
	return false
}

func TestCheckBootStep1RejectsIdentityMismatch(t *testing.T) {
	node, _ := newTestNode(t)
	tracked := &dll.TrackedCN{Id: 5, Identity: powerlink.Identity{VendorId: 0x100, ProductCode: 1}}
	node.AddNode(tracked)
	node.SetConfiguration(&fakeConfig{expected: powerlink.Identity{VendorId: 0x999}, haveOK: true})

	node.checkBootStep1(5)
	assert.Nil(t, node.downloads[5])
}

func TestCheckBootStep1StartsConciseDCFDownload(t *testing.T) {
	node, _ := newTestNode(t)
	identity := powerlink.Identity{VendorId: 0x100, ProductCode: 1}
	node.AddNode(&dll.TrackedCN{Id: 5, Identity: identity})
	blob := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	node.SetConfiguration(&fakeConfig{expected: identity, haveOK: true, blob: blob})

	node.checkBootStep1(5)
	require.NotNil(t, node.downloads[5])
	assert.Equal(t, blob, node.downloads[5].blob)
	assert.NotNil(t, node.downloads[5].pendingFrame)
}

func TestSendPendingDownloadThenHandleDownloadResponseRetiresTransfer(t *testing.T) {
	node, _ := newTestNode(t)
	identity := powerlink.Identity{VendorId: 0x100}
	node.AddNode(&dll.TrackedCN{Id: 5, Identity: identity})

	// A Concise-DCF blob small enough for an expedited (single-frame) write.
	blob := []byte{0x01, 0x02, 0x03}
	node.SetConfiguration(&fakeConfig{expected: identity, haveOK: true, blob: blob})
	node.checkBootStep1(5)
	require.NotNil(t, node.downloads[5])

	action, sent := node.sendPendingDownload()
	require.True(t, sent)
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)
	assert.True(t, node.downloads[5].awaitingResponse)

	// The Concise-DCF target, 0x1F22 sub 5, is modelled here as a Domain
	// array entry so the CN's own SDO server can answer the write for
	// real instead of a hand-built ack frame.
	cnDict := od.New(nil, od.NopPersistence{})
	list := od.NewArray()
	v, err := od.NewVariable(5, "ConciseDCF", od.Domain, od.AccessRW, []byte{})
	require.NoError(t, err)
	list.AddSubObject(5, v)
	cnDict.Insert(od.NewListEntry(0x1F22, "StoreConfiguration", list))
	cnServer := sdo.NewServer(nil, cnDict)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: action.Bytes})
	require.NoError(t, err)
	asnd := frame.(plframe.ASnd)
	resp := cnServer.HandleAsndSDO(powerlink.NodeIdMN, 5, asnd)
	require.NotNil(t, resp)

	result := node.handleDownloadResponse(5, node.downloads[5], resp.Data)
	assert.Equal(t, powerlink.ActionNone, result.Kind)
	assert.Nil(t, node.downloads[5])

	got, err := cnDict.Read(0x1F22, 5)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}
