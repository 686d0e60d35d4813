package dll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	powerlink "github.com/powerlink/gopowerlink"
	"github.com/powerlink/gopowerlink/pkg/emergency"
	"github.com/powerlink/gopowerlink/pkg/nmt"
	"github.com/powerlink/gopowerlink/pkg/od"
	"github.com/powerlink/gopowerlink/pkg/pdo"
	"github.com/powerlink/gopowerlink/pkg/plframe"
)

func newCNEngine(t *testing.T) (*CNEngine, *od.ObjectDictionary) {
	t.Helper()
	dict := od.New(nil, od.NopPersistence{})
	v, err := od.NewVariable(0, "ControlWord", od.Unsigned16, od.AccessRW, []byte{0, 0})
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x6001, "ControlWord", v))
	mapping := pdo.Mapping{Objects: []pdo.MappedObject{{Index: 0x6001, SubIndex: 0, BitLength: 16}}}
	rpdo := pdo.NewRPDO(dict, mapping)

	n := nmt.NewCN(nil, dict)
	n.Boot()
	n.OnReducedCycleFrame()
	n.OnIdentified()

	e := NewCNEngine(nil, 5, powerlink.MacAddress{}, powerlink.Identity{VendorId: 1}, n, dict, rpdo, nil)
	return e, dict
}

func TestCNEngineRespondsToPReq(t *testing.T) {
	e, dict := newCNEngine(t)
	action := e.HandleFrame(plframe.PReq{
		Destination: 5,
		Source:      powerlink.NodeIdMN,
		Payload:     []byte{0x01, 0x02},
	})
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)

	got, err := dict.Read(0x6001, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, got)
}

func TestCNEngineIgnoresPReqForOtherNode(t *testing.T) {
	e, _ := newCNEngine(t)
	action := e.HandleFrame(plframe.PReq{Destination: 9, Source: powerlink.NodeIdMN})
	assert.Equal(t, powerlink.ActionNone, action.Kind)
}

func TestCNEngineRespondsToIdentRequest(t *testing.T) {
	e, _ := newCNEngine(t)
	action := e.HandleFrame(plframe.SoA{
		Destination:       powerlink.NodeIdBroadcast,
		Source:            powerlink.NodeIdMN,
		RequestedService:  plframe.ServiceIdentRequest,
		RequestedTarget:   5,
	})
	require.Equal(t, powerlink.ActionSendEthernetFrame, action.Kind)

	frame, err := plframe.DeserializeFrame(powerlink.EthernetFrame{EtherType: powerlink.EtherTypePowerlink, Payload: action.Bytes})
	require.NoError(t, err)
	asnd := frame.(plframe.ASnd)
	assert.Equal(t, plframe.ASndIdentResponse, asnd.ServiceId)
}

func TestMNEngineFullCycle(t *testing.T) {
	dict := od.New(nil, od.NopPersistence{})
	v, err := od.NewVariable(0, "CNStatus", od.Unsigned16, od.AccessRW, []byte{0, 0})
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x6100, "CNStatus", v))
	mapping := pdo.Mapping{Objects: []pdo.MappedObject{{Index: 0x6100, SubIndex: 0, BitLength: 16}}}

	mn := nmt.NewMN(nil, dict)
	mn.Boot()
	sink := emergency.NewSink(nil, dict)
	engine := NewMNEngine(nil, mn, sink)
	engine.AddNode(&TrackedCN{Id: 5, RPDO: pdo.NewRPDO(dict, mapping)})

	socAction := engine.BuildSoC(0, 0, 0)
	require.Equal(t, powerlink.ActionSendEthernetFrame, socAction.Kind)

	pollAction, done := engine.NextAction()
	require.False(t, done)
	require.Equal(t, powerlink.ActionSendEthernetFrame, pollAction.Kind)

	engine.HandlePRes(plframe.PRes{
		Destination: powerlink.NodeIdBroadcast,
		Source:      5,
		NMTState:    nmt.StateOperational.WireCode(),
		Payload:     []byte{0x42, 0x00},
	})

	_, done = engine.NextAction()
	assert.True(t, done)

	got, err := dict.Read(0x6100, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x42, 0x00}, got)
	assert.Equal(t, nmt.StateOperational, engine.Nodes[0].State)
}
