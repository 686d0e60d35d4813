package nmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlink/gopowerlink/pkg/od"
)

func TestCNBootSequence(t *testing.T) {
	dict := od.New(nil, od.NopPersistence{})
	cn := NewCN(nil, dict)
	cn.Boot()
	assert.Equal(t, StateNotActive, cn.State())

	entry, err := dict.Find(0x1F8C)
	require.NoError(t, err)
	v, err := entry.SubIndex(0)
	require.NoError(t, err)
	code, err := v.Uint8()
	require.NoError(t, err)
	assert.Equal(t, StateNotActive.WireCode(), code)
}

func TestCNFullCycleToOperational(t *testing.T) {
	cn := NewCN(nil, od.New(nil, od.NopPersistence{}))
	cn.Boot()
	cn.OnReducedCycleFrame()
	assert.Equal(t, StatePreOperational1, cn.State())
	cn.OnIdentified()
	assert.Equal(t, StatePreOperational2, cn.State())

	require.NoError(t, cn.ApplyCommand(CmdEnableReadyToOperate))
	assert.Equal(t, StateReadyToOperate, cn.State())
	require.NoError(t, cn.ApplyCommand(CmdStartNode))
	assert.Equal(t, StateOperational, cn.State())
}

func TestCNRejectsIllegalTransition(t *testing.T) {
	cn := NewCN(nil, od.New(nil, od.NopPersistence{}))
	err := cn.ApplyCommand(CmdStartNode)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestCNStopAndResume(t *testing.T) {
	cn := NewCN(nil, od.New(nil, od.NopPersistence{}))
	cn.Boot()
	cn.OnReducedCycleFrame()
	cn.OnIdentified()
	require.NoError(t, cn.ApplyCommand(CmdStopNode))
	assert.Equal(t, StateStopped, cn.State())

	require.NoError(t, cn.ApplyCommand(CmdEnterPreOperational2))
	assert.Equal(t, StatePreOperational2, cn.State())
}

func TestCNCallbackFiresOnTransition(t *testing.T) {
	cn := NewCN(nil, od.New(nil, od.NopPersistence{}))
	var seen []State
	cn.AddStateChangeCallback(func(old, new State) { seen = append(seen, new) })
	cn.Boot()
	assert.Equal(t, StateNotActive, seen[len(seen)-1])
}

func TestMNBootStepSequence(t *testing.T) {
	mn := NewMN(nil, od.New(nil, od.NopPersistence{}))
	mn.Boot()
	mn.EnterPreOperational1()
	assert.Equal(t, StatePreOperational1, mn.State())

	err := mn.EnterPreOperational2()
	assert.ErrorIs(t, err, ErrIllegalTransition)

	mn.AdvanceBootStep()
	mn.AdvanceBootStep()
	mn.AdvanceBootStep()
	require.NoError(t, mn.EnterPreOperational2())
	require.NoError(t, mn.EnterReadyToOperate())
	require.NoError(t, mn.StartNetwork())
	assert.Equal(t, StateOperational, mn.State())
}

func TestMNResetCommunicationRestartsBootStep(t *testing.T) {
	mn := NewMN(nil, od.New(nil, od.NopPersistence{}))
	mn.Boot()
	mn.EnterPreOperational1()
	mn.Step = BootStepDone
	mn.ResetCommunication()
	assert.Equal(t, StateNotActive, mn.State())
	assert.Equal(t, BootStepIdentify, mn.Step)
}
