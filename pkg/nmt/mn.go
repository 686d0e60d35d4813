package nmt

import (
	"log/slog"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// BootStep identifies where the MN is within its BOOT_STEP1 node
// acquisition sequence (spec §4.4.4). It is tracked alongside State
// because DS301 treats node-boot progress as orthogonal to the
// network-wide NMT state the MN itself also carries.
type BootStep uint8

const (
	BootStepIdentify BootStep = iota
	BootStepVerifyConfiguration
	BootStepCheckCommunication
	BootStepDone
)

// MN is the Managing Node NMT state machine (spec §4.4.3/§4.4.4).
type MN struct {
	Machine
	Step BootStep
}

// NewMN creates an MN state machine in StateOff.
func NewMN(logger *slog.Logger, dict *od.ObjectDictionary) *MN {
	return &MN{Machine: newMachine(logger, dict)}
}

// Boot runs the MN's own local reset chain, identical in shape to the
// CN's, before it starts producing SoC (spec §4.4.3).
func (m *MN) Boot() {
	for _, s := range []State{
		StateInitialising, StateResetApplication, StateResetCommunication,
		StateResetConfiguration, StateNotActive,
	} {
		m.setState(s)
	}
}

// EnterPreOperational1 begins producing the reduced (SoC/PReq/PRes/SoA)
// cycle used to discover and identify CNs (spec §4.4.3, BOOT_STEP1).
func (m *MN) EnterPreOperational1() {
	if m.State() == StateNotActive {
		m.setState(StatePreOperational1)
		m.Step = BootStepIdentify
	}
}

// AdvanceBootStep moves BOOT_STEP1 forward by one stage. The caller
// (pkg/node/mn) is responsible for deciding each stage actually
// completed (all mandatory CNs identified, all configurations verified).
func (m *MN) AdvanceBootStep() {
	if m.Step < BootStepDone {
		m.Step++
	}
}

// EnterPreOperational2 transitions once every mandatory CN has been
// identified and configuration-checked (spec §4.4.3/§4.4.4, end of
// BOOT_STEP1).
func (m *MN) EnterPreOperational2() error {
	if m.State() != StatePreOperational1 || m.Step != BootStepDone {
		return ErrIllegalTransition
	}
	m.setState(StatePreOperational2)
	return nil
}

// EnterReadyToOperate transitions once every mandatory CN reports
// ReadyToOperate (spec §4.4.3).
func (m *MN) EnterReadyToOperate() error {
	if m.State() != StatePreOperational2 {
		return ErrIllegalTransition
	}
	m.setState(StateReadyToOperate)
	return nil
}

// StartNetwork transitions ReadyToOperate -> Operational (spec §4.4.3).
// It only changes the MN's own state; no NMT_CommandStartNode frame is
// sent.
func (m *MN) StartNetwork() error {
	if m.State() != StateReadyToOperate {
		return ErrIllegalTransition
	}
	m.setState(StateOperational)
	return nil
}

// StopNetwork transitions to Stopped from any operating state.
func (m *MN) StopNetwork() error {
	switch m.State() {
	case StatePreOperational2, StateReadyToOperate, StateOperational:
		m.setState(StateStopped)
		return nil
	default:
		return ErrIllegalTransition
	}
}

// ResetCommunication restarts network-wide boot discovery without
// restarting the MN's own application.
func (m *MN) ResetCommunication() {
	m.setState(StateResetCommunication)
	m.setState(StateResetConfiguration)
	m.setState(StateNotActive)
	m.Step = BootStepIdentify
}
