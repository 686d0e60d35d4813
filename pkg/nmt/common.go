// Package nmt implements the POWERLINK Network Management state machines
// (spec §4.4): NMT_CS (CN side) and NMT_MS (MN side). Both share the
// state enum, command set and OD 0x1F8C wiring defined here; cn.go and
// mn.go hold the two state-transition tables.
//
// Grounded on the teacher's pkg/nmt.NMT: same shape (state + callbacks +
// OD extension on construction), but transitions are driven by explicit
// method calls (ApplyCommand, OnReducedCycleFrame, StartNetwork, ...)
// rather than a background goroutine+timer
// loop, since the engine here is invoked once per RunCycle tick rather
// than owning its own scheduling.
package nmt

import (
	"fmt"
	"log/slog"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// State is one of the twelve POWERLINK NMT states (spec §4.4.1, glossary
// "NMT State").
type State uint8

const (
	StateOff State = iota
	StateInitialising
	StateResetApplication
	StateResetCommunication
	StateResetConfiguration
	StateNotActive
	StatePreOperational1
	StatePreOperational2
	StateReadyToOperate
	StateOperational
	StateStopped
	StateBasicEthernet
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "Off"
	case StateInitialising:
		return "Initialising"
	case StateResetApplication:
		return "ResetApplication"
	case StateResetCommunication:
		return "ResetCommunication"
	case StateResetConfiguration:
		return "ResetConfiguration"
	case StateNotActive:
		return "NotActive"
	case StatePreOperational1:
		return "PreOperational1"
	case StatePreOperational2:
		return "PreOperational2"
	case StateReadyToOperate:
		return "ReadyToOperate"
	case StateOperational:
		return "Operational"
	case StateStopped:
		return "Stopped"
	case StateBasicEthernet:
		return "BasicEthernet"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// WireCode returns the single-byte NMTState code transmitted in
// PRes/StatusResponse (spec §4.1.3), per DS301 Table 95.
func (s State) WireCode() uint8 {
	switch s {
	case StateOff:
		return 0x00
	case StateInitialising:
		return 0x19
	case StateResetApplication:
		return 0x29
	case StateResetCommunication:
		return 0x39
	case StateResetConfiguration:
		return 0x79
	case StateNotActive:
		return 0x1C
	case StatePreOperational1:
		return 0x1D
	case StatePreOperational2:
		return 0x5D
	case StateReadyToOperate:
		return 0x6D
	case StateOperational:
		return 0xFD
	case StateStopped:
		return 0x4D
	case StateBasicEthernet:
		return 0x1E
	default:
		return 0x00
	}
}

// Command is an NMT command a network management entity can issue
// (spec §4.4.1, transmitted via NMTCommand ASnd service or locally by the
// MN's own boot sequence).
type Command uint8

const (
	CmdStartNode Command = iota
	CmdStopNode
	CmdEnterPreOperational2
	CmdEnableReadyToOperate
	CmdResetNode
	CmdResetCommunication
	CmdResetConfiguration
	CmdResetApplication
	CmdSWReset
)

// Callback is invoked after every committed state transition.
type Callback func(old, new State)

// Machine is the shared NMT bookkeeping both CN and MN build on: current
// state, registered callbacks and the OD 0x1F8C mirror.
type Machine struct {
	logger    *slog.Logger
	state     State
	callbacks []Callback
	dict      *od.ObjectDictionary
}

func newMachine(logger *slog.Logger, dict *od.ObjectDictionary) Machine {
	if logger == nil {
		logger = slog.Default()
	}
	m := Machine{logger: logger.With("component", "nmt"), state: StateOff, dict: dict}
	m.ensureCurrStateObject()
	return m
}

func (m *Machine) ensureCurrStateObject() {
	if m.dict == nil {
		return
	}
	if _, err := m.dict.Find(0x1F8C); err != nil {
		v, _ := od.NewVariable(0, "NMT_CurrNMTState_U8", od.Unsigned8, od.AccessRO, []byte{StateOff.WireCode()})
		m.dict.Insert(od.NewVarEntry(0x1F8C, "NMT_CurrNMTState_U8", v))
	}
}

// State returns the current NMT state.
func (m *Machine) State() State { return m.state }

// AddStateChangeCallback registers fn to be invoked on every transition.
func (m *Machine) AddStateChangeCallback(fn Callback) {
	m.callbacks = append(m.callbacks, fn)
}

// setState commits a transition: updates state, mirrors it into OD
// 0x1F8C and fires callbacks. Unexported: cn.go/mn.go own which
// transitions are legal.
func (m *Machine) setState(next State) {
	old := m.state
	if old == next {
		return
	}
	m.state = next
	if m.dict != nil {
		if entry, err := m.dict.Find(0x1F8C); err == nil {
			if v, err := entry.SubIndex(0); err == nil {
				_ = v.WriteExactly([]byte{next.WireCode()}, true)
			}
		}
	}
	switch next {
	case StateResetApplication, StateResetCommunication, StateResetConfiguration:
		m.logger.Warn("nmt state transition", "from", old, "to", next)
	default:
		m.logger.Info("nmt state transition", "from", old, "to", next)
	}
	for _, cb := range m.callbacks {
		cb(old, next)
	}
}
