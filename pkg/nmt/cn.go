package nmt

import (
	"log/slog"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// CN is the Controlled Node NMT state machine (spec §4.4.2).
type CN struct {
	Machine
}

// NewCN creates a CN state machine in StateOff; call Boot to run the
// local reset chain before joining the network.
func NewCN(logger *slog.Logger, dict *od.ObjectDictionary) *CN {
	return &CN{Machine: newMachine(logger, dict)}
}

// Boot runs the node-local reset chain (Off -> Initialising ->
// ResetApplication -> ResetCommunication -> ResetConfiguration ->
// NotActive), mirroring the automatic sub-state walk DS301 performs with
// no network traffic involved (spec §4.4.2).
func (c *CN) Boot() {
	for _, s := range []State{
		StateInitialising, StateResetApplication, StateResetCommunication,
		StateResetConfiguration, StateNotActive,
	} {
		c.setState(s)
	}
}

// OnReducedCycleFrame advances NotActive -> PreOperational1 on reception
// of the first SoC or SoA (spec §4.4.2 CT1/CT2): the CN has now detected
// an active POWERLINK cycle on the segment.
func (c *CN) OnReducedCycleFrame() {
	if c.State() == StateNotActive {
		c.setState(StatePreOperational1)
	}
}

// OnIdentified advances PreOperational1 -> PreOperational2 once the MN
// has exchanged IdentResponse with this node and begun polling it with
// PReq (spec §4.4.2 CT3).
func (c *CN) OnIdentified() {
	if c.State() == StatePreOperational1 {
		c.setState(StatePreOperational2)
	}
}

// CanApplyCommand reports whether cmd is legal from the current state,
// without committing the transition.
func (c *CN) CanApplyCommand(cmd Command) bool {
	_, ok := c.target(cmd)
	return ok
}

func (c *CN) target(cmd Command) (State, bool) {
	cur := c.State()
	switch cmd {
	case CmdEnableReadyToOperate:
		if cur == StatePreOperational2 {
			return StateReadyToOperate, true
		}
	case CmdStartNode:
		if cur == StateReadyToOperate {
			return StateOperational, true
		}
	case CmdStopNode:
		if cur == StatePreOperational2 || cur == StateReadyToOperate || cur == StateOperational {
			return StateStopped, true
		}
	case CmdEnterPreOperational2:
		if cur == StateStopped {
			return StatePreOperational2, true
		}
	case CmdResetNode, CmdSWReset:
		return StateOff, true
	case CmdResetCommunication:
		return StateResetCommunication, true
	case CmdResetConfiguration:
		return StateResetConfiguration, true
	case CmdResetApplication:
		return StateResetApplication, true
	}
	return cur, false
}

// ApplyCommand commits the transition cmd requests, or reports
// ErrIllegalTransition if cmd is not legal from the current state
// (spec §4.4.2 Table "CN state transition matrix").
func (c *CN) ApplyCommand(cmd Command) error {
	next, ok := c.target(cmd)
	if !ok {
		return ErrIllegalTransition
	}
	switch next {
	case StateOff:
		c.setState(StateOff)
		c.Boot()
	case StateResetCommunication:
		c.setState(StateResetCommunication)
		c.setState(StateResetConfiguration)
		c.setState(StateNotActive)
	case StateResetConfiguration:
		c.setState(StateResetConfiguration)
		c.setState(StateNotActive)
	case StateResetApplication:
		c.setState(StateResetApplication)
		c.setState(StateResetCommunication)
		c.setState(StateResetConfiguration)
		c.setState(StateNotActive)
	default:
		c.setState(next)
	}
	return nil
}
