package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdCounterTripsAndResets(t *testing.T) {
	c := NewThresholdCounter(10)
	c.Increment() // 8
	assert.True(t, c.IsActive())
	c.Decrement() // 7
	assert.False(t, c.CheckAndReset())
	c.Increment() // 15 >= 10
	assert.True(t, c.CheckAndReset())
	assert.False(t, c.IsActive())
	assert.EqualValues(t, 1, c.CumulativeCount())
}

func TestThresholdCounterZeroNeverTrips(t *testing.T) {
	c := NewThresholdCounter(0)
	for i := 0; i < 10; i++ {
		c.Increment()
	}
	assert.False(t, c.CheckAndReset())
}

func TestCnCountersLossOfSocTripsResetCommunicationOnSecondOccurrence(t *testing.T) {
	c := NewCnCounters()
	action, changed := c.HandleError(ErrLossOfSoC)
	assert.True(t, changed)
	assert.Equal(t, NmtActionNone, action.Kind)

	action, changed = c.HandleError(ErrLossOfSoC)
	assert.True(t, changed)
	assert.Equal(t, NmtActionResetCommunication, action.Kind)
}

func TestCnCountersOnCycleCompleteSignalsBecameInactive(t *testing.T) {
	c := NewCnCounters()
	c.Collision.Increment() // 8
	for i := 0; i < 7; i++ {
		became := c.OnCycleComplete()
		assert.False(t, became, "iteration %d", i)
	}
	assert.True(t, c.IsAnyActive())
	became := c.OnCycleComplete()
	assert.True(t, became)
	assert.False(t, c.IsAnyActive())
}

func TestMnCountersPerCnLossOfPresTripsResetNode(t *testing.T) {
	m := NewMnCounters()
	action, _ := m.HandleCnError(5, ErrCNLossOfPRes)
	assert.Equal(t, NmtActionNone, action.Kind)

	action, _ = m.HandleCnError(5, ErrCNLossOfPRes)
	assert.Equal(t, NmtActionResetNode, action.Kind)
	assert.EqualValues(t, 5, action.Node)
}

func TestMnCountersOtherNodeUnaffected(t *testing.T) {
	m := NewMnCounters()
	m.HandleCnError(5, ErrCNLossOfPRes)
	action, _ := m.HandleCnError(6, ErrCNLossOfPRes)
	assert.Equal(t, NmtActionNone, action.Kind)
}

func TestCnCountersLossOfLinkNeverTrips(t *testing.T) {
	c := NewCnCounters()
	for i := 0; i < 100; i++ {
		action, changed := c.HandleError(ErrLossOfLink)
		assert.True(t, changed)
		assert.Equal(t, NmtActionNone, action.Kind)
	}
	assert.EqualValues(t, 100, c.LossOfLinkCount)
}
