package emergency

import powerlink "github.com/powerlink/gopowerlink"

// MnCounters holds the MN-side threshold counters (spec §4.5.1 Table 28):
// a handful of node-independent counters plus three per-CN counters,
// lazily created on first error per node (the reference implementation's
// BTreeMap<NodeId, ThresholdCounter>.entry().or_insert_with pattern).
type MnCounters struct {
	Collision          ThresholdCounter
	CRC                ThresholdCounter
	CycleTimeExceeded  ThresholdCounter

	cnLatePres               map[powerlink.NodeId]*ThresholdCounter
	cnLossOfPres             map[powerlink.NodeId]*ThresholdCounter
	cnLossOfStatusResponse   map[powerlink.NodeId]*ThresholdCounter
}

// NewMnCounters creates an MnCounters with the standard 8:1/15 threshold.
func NewMnCounters() *MnCounters {
	return &MnCounters{
		Collision:         NewThresholdCounter(defaultThreshold),
		CRC:               NewThresholdCounter(defaultThreshold),
		CycleTimeExceeded: NewThresholdCounter(defaultThreshold),

		cnLatePres:             map[powerlink.NodeId]*ThresholdCounter{},
		cnLossOfPres:           map[powerlink.NodeId]*ThresholdCounter{},
		cnLossOfStatusResponse: map[powerlink.NodeId]*ThresholdCounter{},
	}
}

func perNode(m map[powerlink.NodeId]*ThresholdCounter, id powerlink.NodeId) *ThresholdCounter {
	tc, ok := m[id]
	if !ok {
		nc := NewThresholdCounter(defaultThreshold)
		tc = &nc
		m[id] = tc
	}
	return tc
}

// IsAnyActive reports whether any general or per-CN counter holds error
// weight.
func (c *MnCounters) IsAnyActive() bool {
	for _, tc := range []*ThresholdCounter{&c.Collision, &c.CRC, &c.CycleTimeExceeded} {
		if tc.IsActive() {
			return true
		}
	}
	for _, m := range []map[powerlink.NodeId]*ThresholdCounter{c.cnLatePres, c.cnLossOfPres, c.cnLossOfStatusResponse} {
		for _, tc := range m {
			if tc.IsActive() {
				return true
			}
		}
	}
	return false
}

// OnCycleComplete decrements every counter by one, reporting whether the
// MN transitioned from active to inactive.
func (c *MnCounters) OnCycleComplete() (becameInactive bool) {
	wasActive := c.IsAnyActive()
	c.Collision.Decrement()
	c.CRC.Decrement()
	c.CycleTimeExceeded.Decrement()
	for _, m := range []map[powerlink.NodeId]*ThresholdCounter{c.cnLatePres, c.cnLossOfPres, c.cnLossOfStatusResponse} {
		for _, tc := range m {
			tc.Decrement()
		}
	}
	return wasActive && !c.IsAnyActive()
}

// HandleError increments the counter for a general MN error
// (Collision/CRC/CycleTimeExceeded); tripping requests ResetCommunication
// (spec §4.5.1 Table 28).
func (c *MnCounters) HandleError(err DllError) (action NmtAction, statusChanged bool) {
	var counter *ThresholdCounter
	switch err {
	case ErrCollision:
		counter = &c.Collision
	case ErrCRC:
		counter = &c.CRC
	case ErrCycleTimeExceeded:
		counter = &c.CycleTimeExceeded
	default:
		return noAction, false
	}
	counter.Increment()
	if counter.CheckAndReset() {
		return NmtAction{Kind: NmtActionResetCommunication}, true
	}
	return noAction, true
}

// HandleCnError increments the per-CN counter for node matching err
// (LatePRes/LossOfPRes/LossOfStatusResponse); tripping requests
// ResetNode(node) rather than a full ResetCommunication, since only the
// one CN is implicated (spec §4.5.1 Table 28).
func (c *MnCounters) HandleCnError(node powerlink.NodeId, err DllError) (action NmtAction, statusChanged bool) {
	var counter *ThresholdCounter
	switch err {
	case ErrCNLatePRes:
		counter = perNode(c.cnLatePres, node)
	case ErrCNLossOfPRes:
		counter = perNode(c.cnLossOfPres, node)
	case ErrCNLossOfStatusResponse:
		counter = perNode(c.cnLossOfStatusResponse, node)
	default:
		return noAction, false
	}
	counter.Increment()
	if counter.CheckAndReset() {
		return NmtAction{Kind: NmtActionResetNode, Node: node}, true
	}
	return noAction, true
}
