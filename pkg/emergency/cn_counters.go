package emergency

// defaultThreshold is the 8:1 threshold applied to every counter unless
// overridden via the OD (spec §4.5.1 default, DS301 object 0x1C00 area).
const defaultThreshold uint32 = 15

// CnCounters holds the CN-side threshold counters (spec §4.5.1 Table 27).
// Field names are kept distinct (not a map) so each counter reads like a
// named OD sub-object, matching the reference implementation's
// CnErrorCounters struct rather than Go's more map-happy idioms.
type CnCounters struct {
	Collision          ThresholdCounter
	LossOfSoC          ThresholdCounter
	LossOfSoA          ThresholdCounter
	LossOfPReq         ThresholdCounter
	SoCJitter          ThresholdCounter
	CRC                ThresholdCounter
	HeartbeatTimeout   ThresholdCounter
	LossOfLinkCount    uint32 // cumulative only, never thresholded
}

// NewCnCounters creates a CnCounters with the standard 8:1/15 threshold
// on every counter.
func NewCnCounters() *CnCounters {
	return &CnCounters{
		Collision:        NewThresholdCounter(defaultThreshold),
		LossOfSoC:        NewThresholdCounter(defaultThreshold),
		LossOfSoA:        NewThresholdCounter(defaultThreshold),
		LossOfPReq:       NewThresholdCounter(defaultThreshold),
		SoCJitter:        NewThresholdCounter(defaultThreshold),
		CRC:              NewThresholdCounter(defaultThreshold),
		HeartbeatTimeout: NewThresholdCounter(defaultThreshold),
	}
}

// IsAnyActive reports whether any threshold counter currently holds
// error weight (drives the EN "error signaled" status flag, spec §4.5.2).
func (c *CnCounters) IsAnyActive() bool {
	for _, tc := range c.all() {
		if tc.IsActive() {
			return true
		}
	}
	return false
}

// OnCycleComplete decrements every counter by one (an error-free cycle
// completed) and reports whether the node transitioned from active to
// inactive as a result, so the caller knows to clear EN.
func (c *CnCounters) OnCycleComplete() (becameInactive bool) {
	wasActive := c.IsAnyActive()
	for _, tc := range c.all() {
		tc.Decrement()
	}
	return wasActive && !c.IsAnyActive()
}

func (c *CnCounters) all() []*ThresholdCounter {
	return []*ThresholdCounter{
		&c.Collision, &c.LossOfSoC, &c.LossOfSoA, &c.LossOfPReq,
		&c.SoCJitter, &c.CRC, &c.HeartbeatTimeout,
	}
}

// HandleError increments the counter matching err and reports the NMT
// reaction if the threshold tripped (spec §4.5.1 Table 27: CN threshold
// trips always request ResetCommunication). LossOfLink only bumps the
// cumulative LossOfLinkCount; PdoMapVersion/PdoPayloadShort are accepted
// without being counted or logged. None of the three threshold-trigger.
func (c *CnCounters) HandleError(err DllError) (action NmtAction, statusChanged bool) {
	var counter *ThresholdCounter
	switch err {
	case ErrCollision:
		counter = &c.Collision
	case ErrLossOfSoC:
		counter = &c.LossOfSoC
	case ErrLossOfSoA:
		counter = &c.LossOfSoA
	case ErrLossOfPReq:
		counter = &c.LossOfPReq
	case ErrSoCJitter:
		counter = &c.SoCJitter
	case ErrCRC:
		counter = &c.CRC
	case ErrHeartbeatTimeout:
		counter = &c.HeartbeatTimeout
	case ErrLossOfLink:
		c.LossOfLinkCount++
		return noAction, true
	case ErrPDOMapVersion, ErrPDOPayloadShort:
		return noAction, true
	default:
		return noAction, false
	}
	counter.Increment()
	if counter.CheckAndReset() {
		return NmtAction{Kind: NmtActionResetCommunication}, true
	}
	return noAction, true
}
