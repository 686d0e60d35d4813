// Package emergency implements the 8:1 threshold error counters, error
// history and EN/EA/EC/ER signaling flags of spec §4.5, grounded
// byte-for-byte on the original implementation's
// frame/error/counters.rs ThresholdCounter/CnErrorCounters/MnErrorCounters,
// adapted into the teacher's typed-error/slog idiom.
package emergency

// ThresholdCounter implements the 8:1 saturating counter every DLL error
// class uses (spec §4.5.1): each occurrence adds 8, each error-free cycle
// subtracts 1, and reaching the configured threshold both resets the
// counter and increments a non-resetting cumulative count.
type ThresholdCounter struct {
	cumulativeCount uint32
	thresholdCount  uint32
	threshold       uint32
}

// NewThresholdCounter creates a counter that trips once ThresholdCount
// reaches threshold. A threshold of 0 disables tripping entirely (the
// counter still accumulates but check_and_reset never fires), matching
// the reference implementation's guard on threshold > 0.
func NewThresholdCounter(threshold uint32) ThresholdCounter {
	return ThresholdCounter{threshold: threshold}
}

// Increment records one error occurrence.
func (c *ThresholdCounter) Increment() {
	c.thresholdCount += 8
}

// Decrement records one error-free cycle, saturating at zero.
func (c *ThresholdCounter) Decrement() {
	if c.thresholdCount > 0 {
		c.thresholdCount--
	}
}

// CheckAndReset reports whether the counter has reached its threshold;
// if so it resets ThresholdCount to zero and bumps CumulativeCount.
func (c *ThresholdCounter) CheckAndReset() bool {
	if c.threshold > 0 && c.thresholdCount >= c.threshold {
		c.thresholdCount = 0
		c.cumulativeCount++
		return true
	}
	return false
}

// IsActive reports whether the counter currently holds any error weight.
func (c *ThresholdCounter) IsActive() bool { return c.thresholdCount > 0 }

// CumulativeCount returns the number of times this counter has tripped.
func (c *ThresholdCounter) CumulativeCount() uint32 { return c.cumulativeCount }
