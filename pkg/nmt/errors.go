package nmt

import "errors"

// ErrIllegalTransition is returned when a Command is not legal from the
// machine's current State (spec §4.4 state transition matrices).
var ErrIllegalTransition = errors.New("nmt: illegal state transition")
