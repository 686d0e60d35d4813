package powerlink

import "errors"

// Construction and engine-level sentinel errors, in the same flavour as
// the teacher's root-package error set: a flat list of errors.New values
// rather than a typed enum, since these never cross the wire as abort
// codes (unlike od.ODR / sdo.AbortCode).
var (
	ErrIllegalArgument   = errors.New("illegal argument")
	ErrNotInitialized    = errors.New("object dictionary not initialised")
	ErrOdParameters      = errors.New("error in object dictionary parameters")
	ErrMissingMandatory  = errors.New("missing mandatory object")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrIoError           = errors.New("network i/o error")
	ErrBufferTooShort    = errors.New("buffer too short")
	ErrNotPowerlinkFrame = errors.New("not a powerlink frame")
	ErrTruncatedFrame    = errors.New("truncated frame")
	ErrInvalidMessageType = errors.New("invalid message type")
)
