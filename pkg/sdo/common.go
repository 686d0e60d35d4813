// Package sdo implements the Service Data Object transfer layer (spec
// §4.3): sequence-layer framing, expedited/segmented command processing,
// and the three carriers POWERLINK runs SDO over (ASnd, UDP, embedded in
// PReq/PRes). Grounded on the teacher's pkg/sdo (AbortCode type,
// OdToAbortMap translation table) but reworked from a goroutine+channel
// server into the pure Process(request) -> response shape spec §5
// requires.
package sdo

import (
	"fmt"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// AbortCode is the 32-bit SDO abort code placed on the wire when a
// transfer fails (spec §4.3.2), distinct from the internal od.ODR
// errors it is translated from.
type AbortCode uint32

const (
	AbortNone                    AbortCode = 0x00000000
	AbortToggleBitNotAlternated  AbortCode = 0x05030000
	AbortTimeout                 AbortCode = 0x05040000
	AbortCommandInvalid          AbortCode = 0x05040001
	AbortSequenceInvalid         AbortCode = 0x05040003
	AbortOutOfMemory             AbortCode = 0x05040005
	AbortUnsupportedAccess       AbortCode = 0x06010000
	AbortWriteOnly               AbortCode = 0x06010001
	AbortReadOnly                AbortCode = 0x06010002
	AbortObjectDoesNotExist      AbortCode = 0x06020000
	AbortLengthMismatch          AbortCode = 0x06070010
	AbortSubIndexDoesNotExist    AbortCode = 0x06090011
	AbortValueRangeExceeded      AbortCode = 0x06090030
	AbortValueTooHigh            AbortCode = 0x06090031
	AbortValueTooLow             AbortCode = 0x06090032
	AbortGeneralError            AbortCode = 0x08000000
	AbortDataCannotBeTransferred AbortCode = 0x08000020
)

// odToAbort translates an od.ODR access failure into the matching SDO
// abort code (spec §4.3.2), mirroring the teacher's OdToAbortMap.
var odToAbort = map[od.ODR]AbortCode{
	od.ErrIdxNotExist:  AbortObjectDoesNotExist,
	od.ErrSubNotExist:  AbortSubIndexDoesNotExist,
	od.ErrReadonly:     AbortReadOnly,
	od.ErrWriteOnly:    AbortWriteOnly,
	od.ErrTypeMismatch: AbortUnsupportedAccess,
	od.ErrDataLong:     AbortLengthMismatch,
	od.ErrDataShort:    AbortLengthMismatch,
	od.ErrInvalidValue: AbortValueRangeExceeded,
	od.ErrValueHigh:    AbortValueTooHigh,
	od.ErrValueLow:     AbortValueTooLow,
	od.ErrGeneral:      AbortGeneralError,
	od.ErrHw:           AbortDataCannotBeTransferred,
}

// AbortFor translates err (expected to be an od.ODR, or wrap one) into
// an AbortCode, defaulting to AbortGeneralError for anything else.
func AbortFor(err error) AbortCode {
	if odr, ok := err.(od.ODR); ok {
		if code, ok := odToAbort[odr]; ok {
			return code
		}
	}
	return AbortGeneralError
}

func (a AbortCode) Error() string {
	return fmt.Sprintf("sdo abort 0x%08X", uint32(a))
}

// CommandId is the SDO Command Specifier (spec §4.3.2).
type CommandId uint8

const (
	CmdNil                       CommandId = 0x00
	CmdWriteByIndex              CommandId = 0x01
	CmdReadByIndex               CommandId = 0x02
	CmdWriteByName               CommandId = 0x06
	CmdReadByName                CommandId = 0x07
	CmdWriteAllByIndex           CommandId = 0x08
	CmdReadAllByIndex            CommandId = 0x09
	CmdWriteMultipleParamByIndex CommandId = 0x31
	CmdReadMultipleParamByIndex  CommandId = 0x32
	CmdMaxSegmentSize            CommandId = 0x70
	CmdLinkNameToIndex           CommandId = 0x71
)
