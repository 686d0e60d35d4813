// Package od implements the Object Dictionary: a typed, index/subindex
// addressed store of device parameters and process data locations
// (spec §4.2), modeled on the teacher's pkg/od but with POWERLINK's data
// type set and a single flat Entry/Variable shape instead of CiA's
// EDS-derived one.
package od

import (
	"fmt"
	"strconv"
)

// DataType enumerates the basic data types an OD Variable can hold
// (spec §4.2.1 / glossary "Data Type").
type DataType uint8

const (
	Boolean DataType = iota + 1
	Integer8
	Integer16
	Integer24
	Integer32
	Integer40
	Integer48
	Integer56
	Integer64
	Unsigned8
	Unsigned16
	Unsigned24
	Unsigned32
	Unsigned40
	Unsigned48
	Unsigned56
	Unsigned64
	Real32
	Real64
	VisibleString
	OctetString
	UnicodeString
	TimeOfDay
	TimeDifference
	Domain
	MacAddress
	IpAddress
	NetTime
)

// FixedSize returns the wire size in bytes for fixed-length data types, or
// 0 if the type is variable-length (strings, Domain).
func (dt DataType) FixedSize() int {
	switch dt {
	case Boolean, Integer8, Unsigned8:
		return 1
	case Integer16, Unsigned16:
		return 2
	case Integer24, Unsigned24:
		return 3
	case Integer32, Unsigned32, Real32:
		return 4
	case Integer40, Unsigned40:
		return 5
	case Integer48, Unsigned48:
		return 6
	case Integer56, Unsigned56:
		return 7
	case Integer64, Unsigned64, Real64, TimeOfDay, TimeDifference, NetTime:
		return 8
	case MacAddress:
		return 6
	case IpAddress:
		return 4
	default:
		return 0
	}
}

// ODR is the internal Object Dictionary access result type, mirroring the
// teacher's pkg/od.ODR: a small typed error distinct from the SDO abort
// codes that wrap it at the transfer layer (pkg/sdo translates ODR into
// the matching AbortCode, spec §4.3.2).
type ODR int8

const (
	ErrNo            ODR = 0
	ErrIdxNotExist   ODR = 1
	ErrSubNotExist   ODR = 2
	ErrReadonly      ODR = 3
	ErrWriteOnly     ODR = 4
	ErrTypeMismatch  ODR = 5
	ErrDataLong      ODR = 6
	ErrDataShort     ODR = 7
	ErrInvalidValue  ODR = 8
	ErrValueHigh     ODR = 9
	ErrValueLow      ODR = 10
	ErrNoMap         ODR = 11
	ErrGeneral       ODR = 12
	ErrHw            ODR = 13
)

var odrDescription = map[ODR]string{
	ErrNo:           "no error",
	ErrIdxNotExist:  "object does not exist in the object dictionary",
	ErrSubNotExist:  "sub-index does not exist",
	ErrReadonly:     "attempt to write a read-only object",
	ErrWriteOnly:    "attempt to read a write-only object",
	ErrTypeMismatch: "data type does not match",
	ErrDataLong:     "data type does not match, length too high",
	ErrDataShort:    "data type does not match, length too short",
	ErrInvalidValue: "invalid value for parameter",
	ErrValueHigh:    "value range of parameter written too high",
	ErrValueLow:     "value range of parameter written too low",
	ErrNoMap:        "object cannot be mapped to a PDO",
	ErrGeneral:      "general error",
	ErrHw:           "access failed due to hardware error",
}

func (e ODR) Error() string {
	desc, ok := odrDescription[e]
	if !ok {
		return fmt.Sprintf("od error %s (unknown)", strconv.Itoa(int(e)))
	}
	return fmt.Sprintf("od error %s (%s)", strconv.Itoa(int(e)), desc)
}

// Attribute is a bitmask of access and PDO-mappability flags attached to
// a Variable (spec §4.2.1). Kept as independent bits rather than the
// teacher's packed SDO-R/SDO-W/TPDO/RPDO nibble so PDO-mappability can be
// queried without masking out the access bits.
type Attribute uint8

const (
	AccessConst Attribute = 0x00
	AccessRO    Attribute = 0x01
	AccessWO    Attribute = 0x02
	AccessRW    Attribute = 0x03
	accessMask  Attribute = 0x03

	MappableRPDO Attribute = 0x04
	MappableTPDO Attribute = 0x08
)

func (a Attribute) readable() bool { return a&accessMask == AccessRO || a&accessMask == AccessRW }
func (a Attribute) writable() bool { return a&accessMask == AccessWO || a&accessMask == AccessRW }

// Mandatory object indices every POWERLINK node's OD must carry
// (spec §6.7), checked by ObjectDictionary.ValidateMandatoryObjects.
var MandatoryObjects = []uint16{
	0x1000, // NMT_DeviceType_U32
	0x1001, // ERR_ErrorRegister_U8
	0x1006, // NMT_CycleLen_U32
	0x1018, // NMT_IdentityObject_REC
	0x1F98, // NMT_CycleTiming_REC
}

// Mandatory MN-only object indices (spec §6.7, §4.4.3).
var MandatoryMNObjects = []uint16{
	0x1F81, // NMT_NodeAssignment_AU32
	0x1F82, // NMT_FeatureFlags_U32
	0x1F84, // NMT_MNDeviceTypeIdentList_AU32
	0x1F89, // NMT_BootTime_REC
	0x1F8C, // NMT_CurrNMTState_U8
}
