package od

import (
	"encoding/binary"
	"math"
)

// Variable is a single typed value at an Entry/SubIndex location. Values
// are stored as their wire-format bytes, mirroring the teacher's
// pkg/od.Variable, so a Variable read via SDO never needs re-encoding.
type Variable struct {
	Name       string
	SubIndex   uint8
	DataType   DataType
	Attribute  Attribute
	Persistent bool

	value        []byte
	defaultValue []byte
}

// NewVariable builds a Variable from its wire-format bytes, rejecting a value
// whose encoded length does not match the data type's fixed size.
func NewVariable(subIndex uint8, name string, dataType DataType, attribute Attribute, value []byte) (*Variable, error) {
	if size := dataType.FixedSize(); size != 0 && len(value) != size {
		return nil, ErrDataLong
	}
	def := make([]byte, len(value))
	copy(def, value)
	return &Variable{
		Name:         name,
		SubIndex:     subIndex,
		DataType:     dataType,
		Attribute:    attribute,
		value:        value,
		defaultValue: def,
	}, nil
}

// Bytes returns the current raw value.
func (v *Variable) Bytes() []byte { return v.value }

// DefaultValue returns the value the Variable was constructed or reset
// with, prior to any runtime Write.
func (v *Variable) DefaultValue() []byte { return v.defaultValue }

// ResetToDefault restores value from defaultValue.
func (v *Variable) ResetToDefault() {
	v.value = make([]byte, len(v.defaultValue))
	copy(v.value, v.defaultValue)
}

// WriteExactly overwrites value, validating length against the data
// type's fixed size (when it has one) and the access attribute unless
// origin is set (origin bypasses the read-only check, used by the engine
// itself rather than an external SDO client, mirroring the teacher's
// WriteExactly(..., origin bool)).
func (v *Variable) WriteExactly(value []byte, origin bool) error {
	if !origin && !v.Attribute.writable() {
		return ErrReadonly
	}
	if size := v.DataType.FixedSize(); size != 0 && len(value) != size {
		if len(value) > size {
			return ErrDataLong
		}
		return ErrDataShort
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	v.value = buf
	return nil
}

func (v *Variable) checkRead() error {
	if !v.Attribute.readable() {
		return ErrWriteOnly
	}
	return nil
}

// Uint8 reads the value as UNSIGNED8/BOOLEAN.
func (v *Variable) Uint8() (uint8, error) {
	if err := v.checkRead(); err != nil {
		return 0, err
	}
	if len(v.value) < 1 {
		return 0, ErrDataShort
	}
	return v.value[0], nil
}

// Uint16 reads the value as UNSIGNED16.
func (v *Variable) Uint16() (uint16, error) {
	if err := v.checkRead(); err != nil {
		return 0, err
	}
	if len(v.value) < 2 {
		return 0, ErrDataShort
	}
	return binary.LittleEndian.Uint16(v.value), nil
}

// Uint32 reads the value as UNSIGNED32.
func (v *Variable) Uint32() (uint32, error) {
	if err := v.checkRead(); err != nil {
		return 0, err
	}
	if len(v.value) < 4 {
		return 0, ErrDataShort
	}
	return binary.LittleEndian.Uint32(v.value), nil
}

// Uint64 reads the value as UNSIGNED64.
func (v *Variable) Uint64() (uint64, error) {
	if err := v.checkRead(); err != nil {
		return 0, err
	}
	if len(v.value) < 8 {
		return 0, ErrDataShort
	}
	return binary.LittleEndian.Uint64(v.value), nil
}

// Float32 reads the value as REAL32.
func (v *Variable) Float32() (float32, error) {
	u, err := v.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// PutUint8 writes an UNSIGNED8/BOOLEAN value, bypassing access checks.
func (v *Variable) PutUint8(val uint8) error { return v.WriteExactly([]byte{val}, true) }

// PutUint16 writes an UNSIGNED16 value, bypassing access checks.
func (v *Variable) PutUint16(val uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, val)
	return v.WriteExactly(b, true)
}

// PutUint32 writes an UNSIGNED32 value, bypassing access checks.
func (v *Variable) PutUint32(val uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, val)
	return v.WriteExactly(b, true)
}

// String reads the value as VISIBLE_STRING/UNICODE_STRING/OCTET_STRING.
func (v *Variable) String() (string, error) {
	if err := v.checkRead(); err != nil {
		return "", err
	}
	return string(v.value), nil
}
