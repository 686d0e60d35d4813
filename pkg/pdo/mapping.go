// Package pdo implements the process data mapping engine (spec §4.6):
// resolving a PDO's mapped Object Dictionary locations and moving bytes
// between those locations and a PReq/PRes payload. Grounded on the
// teacher's pkg/pdo/common.go configureMap, adapted from CANopen's
// COB-ID-addressed multi-PDO model to POWERLINK's one-RPDO/one-TPDO-per-
// node channel.
package pdo

import (
	"encoding/binary"
	"fmt"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// MappedObject is one entry of a PDO mapping parameter record: an OD
// location plus the bit length it occupies in the PDO payload. Mapping
// entries are packed the same way CiA 301 packs them (index<<16 |
// subindex<<8 | bitlength), which POWERLINK's 0x1600-series/0x1A00-series
// analogues (here: per-node Mapping records) reuse.
type MappedObject struct {
	Index     uint16
	SubIndex  uint8
	BitLength uint16
}

// ByteLength is BitLength rounded up to whole bytes; POWERLINK mapping
// entries below one byte are not supported (spec §4.6.1 Non-goals).
func (m MappedObject) ByteLength() int {
	return (int(m.BitLength) + 7) / 8
}

// Mapping is the ordered list of objects packed contiguously into one
// PDO payload.
type Mapping struct {
	Objects []MappedObject
}

// ByteLength returns the total payload size the mapping occupies.
func (m Mapping) ByteLength() int {
	total := 0
	for _, o := range m.Objects {
		total += o.ByteLength()
	}
	return total
}

func encodeMappingEntry(o MappedObject) uint32 {
	return uint32(o.Index)<<16 | uint32(o.SubIndex)<<8 | uint32(o.BitLength)
}

func decodeMappingEntry(v uint32) MappedObject {
	return MappedObject{
		Index:     uint16(v >> 16),
		SubIndex:  uint8(v >> 8),
		BitLength: uint16(v & 0xFF),
	}
}

// LoadMapping reads a PDO mapping parameter record out of the OD:
// subindex 0 is the number of mapped entries, subindices 1..N are
// UNSIGNED32 encoded MappedObjects (spec §4.6.1).
func LoadMapping(dict *od.ObjectDictionary, mappingIndex uint16) (Mapping, error) {
	entry, err := dict.Find(mappingIndex)
	if err != nil {
		return Mapping{}, fmt.Errorf("loading mapping x%04X: %w", mappingIndex, err)
	}
	list := entry.List()
	if list == nil {
		return Mapping{}, fmt.Errorf("mapping x%04X is not a RECORD/ARRAY entry", mappingIndex)
	}
	countVar, err := list.GetSubObject(0)
	if err != nil {
		return Mapping{}, err
	}
	count, err := countVar.Uint8()
	if err != nil {
		return Mapping{}, err
	}
	m := Mapping{}
	for i := uint8(1); i <= count; i++ {
		v, err := list.GetSubObject(i)
		if err != nil {
			return Mapping{}, err
		}
		raw, err := v.Uint32()
		if err != nil {
			return Mapping{}, err
		}
		m.Objects = append(m.Objects, decodeMappingEntry(raw))
	}
	return m, nil
}

// StoreMapping writes m back into the OD mapping parameter record,
// creating subindex entries as needed. Used by configuration tooling
// (spec §4.6.1 "mapping is configurable over SDO").
func StoreMapping(dict *od.ObjectDictionary, mappingIndex uint16, m Mapping) error {
	entry, err := dict.Find(mappingIndex)
	if err != nil {
		return err
	}
	list := entry.List()
	if list == nil {
		return fmt.Errorf("mapping x%04X is not a RECORD/ARRAY entry", mappingIndex)
	}
	for i, o := range m.Objects {
		sub := uint8(i + 1)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, encodeMappingEntry(o))
		v, err := od.NewVariable(sub, fmt.Sprintf("MappedObject%d", sub), od.Unsigned32, od.AccessRW, buf)
		if err != nil {
			return err
		}
		list.AddSubObject(sub, v)
	}
	countVar, err := od.NewVariable(0, "NumberOfMappedObjects", od.Unsigned8, od.AccessRW, []byte{uint8(len(m.Objects))})
	if err != nil {
		return err
	}
	list.AddSubObject(0, countVar)
	return nil
}
