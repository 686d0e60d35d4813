package pdo

import (
	"fmt"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// TPDO produces the payload a node transmits in PRes/PReq by reading
// each mapped object out of the Object Dictionary, in mapping order
// (spec §4.6.2).
type TPDO struct {
	dict    *od.ObjectDictionary
	mapping Mapping
}

// NewTPDO builds a TPDO bound to the given mapping.
func NewTPDO(dict *od.ObjectDictionary, mapping Mapping) *TPDO {
	return &TPDO{dict: dict, mapping: mapping}
}

// Produce reads the mapped OD locations and concatenates them into one
// payload, in mapping order.
func (t *TPDO) Produce() ([]byte, error) {
	out := make([]byte, 0, t.mapping.ByteLength())
	for _, o := range t.mapping.Objects {
		b, err := t.dict.Read(o.Index, o.SubIndex)
		if err != nil {
			return nil, fmt.Errorf("pdo: reading x%04X:%02X: %w", o.Index, o.SubIndex, err)
		}
		n := o.ByteLength()
		if len(b) < n {
			return nil, fmt.Errorf("pdo: x%04X:%02X shorter than mapped bit length", o.Index, o.SubIndex)
		}
		out = append(out, b[:n]...)
	}
	return out, nil
}

// ByteLength returns the mapping's produced payload length.
func (t *TPDO) ByteLength() int { return t.mapping.ByteLength() }
