package pdo

import (
	"fmt"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// RPDO consumes a received PReq/PRes payload, writing each mapped object
// into the Object Dictionary (spec §4.6.1).
type RPDO struct {
	dict    *od.ObjectDictionary
	mapping Mapping
}

// NewRPDO builds an RPDO bound to the given mapping.
func NewRPDO(dict *od.ObjectDictionary, mapping Mapping) *RPDO {
	return &RPDO{dict: dict, mapping: mapping}
}

// Consume writes payload into the mapped OD locations, in mapping order.
// A payload shorter than the mapping's ByteLength is a protocol error
// (spec §4.5.1 ErrPDOPayloadShort); a longer payload is accepted and the
// excess ignored (the producer may pad).
func (r *RPDO) Consume(payload []byte) error {
	if len(payload) < r.mapping.ByteLength() {
		return fmt.Errorf("pdo: payload %d bytes shorter than mapping %d bytes", len(payload), r.mapping.ByteLength())
	}
	off := 0
	for _, o := range r.mapping.Objects {
		n := o.ByteLength()
		if err := r.dict.WriteInternal(o.Index, o.SubIndex, payload[off:off+n]); err != nil {
			return fmt.Errorf("pdo: writing x%04X:%02X: %w", o.Index, o.SubIndex, err)
		}
		off += n
	}
	return nil
}

// ByteLength returns the mapping's required payload length.
func (r *RPDO) ByteLength() int { return r.mapping.ByteLength() }
