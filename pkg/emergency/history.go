package emergency

import (
	"encoding/binary"
	"time"

	"github.com/powerlink/gopowerlink/internal/ring"
)

// HistoryDepth is the default 0x1003 PreDefinedErrorField capacity.
const HistoryDepth = 8

// ErrorEntry is one OD 0x1003 PreDefinedErrorField record: a 16-bit
// POWERLINK error code plus two bytes of vendor-specific additional
// information, timestamped at detection (the timestamp is a host-side
// diagnostic convenience; it is not transmitted on the wire).
type ErrorEntry struct {
	Code           uint16
	AdditionalInfo uint16
	DetectedAt     time.Time
}

// Encode returns the 4-byte OD wire representation: ErrorCode (LE16)
// followed by AdditionalInformation (LE16), matching DS301's
// UNSIGNED32 PreDefinedErrorField subentry layout.
func (e ErrorEntry) Encode() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], e.Code)
	binary.LittleEndian.PutUint16(buf[2:4], e.AdditionalInfo)
	return buf
}

// History is the fixed-depth error-history ring backing OD 0x1003,
// newest entry first when read back (DS301 §7.5.1: subindex 1 is the
// most recent error).
type History struct {
	buf *ring.Buffer[ErrorEntry]
}

// NewHistory creates a History with the given depth (0x1003 subindex 0).
func NewHistory(depth int) *History {
	return &History{buf: ring.New[ErrorEntry](depth)}
}

// Record appends an entry, overwriting the oldest if the history is full.
func (h *History) Record(entry ErrorEntry) {
	h.buf.Push(entry)
}

// Entries returns entries newest-first, as OD 0x1003 subindices 1..N
// expect them.
func (h *History) Entries() []ErrorEntry {
	raw := h.buf.Entries()
	out := make([]ErrorEntry, len(raw))
	for i, e := range raw {
		out[len(raw)-1-i] = e
	}
	return out
}

// Clear empties the history (OD 0x1003 subindex 0 write of zero, per
// DS301 §7.5.1).
func (h *History) Clear() { h.buf.Reset() }
