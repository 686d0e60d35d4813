package emergency

import (
	"log/slog"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// errorRegisterBit mirrors DS301's ERR_ErrorRegister_U8 generic-error
// bit (bit 0); POWERLINK does not assign the vendor-specific bits this
// repo would otherwise need to interpret.
const errorRegisterBit uint8 = 0x01

// errorCode maps a DllError to the 16-bit POWERLINK error code recorded
// in OD 0x1003 (spec §4.5.3, Table "DLL error codes"). Codes below
// follow the 0x8xxx "communication error" range DS301 reserves for DLL
// conditions.
var errorCode = map[DllError]uint16{
	ErrCollision:              0x8130,
	ErrLossOfSoC:              0x8131,
	ErrLossOfSoA:              0x8132,
	ErrLossOfPReq:             0x8133,
	ErrSoCJitter:              0x8134,
	ErrCRC:                    0x8135,
	ErrHeartbeatTimeout:       0x8136,
	ErrLossOfLink:             0x8137,
	ErrPDOMapVersion:          0x8210,
	ErrPDOPayloadShort:        0x8211,
	ErrCNLatePRes:             0x8138,
	ErrCNLossOfPRes:           0x8139,
	ErrCNLossOfStatusResponse: 0x813A,
	ErrCycleTimeExceeded:      0x813B,
}

// Sink ties the threshold counters to the node-visible error surface:
// OD 0x1001 (ERR_ErrorRegister_U8), OD 0x1003 (PreDefinedErrorField) and
// the EN/EA/EC/ER flags reported in PRes/StatusResponse (spec §4.5.2).
// EN ("error signaled") and EA ("exception acknowledge/clear request
// pending") are exposed as the single IsErrorSignaled query. The
// EA/EC/ER request/acknowledge handshake is not implemented: neither this
// package nor pkg/dll sets or reads those flags.
type Sink struct {
	logger  *slog.Logger
	history *History
	dict    *od.ObjectDictionary
}

// NewSink wires a Sink to an ObjectDictionary, inserting 0x1001 and
// 0x1003 if not already present.
func NewSink(logger *slog.Logger, dict *od.ObjectDictionary) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{logger: logger.With("component", "emergency"), history: NewHistory(HistoryDepth), dict: dict}
	s.ensureObjects()
	return s
}

func (s *Sink) ensureObjects() {
	if _, err := s.dict.Find(0x1001); err != nil {
		v, _ := od.NewVariable(0, "ERR_ErrorRegister_U8", od.Unsigned8, od.AccessRO, []byte{0x00})
		s.dict.Insert(od.NewVarEntry(0x1001, "ERR_ErrorRegister_U8", v))
	}
	if _, err := s.dict.Find(0x1003); err != nil {
		list := od.NewArray()
		count, _ := od.NewVariable(0, "NumberOfErrors", od.Unsigned8, od.AccessRW, []byte{0x00})
		list.AddSubObject(0, count)
		s.dict.Insert(od.NewListEntry(0x1003, "ERR_PreDefinedErrorField_AU32", list))
	}
}

// Report records a DLL error occurrence: it appends to the error
// history, sets the generic bit of ERR_ErrorRegister_U8, and logs the
// code at WARN. It returns nothing; the NMT reaction is decided by the
// owning counters (CN or MN).
func (s *Sink) Report(code uint16, additionalInfo uint16) {
	s.history.Record(ErrorEntry{Code: code, AdditionalInfo: additionalInfo})
	s.syncHistoryToOD()
	s.setErrorRegister(true)
	s.logger.Warn("dll error reported", "code", code, "additional_info", additionalInfo)
}

// ReportDllError is a convenience wrapper over Report using the DllError
// -> OD error code table.
func (s *Sink) ReportDllError(err DllError) {
	s.Report(errorCode[err], 0)
}

func (s *Sink) syncHistoryToOD() {
	entries := s.history.Entries()
	entry, findErr := s.dict.Find(0x1003)
	if findErr != nil {
		return
	}
	list := entry.List()
	if list == nil {
		return
	}
	list.AddSubObject(0, mustVar(od.NewVariable(0, "NumberOfErrors", od.Unsigned8, od.AccessRW, []byte{uint8(len(entries))})))
	for i, e := range entries {
		sub := uint8(i + 1)
		list.AddSubObject(sub, mustVar(od.NewVariable(sub, "Error", od.Unsigned32, od.AccessRO, e.Encode())))
	}
}

func mustVar(v *od.Variable, err error) *od.Variable {
	if err != nil {
		panic(err) // only fails on a length mismatch, which is a bug in this package, not runtime input
	}
	return v
}

// ClearHistory resets 0x1003 and clears ERR_ErrorRegister_U8, per a
// write of zero to 0x1003 subindex 0 (spec §4.5.3 / DS301 §7.5.1).
func (s *Sink) ClearHistory() {
	s.history.Clear()
	s.syncHistoryToOD()
	s.setErrorRegister(false)
}

func (s *Sink) setErrorRegister(active bool) {
	entry, err := s.dict.Find(0x1001)
	if err != nil {
		return
	}
	v, err := entry.SubIndex(0)
	if err != nil {
		return
	}
	cur, _ := v.Uint8()
	if active {
		cur |= errorRegisterBit
	} else {
		cur &^= errorRegisterBit
	}
	_ = v.WriteExactly([]byte{cur}, true)
}

// IsErrorSignaled reports whether ERR_ErrorRegister_U8's generic bit is
// set, i.e. whether PRes/StatusResponse should assert EN.
func (s *Sink) IsErrorSignaled() bool {
	entry, err := s.dict.Find(0x1001)
	if err != nil {
		return false
	}
	v, err := entry.SubIndex(0)
	if err != nil {
		return false
	}
	cur, _ := v.Uint8()
	return cur&errorRegisterBit != 0
}
