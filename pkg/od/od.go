package od

import (
	"fmt"
	"log/slog"

	powerlink "github.com/powerlink/gopowerlink"
)

// ObjectDictionary is the node's complete parameter and process-data
// store (spec §4.2), addressed by 16-bit index and 8-bit subindex. It is
// the single source of truth the DLL, PDO and SDO layers all read from
// and write through.
type ObjectDictionary struct {
	logger      *slog.Logger
	entries     map[uint16]*Entry
	byName      map[string]*Entry
	persistence powerlink.PersistenceBackend
	writeCount  uint64
}

// New creates an empty ObjectDictionary backed by persistence (use
// NopPersistence{} if entries never need to survive a restart).
func New(logger *slog.Logger, persistence powerlink.PersistenceBackend) *ObjectDictionary {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectDictionary{
		logger:      logger.With("component", "od"),
		entries:     map[uint16]*Entry{},
		byName:      map[string]*Entry{},
		persistence: persistence,
	}
}

// Insert adds or replaces an entry. Any existing entry at the same index
// is overwritten and a warning is logged.
func (od *ObjectDictionary) Insert(entry *Entry) {
	if _, exists := od.entries[entry.Index]; exists {
		od.logger.Warn("overwriting existing entry", "index", fmt.Sprintf("x%04X", entry.Index))
	}
	od.entries[entry.Index] = entry
	od.byName[entry.Name] = entry
}

// Find returns the Entry at index, or ErrIdxNotExist.
func (od *ObjectDictionary) Find(index uint16) (*Entry, error) {
	e, ok := od.entries[index]
	if !ok {
		return nil, ErrIdxNotExist
	}
	return e, nil
}

// FindByName returns the Entry with the given OD name, or ErrIdxNotExist.
func (od *ObjectDictionary) FindByName(name string) (*Entry, error) {
	e, ok := od.byName[name]
	if !ok {
		return nil, ErrIdxNotExist
	}
	return e, nil
}

// Entries exposes the full index -> Entry map, e.g. for PDO mapping
// resolution or diagnostic dumps.
func (od *ObjectDictionary) Entries() map[uint16]*Entry { return od.entries }

// Read returns the raw bytes at index/subIndex.
func (od *ObjectDictionary) Read(index uint16, subIndex uint8) ([]byte, error) {
	entry, err := od.Find(index)
	if err != nil {
		return nil, err
	}
	v, err := entry.SubIndex(subIndex)
	if err != nil {
		return nil, err
	}
	if !v.Attribute.readable() {
		return nil, ErrWriteOnly
	}
	return v.Bytes(), nil
}

// Write stores value at index/subIndex, enforcing access and type-size
// checks, and persists it if the Variable is marked Persistent.
func (od *ObjectDictionary) Write(index uint16, subIndex uint8, value []byte) error {
	return od.write(index, subIndex, value, false)
}

// WriteInternal writes bypassing the access-attribute check, for use by
// the engine itself (e.g. NMT updating 0x1F8C CurrNMTState, spec §4.4).
func (od *ObjectDictionary) WriteInternal(index uint16, subIndex uint8, value []byte) error {
	return od.write(index, subIndex, value, true)
}

func (od *ObjectDictionary) write(index uint16, subIndex uint8, value []byte, origin bool) error {
	entry, err := od.Find(index)
	if err != nil {
		return err
	}
	v, err := entry.SubIndex(subIndex)
	if err != nil {
		return err
	}
	if err := v.WriteExactly(value, origin); err != nil {
		return err
	}
	od.writeCount++
	if v.Persistent && od.persistence != nil {
		if err := od.persistence.Store(index, subIndex, value); err != nil {
			od.logger.Warn("persistence store failed",
				"index", fmt.Sprintf("x%04X", index), "subindex", subIndex, "error", err)
		}
	}
	return nil
}

// WriteCount returns the number of successful Write/WriteInternal calls
// since creation, used by diagnostic tooling (no OD equivalent of this
// exists on the wire; it is purely an in-process counter).
func (od *ObjectDictionary) WriteCount() uint64 { return od.writeCount }

// Init loads persisted values for every Persistent Variable from the
// configured PersistenceBackend, overwriting their compiled-in defaults.
// Call once at node startup, before entering NMT_GS_INITIALISING.
func (od *ObjectDictionary) Init() {
	if od.persistence == nil {
		return
	}
	for _, entry := range od.entries {
		walkVariables(entry, func(v *Variable) {
			if !v.Persistent {
				return
			}
			if stored, ok := od.persistence.Load(entry.Index, v.SubIndex); ok {
				if err := v.WriteExactly(stored, true); err != nil {
					od.logger.Warn("discarding invalid persisted value",
						"index", fmt.Sprintf("x%04X", entry.Index), "subindex", v.SubIndex, "error", err)
				}
			}
		})
	}
}

func walkVariables(entry *Entry, fn func(*Variable)) {
	if v := entry.Variable(); v != nil {
		fn(v)
		return
	}
	if l := entry.List(); l != nil {
		for _, v := range l.Variables {
			fn(v)
		}
	}
}

// ValidateMandatoryObjects checks that every index in want is present,
// returning the first missing index wrapped in powerlink.ErrMissingMandatory.
// No constructor or node orchestrator calls it; embedding code runs it
// on its own (spec §4.4.2/§4.4.4).
func (od *ObjectDictionary) ValidateMandatoryObjects(want []uint16) error {
	for _, idx := range want {
		if _, err := od.Find(idx); err != nil {
			return fmt.Errorf("%w: missing mandatory object x%04X", powerlink.ErrMissingMandatory, idx)
		}
	}
	return nil
}
