package od

// NopPersistence is a powerlink.PersistenceBackend that never stores
// anything. Every Persistent Variable simply keeps its compiled-in
// default across restarts; useful for tests and for nodes with no
// non-volatile storage medium (spec §6.3 notes persistence is optional).
type NopPersistence struct{}

func (NopPersistence) Load(index uint16, subIndex uint8) ([]byte, bool) { return nil, false }
func (NopPersistence) Store(index uint16, subIndex uint8, value []byte) error { return nil }
