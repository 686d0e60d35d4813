package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceTypeVar(t *testing.T) *Variable {
	t.Helper()
	v, err := NewVariable(0, "NMT_DeviceType_U32", Unsigned32, AccessRO, []byte{0, 0, 0, 0})
	require.NoError(t, err)
	return v
}

func TestObjectDictionaryReadWrite(t *testing.T) {
	dict := New(nil, NopPersistence{})
	errReg, err := NewVariable(0, "ERR_ErrorRegister_U8", Unsigned8, AccessRW, []byte{0x00})
	require.NoError(t, err)
	dict.Insert(NewVarEntry(0x1001, "ERR_ErrorRegister_U8", errReg))

	require.NoError(t, dict.Write(0x1001, 0, []byte{0x01}))
	got, err := dict.Read(0x1001, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, got)
}

func TestObjectDictionaryReadOnlyRejectsExternalWrite(t *testing.T) {
	dict := New(nil, NopPersistence{})
	dict.Insert(NewVarEntry(0x1000, "NMT_DeviceType_U32", newDeviceTypeVar(t)))

	err := dict.Write(0x1000, 0, []byte{1, 0, 0, 0})
	assert.ErrorIs(t, err, ErrReadonly)

	require.NoError(t, dict.WriteInternal(0x1000, 0, []byte{1, 0, 0, 0}))
	got, err := dict.Read(0x1000, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, got)
}

func TestObjectDictionaryMissingIndex(t *testing.T) {
	dict := New(nil, NopPersistence{})
	_, err := dict.Read(0x2000, 0)
	assert.ErrorIs(t, err, ErrIdxNotExist)
}

func TestValidateMandatoryObjects(t *testing.T) {
	dict := New(nil, NopPersistence{})
	err := dict.ValidateMandatoryObjects([]uint16{0x1000})
	require.Error(t, err)

	dict.Insert(NewVarEntry(0x1000, "NMT_DeviceType_U32", newDeviceTypeVar(t)))
	require.NoError(t, dict.ValidateMandatoryObjects([]uint16{0x1000}))
}

func TestRecordSubIndexAccess(t *testing.T) {
	identity := NewRecord()
	vendor, err := NewVariable(1, "VendorId_U32", Unsigned32, AccessRO, []byte{1, 0, 0, 0})
	require.NoError(t, err)
	identity.AddSubObject(1, vendor)

	dict := New(nil, NopPersistence{})
	dict.Insert(NewListEntry(0x1018, "NMT_IdentityObject_REC", identity))

	got, err := dict.Read(0x1018, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, got)

	_, err = dict.Read(0x1018, 9)
	assert.ErrorIs(t, err, ErrSubNotExist)
}

func TestPersistenceRoundTrip(t *testing.T) {
	backend := &memPersistence{values: map[[2]uint8]([]byte){}}
	dict := New(nil, backend)
	v, err := NewVariable(0, "Test_U8", Unsigned8, AccessRW, []byte{0})
	require.NoError(t, err)
	v.Persistent = true
	dict.Insert(NewVarEntry(0x2000, "Test_U8", v))

	require.NoError(t, dict.Write(0x2000, 0, []byte{42}))
	require.Len(t, backend.stored, 1)
}

type memPersistence struct {
	values map[[2]uint8][]byte
	stored []uint8
}

func (m *memPersistence) Load(index uint16, subIndex uint8) ([]byte, bool) { return nil, false }
func (m *memPersistence) Store(index uint16, subIndex uint8, value []byte) error {
	m.stored = append(m.stored, subIndex)
	return nil
}
