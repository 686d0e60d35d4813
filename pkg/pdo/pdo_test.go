package pdo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlink/gopowerlink/pkg/od"
)

func newMappedDict(t *testing.T) (*od.ObjectDictionary, Mapping) {
	t.Helper()
	dict := od.New(nil, od.NopPersistence{})
	v1, err := od.NewVariable(0, "SpeedSetpoint", od.Integer16, od.AccessRW, []byte{0, 0})
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x6000, "SpeedSetpoint", v1))

	v2, err := od.NewVariable(0, "ControlWord", od.Unsigned16, od.AccessRW, []byte{0, 0})
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x6001, "ControlWord", v2))

	mapping := Mapping{Objects: []MappedObject{
		{Index: 0x6000, SubIndex: 0, BitLength: 16},
		{Index: 0x6001, SubIndex: 0, BitLength: 16},
	}}
	return dict, mapping
}

func TestRPDOConsume(t *testing.T) {
	dict, mapping := newMappedDict(t)
	r := NewRPDO(dict, mapping)
	require.NoError(t, r.Consume([]byte{0x10, 0x00, 0x20, 0x00}))

	got, err := dict.Read(0x6000, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x00}, got)
	got, err = dict.Read(0x6001, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x00}, got)
}

func TestRPDOConsumeRejectsShortPayload(t *testing.T) {
	dict, mapping := newMappedDict(t)
	r := NewRPDO(dict, mapping)
	err := r.Consume([]byte{0x01})
	assert.Error(t, err)
}

func TestTPDOProduce(t *testing.T) {
	dict, mapping := newMappedDict(t)
	require.NoError(t, dict.WriteInternal(0x6000, 0, []byte{0xAA, 0xBB}))
	require.NoError(t, dict.WriteInternal(0x6001, 0, []byte{0xCC, 0xDD}))

	tp := NewTPDO(dict, mapping)
	payload, err := tp.Produce()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, payload)
}

func TestMappingStoreAndLoadRoundTrip(t *testing.T) {
	dict := od.New(nil, od.NopPersistence{})
	dict.Insert(od.NewListEntry(0x1A00, "TPDO mapping parameter", od.NewRecord()))

	want := Mapping{Objects: []MappedObject{
		{Index: 0x6000, SubIndex: 1, BitLength: 8},
		{Index: 0x6001, SubIndex: 0, BitLength: 32},
	}}
	require.NoError(t, StoreMapping(dict, 0x1A00, want))

	got, err := LoadMapping(dict, 0x1A00)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
