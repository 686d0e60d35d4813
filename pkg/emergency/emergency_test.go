package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlink/gopowerlink/pkg/od"
)

func TestSinkReportsSetErrorRegisterAndHistory(t *testing.T) {
	dict := od.New(nil, od.NopPersistence{})
	sink := NewSink(nil, dict)

	assert.False(t, sink.IsErrorSignaled())
	sink.ReportDllError(ErrCRC)
	assert.True(t, sink.IsErrorSignaled())

	entry, err := dict.Find(0x1003)
	require.NoError(t, err)
	count, err := entry.SubIndex(0)
	require.NoError(t, err)
	n, err := count.Uint8()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSinkClearHistory(t *testing.T) {
	dict := od.New(nil, od.NopPersistence{})
	sink := NewSink(nil, dict)
	sink.ReportDllError(ErrCRC)
	sink.ClearHistory()
	assert.False(t, sink.IsErrorSignaled())

	entry, err := dict.Find(0x1003)
	require.NoError(t, err)
	count, err := entry.SubIndex(0)
	require.NoError(t, err)
	n, _ := count.Uint8()
	assert.EqualValues(t, 0, n)
}

func TestHistoryNewestFirstAndOverflow(t *testing.T) {
	h := NewHistory(2)
	h.Record(ErrorEntry{Code: 1})
	h.Record(ErrorEntry{Code: 2})
	h.Record(ErrorEntry{Code: 3})
	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.EqualValues(t, 3, entries[0].Code)
	assert.EqualValues(t, 2, entries[1].Code)
}
