package sdo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powerlink/gopowerlink/pkg/od"
)

func newTestDict(t *testing.T) *od.ObjectDictionary {
	t.Helper()
	dict := od.New(nil, od.NopPersistence{})
	counter, err := od.NewVariable(0, "DeviceCounter_U32", od.Unsigned32, od.AccessRW, []byte{0, 0, 0, 0})
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x2000, "DeviceCounter_U32", counter))

	big, err := od.NewVariable(0, "Blob_VS", od.VisibleString, od.AccessRW, make([]byte, 64))
	require.NoError(t, err)
	dict.Insert(od.NewVarEntry(0x2001, "Blob_VS", big))
	return dict
}

func TestSequenceHandshakeAndExpeditedWrite(t *testing.T) {
	dict := newTestDict(t)
	server := NewServer(nil, dict)
	client := NewClient()

	req, _, segmented := client.BuildWriteByIndex(0x2000, 0, []byte{0x2A, 0, 0, 0})
	require.False(t, segmented)

	// Step 1: client rcon=0/scon=1 carries no command yet per the
	// handshake; the sequence layer alone must accept it.
	hdr1, _ := DecodeSequenceHeader(req)
	require.Equal(t, ConnInitialization, hdr1.SendCon)

	resp1 := server.Process("n1", req[:SequenceHeaderSize])
	require.NotNil(t, resp1)
	rhdr1, err := DecodeSequenceHeader(resp1)
	require.NoError(t, err)
	require.Equal(t, ConnInitialization, rhdr1.SendCon)

	// Step 2: client confirms with rcon=2/scon=2 and the real command.
	req2, _, _ := client.BuildWriteByIndex(0x2000, 0, []byte{0x2A, 0, 0, 0})
	resp2 := server.Process("n1", req2)
	require.NotNil(t, resp2)

	body, phase, abort, err := ParseResponse(resp2)
	require.NoError(t, err)
	require.Equal(t, AbortNone, abort)
	require.Equal(t, PhaseExpedited, phase)
	_ = body

	got, err := dict.Read(0x2000, 0)
	require.NoError(t, err)
	require.Equal(t, []byte{0x2A, 0, 0, 0}, got)
}

func TestDuplicateSequenceNumberRetransmitsLastResponse(t *testing.T) {
	dict := newTestDict(t)
	server := NewServer(nil, dict)

	frame := make([]byte, SequenceHeaderSize)
	SequenceHeader{SendCon: ConnInitialization}.Encode(frame)
	first := server.Process("n2", frame)
	require.NotNil(t, first)

	frame2 := make([]byte, SequenceHeaderSize)
	SequenceHeader{SendCon: ConnConnectionValid}.Encode(frame2)
	second := server.Process("n2", frame2)
	require.NotNil(t, second)

	// Re-send the exact same frame: the server must detect the repeated
	// sequence number and retransmit rather than re-run the handshake.
	third := server.Process("n2", frame2)
	require.Equal(t, second, third)
}

func TestSegmentedUploadRoundTrip(t *testing.T) {
	dict := newTestDict(t)
	want := make([]byte, 40)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, dict.Write(0x2001, 0, want))

	server := NewServer(nil, dict)
	client := NewClient()

	// Drive the handshake with an empty body first: the client's own
	// opening frame (header only), then the connection-valid step.
	frame1 := client.BuildReadByIndex(0x2001, 0)[:SequenceHeaderSize]
	require.NotNil(t, server.Process("n3", frame1))
	frame2 := make([]byte, SequenceHeaderSize)
	SequenceHeader{SendCon: ConnConnectionValid}.Encode(frame2)
	require.NotNil(t, server.Process("n3", frame2))

	req := client.BuildReadByIndex(0x2001, 0)
	resp := server.Process("n3", req)
	body, phase, abort, err := ParseResponse(resp)
	require.NoError(t, err)
	require.Equal(t, AbortNone, abort)
	require.Equal(t, PhaseInitiate, phase)
	require.True(t, len(body) >= 4)

	total, chunk, err := decodeInitiateDownloadBody(body)
	require.NoError(t, err)
	require.Equal(t, len(want), total)

	got := append([]byte{}, chunk...)
	for {
		segReq := client.BuildReadSegment(1, PhaseSegment)
		segResp := server.Process("n3", segReq)
		segBody, segPhase, segAbort, err := ParseResponse(segResp)
		require.NoError(t, err)
		require.Equal(t, AbortNone, segAbort)
		got = append(got, segBody...)
		if segPhase == PhaseComplete {
			break
		}
	}
	require.Equal(t, want, got)
}

func TestWriteUnknownIndexAborts(t *testing.T) {
	dict := newTestDict(t)
	server := NewServer(nil, dict)
	client := NewClient()

	frame1, _, _ := client.BuildWriteByIndex(0x9999, 0, []byte{1, 2, 3, 4})
	require.NotNil(t, server.Process("n4", frame1[:SequenceHeaderSize]))
	frame2 := make([]byte, SequenceHeaderSize)
	SequenceHeader{SendCon: ConnConnectionValid}.Encode(frame2)
	require.NotNil(t, server.Process("n4", frame2))

	req, _, _ := client.BuildWriteByIndex(0x9999, 0, []byte{1, 2, 3, 4})
	resp := server.Process("n4", req)
	_, _, abort, err := ParseResponse(resp)
	require.NoError(t, err)
	require.Equal(t, AbortObjectDoesNotExist, abort)
}

func TestEmbeddedHandlerExpeditedReadPadsToContainer(t *testing.T) {
	dict := newTestDict(t)
	require.NoError(t, dict.Write(0x2000, 0, []byte{9, 0, 0, 0}))
	server := NewServer(nil, dict)
	handler := NewEmbeddedHandler(server, "embedded:1", 16)

	hello := EmbeddedHeader{State: ConnInitialization}.Encode()
	resp1 := handler.Process([]byte{hello})
	require.Len(t, resp1, 16)

	confirm := EmbeddedHeader{State: ConnConnectionValid}.Encode()
	resp2 := handler.Process([]byte{confirm})
	require.Len(t, resp2, 16)

	addr := []byte{0x00, 0x20, 0x00}
	h := CommandHeader{TransactionId: 1, Phase: PhaseExpedited, Command: CmdReadByIndex, SegmentSize: uint16(len(addr))}
	cmdBuf := make([]byte, HeaderSize+len(addr))
	h.Encode(cmdBuf)
	copy(cmdBuf[HeaderSize:], addr)

	reqHdr := EmbeddedHeader{SequenceNumber: 1, State: ConnConnectionValid}.Encode()
	req := append([]byte{reqHdr}, cmdBuf...)
	resp3 := handler.Process(req)
	require.Len(t, resp3, 16)
}
