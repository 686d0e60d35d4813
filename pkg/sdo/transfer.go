package sdo

import "encoding/binary"

// transferDirection discriminates a server-side segmented transfer in
// progress for one client.
type transferDirection uint8

const (
	transferDownload transferDirection = iota
	transferUpload
)

// activeTransfer is the server-side bookkeeping for one multi-segment
// command transaction. Per spec §4.3.3 a client has at most one active
// command transaction at a time, so the server keeps one of these per
// client-info rather than per (index, subIndex).
type activeTransfer struct {
	direction transferDirection
	index     uint16
	subIndex  uint8
	buffer    []byte
	offset    int
	total     int
}

// maxSegmentPayload bounds one segment so the resulting ASnd/UDP frame
// stays within the per-frame payload budget (spec §4.3.3: 1452 bytes).
const maxSegmentPayload = 1452

// MaxSegmentPayload is maxSegmentPayload, exported so a Client-driven
// segmented transfer (e.g. an MN pushing a Concise-DCF download) can chunk
// its own buffer the same way the server does.
const MaxSegmentPayload = maxSegmentPayload

// nextSegment returns the next chunk of an upload in progress and
// whether it is the final (Complete) segment.
func (t *activeTransfer) nextSegment() (chunk []byte, phase SegmentationPhase) {
	end := t.offset + maxSegmentPayload
	if end >= len(t.buffer) {
		end = len(t.buffer)
		phase = PhaseComplete
	} else {
		phase = PhaseSegment
	}
	chunk = t.buffer[t.offset:end]
	t.offset = end
	return chunk, phase
}

// encodeInitiateUploadBody packs the 4-byte total size ahead of the
// first chunk for a segmented (Initiate-phase) upload response.
func encodeInitiateUploadBody(totalSize int, chunk []byte) []byte {
	out := make([]byte, 4+len(chunk))
	binary.LittleEndian.PutUint32(out, uint32(totalSize))
	copy(out[4:], chunk)
	return out
}

// decodeInitiateDownloadBody splits an Initiate-phase download body
// into the declared total size and the first chunk.
func decodeInitiateDownloadBody(body []byte) (total int, chunk []byte, err error) {
	if len(body) < 4 {
		return 0, nil, ErrShortCommand
	}
	return int(binary.LittleEndian.Uint32(body[:4])), body[4:], nil
}
