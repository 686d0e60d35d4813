package sdo

import (
	"encoding/binary"
	"log/slog"

	"github.com/powerlink/gopowerlink/pkg/od"
)

// ClientKey identifies one SDO client connection: a POWERLINK NodeId
// for the ASnd transport, or an arbitrary opaque string (e.g. "ip:port")
// for the UDP transport (spec §4.3.3 "Per active client-info").
type ClientKey string

// Server is the SDO server side of the sequence+command layers (spec
// §4.3.3): it answers WriteByIndex/ReadByIndex commands against an
// ObjectDictionary. Unlike the teacher's pkg/sdo.SDOServer, which owns a
// goroutine reading from an rx channel, Process is a pure function
// called once per received frame — the embedding node's RunCycle
// drives it, per spec §5.
type Server struct {
	logger  *slog.Logger
	dict    *od.ObjectDictionary
	clients map[ClientKey]*clientState
}

type clientState struct {
	seq      *SequenceHandler
	transfer *activeTransfer
}

// NewServer creates an SDO server bound to dict.
func NewServer(logger *slog.Logger, dict *od.ObjectDictionary) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger.With("component", "sdo_server"),
		dict:    dict,
		clients: map[ClientKey]*clientState{},
	}
}

// Process handles one received sequence-layer frame from client and
// returns the full sequence-wrapped response to send back over
// whichever carrier delivered the request.
func (s *Server) Process(client ClientKey, frame []byte) []byte {
	cs, ok := s.clients[client]
	if !ok {
		cs = &clientState{seq: NewSequenceHandler()}
		s.clients[client] = cs
	}

	payload, duplicate, seqAbort, err := cs.seq.Accept(frame)
	if err != nil {
		return nil
	}
	if duplicate {
		return cs.seq.LastSent()
	}
	if seqAbort != AbortNone {
		return cs.seq.Wrap(s.abortResponse(CommandHeader{}, seqAbort))
	}
	if len(payload) == 0 {
		// Pure handshake frame (initiation/confirmation carries no command yet).
		return cs.seq.Wrap(nil)
	}

	header, err := DecodeCommandHeader(payload)
	if err != nil {
		return cs.seq.Wrap(s.abortResponse(CommandHeader{}, AbortCommandInvalid))
	}
	body := payload[HeaderSize:]

	var resp []byte
	switch header.Command {
	case CmdWriteByIndex:
		resp = s.handleWrite(cs, header, body)
	case CmdReadByIndex:
		resp = s.handleRead(cs, header, body)
	case CmdNil:
		resp = s.ack(header, PhaseExpedited, nil)
	default:
		resp = s.abortResponse(header, AbortCommandInvalid)
	}
	return cs.seq.Wrap(resp)
}

func (s *Server) handleWrite(cs *clientState, header CommandHeader, body []byte) []byte {
	switch header.Phase {
	case PhaseExpedited:
		if len(body) < 3 {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		index := binary.LittleEndian.Uint16(body[0:2])
		subIndex := body[2]
		if err := s.dict.Write(index, subIndex, body[3:]); err != nil {
			return s.abortResponse(header, AbortFor(err))
		}
		return s.ack(header, PhaseExpedited, nil)

	case PhaseInitiate:
		if len(body) < 7 {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		index := binary.LittleEndian.Uint16(body[0:2])
		subIndex := body[2]
		total, chunk, err := decodeInitiateDownloadBody(body[3:])
		if err != nil {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		buf := make([]byte, 0, total)
		buf = append(buf, chunk...)
		cs.transfer = &activeTransfer{direction: transferDownload, index: index, subIndex: subIndex, buffer: buf, total: total}
		return s.ack(header, PhaseInitiate, nil)

	case PhaseSegment, PhaseComplete:
		t := cs.transfer
		if t == nil || t.direction != transferDownload {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		t.buffer = append(t.buffer, body...)
		if header.Phase == PhaseComplete {
			err := s.dict.Write(t.index, t.subIndex, t.buffer)
			cs.transfer = nil
			if err != nil {
				return s.abortResponse(header, AbortFor(err))
			}
		}
		return s.ack(header, header.Phase, nil)
	}
	return s.abortResponse(header, AbortCommandInvalid)
}

func (s *Server) handleRead(cs *clientState, header CommandHeader, body []byte) []byte {
	switch header.Phase {
	case PhaseExpedited:
		if len(body) < 3 {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		index := binary.LittleEndian.Uint16(body[0:2])
		subIndex := body[2]
		value, err := s.dict.Read(index, subIndex)
		if err != nil {
			return s.abortResponse(header, AbortFor(err))
		}
		if len(value) <= expeditedThreshold {
			return s.ack(header, PhaseExpedited, value)
		}
		cs.transfer = &activeTransfer{direction: transferUpload, index: index, subIndex: subIndex, buffer: value, total: len(value)}
		chunk, _ := cs.transfer.nextSegment()
		return s.ack(header, PhaseInitiate, encodeInitiateUploadBody(len(value), chunk))

	case PhaseSegment, PhaseComplete:
		t := cs.transfer
		if t == nil || t.direction != transferUpload {
			return s.abortResponse(header, AbortCommandInvalid)
		}
		chunk, phase := t.nextSegment()
		if phase == PhaseComplete {
			cs.transfer = nil
		}
		return s.ack(header, phase, chunk)
	}
	return s.abortResponse(header, AbortCommandInvalid)
}

// expeditedThreshold is the largest value a read/write may carry inline
// before the server switches to segmented transfer (spec §4.3.2).
const expeditedThreshold = 4

func (s *Server) ack(req CommandHeader, phase SegmentationPhase, data []byte) []byte {
	resp := CommandHeader{TransactionId: req.TransactionId, Response: true, Phase: phase, Command: req.Command, SegmentSize: uint16(len(data))}
	buf := make([]byte, HeaderSize+len(data))
	resp.Encode(buf)
	copy(buf[HeaderSize:], data)
	return buf
}

func (s *Server) abortResponse(req CommandHeader, code AbortCode) []byte {
	payload := EncodeAbortPayload(code)
	resp := CommandHeader{TransactionId: req.TransactionId, Response: true, Abort: true, Command: req.Command, SegmentSize: uint16(len(payload))}
	buf := make([]byte, HeaderSize+len(payload))
	resp.Encode(buf)
	copy(buf[HeaderSize:], payload)
	return buf
}
