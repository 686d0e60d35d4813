package plframe

import (
	"bytes"
	"testing"

	"github.com/powerlink/gopowerlink"
)

func wrapEthernet(mt powerlink.MessageType, payload []byte) powerlink.EthernetFrame {
	return powerlink.EthernetFrame{
		EtherType: powerlink.EtherTypePowerlink,
		Payload:   payload,
	}
}

func TestSoCRoundTrip(t *testing.T) {
	in := SoC{
		Destination:  powerlink.NodeIdBroadcast,
		Source:       powerlink.NodeIdMN,
		Flags:        SoCFlags{MC: true, PS: false},
		NetTimeSec:   12345,
		NetTimeNsec:  6789,
		RelativeTime: 0xdeadbeefcafe,
	}
	buf := make([]byte, powerlink.MinPayloadPad)
	n, err := in.Serialize(buf)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypeSoC, buf[:n]))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	out, ok := got.(SoC)
	if !ok {
		t.Fatalf("wrong type %T", got)
	}
	if out.Flags != in.Flags || out.NetTimeSec != in.NetTimeSec || out.NetTimeNsec != in.NetTimeNsec || out.RelativeTime != in.RelativeTime {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestPReqRoundTrip(t *testing.T) {
	in := PReq{
		Destination: 5,
		Source:      powerlink.NodeIdMN,
		RD:          true,
		PDOVersion:  1,
		Payload:     []byte{0x01, 0x02, 0x03, 0x04},
	}
	buf := make([]byte, powerlink.MinPayloadPad)
	n, err := in.Serialize(buf)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypePReq, buf[:n]))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	out := got.(PReq)
	if out.Destination != in.Destination || out.RD != in.RD || out.PDOVersion != in.PDOVersion {
		t.Fatalf("mismatch: %+v vs %+v", in, out)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch: %x vs %x", out.Payload, in.Payload)
	}
}

func TestPResRoundTrip(t *testing.T) {
	in := PRes{
		Destination: powerlink.NodeIdBroadcast,
		Source:      5,
		NMTState:    0xFD, // Operational
		Flags: PResFlags{
			MS: true,
			EN: false,
			RD: true,
			PR: PRGeneric,
			RS: NewRSFlag(3),
		},
		PDOVersion: 2,
		Payload:    []byte{0xAA, 0xBB},
	}
	buf := make([]byte, powerlink.MinPayloadPad)
	n, err := in.Serialize(buf)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypePRes, buf[:n]))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	out := got.(PRes)
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch: %x vs %x", out.Payload, in.Payload)
	}
	if out.Flags != in.Flags || out.NMTState != in.NMTState || out.Destination != in.Destination || out.Source != in.Source {
		t.Fatalf("mismatch: %+v vs %+v", in, out)
	}
}

func TestRSFlagClamps(t *testing.T) {
	if got := NewRSFlag(9); got != 7 {
		t.Fatalf("expected clamp to 7, got %d", got)
	}
}

func TestSoARoundTrip(t *testing.T) {
	in := SoA{
		Destination:      powerlink.NodeIdBroadcast,
		Source:           powerlink.NodeIdMN,
		EPLVersion:        0x20,
		RequestedService: ServiceIdentRequest,
		RequestedTarget:  7,
	}
	buf := make([]byte, powerlink.MinPayloadPad)
	n, err := in.Serialize(buf)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypeSoA, buf[:n]))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	out := got.(SoA)
	if out != in {
		t.Fatalf("mismatch: %+v vs %+v", in, out)
	}
}

func TestASndRoundTrip(t *testing.T) {
	in := ASnd{
		Destination: powerlink.NodeIdMN,
		Source:      7,
		ServiceId:   ASndIdentResponse,
		Data:        []byte{0x01, 0x02, 0x03},
	}
	buf := make([]byte, plHeaderSize+1+len(in.Data))
	n, err := in.Serialize(buf)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypeASnd, buf[:n]))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	out := got.(ASnd)
	if out.ServiceId != in.ServiceId || !bytes.Equal(out.Data, in.Data) {
		t.Fatalf("mismatch: %+v vs %+v", in, out)
	}
}

func TestDeserializeFrameRejectsNonPowerlinkEtherType(t *testing.T) {
	_, err := DeserializeFrame(powerlink.EthernetFrame{EtherType: 0x0800, Payload: []byte{0, 0, 0}})
	if err != powerlink.ErrNotPowerlinkFrame {
		t.Fatalf("expected ErrNotPowerlinkFrame, got %v", err)
	}
}

func TestDeserializeFrameRejectsTruncated(t *testing.T) {
	_, err := DeserializeFrame(wrapEthernet(powerlink.MessageTypeSoC, []byte{0x01}))
	if err != powerlink.ErrTruncatedFrame {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
}
