package dimse

import (
	"bytes"
	"testing"

	"github.com/jas88/sharpdicom/pkg/upperlayer/pdu"
)

func TestCEchoCommandSetRoundTrip(t *testing.T) {
	req := NewCEchoRequest(1)
	data := EncodeCommandSet(req)
	got, err := DecodeCommandSet(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if field, _ := got.US(TagCommandField); field != CommandCEchoRQ {
		t.Fatalf("command field mismatch: %v", field)
	}
	if id, _ := got.US(TagMessageID); id != 1 {
		t.Fatalf("message id mismatch: %v", id)
	}
	if uid, _ := got.UI(TagAffectedSOPClassUID); uid != VerificationSOPClass {
		t.Fatalf("sop class mismatch: %q", uid)
	}
}

func TestCEchoResponseStatus(t *testing.T) {
	rsp := NewCEchoResponse(7, 0x0000)
	data := EncodeCommandSet(rsp)
	got, err := DecodeCommandSet(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	msgID, status, err := CEchoResponseStatus(got)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if msgID != 7 || status != 0x0000 {
		t.Fatalf("unexpected msgID=%d status=%#x", msgID, status)
	}
}

// Unknown group-0x0000 elements must round-trip as raw bytes rather than
// being rejected, per the "accept any group-0x0000 element" design.
func TestUnknownCommandElementRoundTrips(t *testing.T) {
	cs := NewCommandSet()
	cs.SetUS(TagCommandField, CommandCEchoRQ)
	cs.SetBytes(0x0600, []byte("REMOTE_AE"))
	data := EncodeCommandSet(cs)
	got, err := DecodeCommandSet(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, ok := got.Bytes(0x0600)
	if !ok || string(raw) != "REMOTE_AE" {
		t.Fatalf("unknown element did not round-trip: %v %q", ok, raw)
	}
}

func TestFragmentPDVsRespectsMaxPDU(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 1000)
	pdvs := FragmentPDVs(1, false, payload, 100)
	if len(pdvs) < 2 {
		t.Fatalf("expected multiple fragments, got %d", len(pdvs))
	}
	var reassembled []byte
	for i, p := range pdvs {
		isLast := i == len(pdvs)-1
		if p.IsLastFragment != isLast {
			t.Fatalf("fragment %d: IsLastFragment=%v, want %v", i, p.IsLastFragment, isLast)
		}
		if p.IsCommand {
			t.Fatalf("fragment %d: expected data fragment, got command", i)
		}
		if len(p.Data)+pduOverhead > 100 {
			t.Fatalf("fragment %d: %d data bytes plus %d overhead exceed max PDU 100", i, len(p.Data), pduOverhead)
		}
		reassembled = append(reassembled, p.Data...)
	}
	if !bytes.Equal(reassembled, payload) {
		t.Fatal("reassembled payload does not match original")
	}
}

func TestReassemblerAcrossMultiplePDVs(t *testing.T) {
	r := NewReassembler(1)
	pdvs := FragmentPDVs(1, true, bytes.Repeat([]byte{0x01, 0x02}, 50), 30)
	var complete []byte
	var done bool
	for _, p := range pdvs {
		complete, done = r.AddCommand(pdu.PDV{ContextID: p.ContextID, IsCommand: p.IsCommand, IsLastFragment: p.IsLastFragment, Data: p.Data})
	}
	if !done {
		t.Fatal("expected reassembly to complete on last fragment")
	}
	if len(complete) != 100 {
		t.Fatalf("expected 100 reassembled bytes, got %d", len(complete))
	}
}
