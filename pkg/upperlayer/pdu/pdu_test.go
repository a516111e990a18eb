package pdu

import (
	"bytes"
	"testing"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
)

func TestAssociateRQRoundTrip(t *testing.T) {
	rq := AssociateRQ{
		CalledAETitle:  "STORESCP",
		CallingAETitle: "STORESCU",
		PresentationContexts: []PresentationContextRQ{
			{ID: 1, AbstractSyntax: "1.2.840.10008.1.1", TransferSyntaxes: []string{"1.2.840.10008.1.2"}},
			{ID: 3, AbstractSyntax: "1.2.840.10008.5.1.4.1.1.7", TransferSyntaxes: []string{
				"1.2.840.10008.1.2.4.90", "1.2.840.10008.1.2.1",
			}},
		},
		UserInformation: UserInformation{
			MaxPDULength:              16384,
			ImplementationClassUID:    "1.2.3.4",
			ImplementationVersionName: "SHARPDICOM_1",
		},
	}
	body := MarshalAssociateRQ(rq)
	got, err := UnmarshalAssociateRQ(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.CalledAETitle != rq.CalledAETitle || got.CallingAETitle != rq.CallingAETitle {
		t.Fatalf("AE titles mismatch: %+v", got)
	}
	if len(got.PresentationContexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(got.PresentationContexts))
	}
	if got.PresentationContexts[1].TransferSyntaxes[0] != "1.2.840.10008.1.2.4.90" {
		t.Fatalf("unexpected transfer syntax order: %+v", got.PresentationContexts[1])
	}
	if got.UserInformation.MaxPDULength != 16384 {
		t.Fatalf("max PDU length mismatch: %+v", got.UserInformation)
	}
}

func TestAssociateACRoundTrip(t *testing.T) {
	ac := AssociateAC{
		CalledAETitle:  "STORESCP",
		CallingAETitle: "STORESCU",
		PresentationContexts: []PresentationContextAC{
			{ID: 1, Result: ResultAcceptance, TransferSyntax: "1.2.840.10008.1.2"},
			{ID: 3, Result: ResultTransferSyntaxesNotSupported},
		},
		UserInformation: UserInformation{MaxPDULength: 32768, ImplementationClassUID: "1.2.3.4"},
	}
	body := MarshalAssociateAC(ac)
	got, err := UnmarshalAssociateAC(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.PresentationContexts) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(got.PresentationContexts))
	}
	if got.PresentationContexts[0].TransferSyntax != "1.2.840.10008.1.2" {
		t.Fatalf("accepted context missing transfer syntax: %+v", got.PresentationContexts[0])
	}
	if got.PresentationContexts[1].TransferSyntax != "" {
		t.Fatalf("rejected context must carry no transfer syntax: %+v", got.PresentationContexts[1])
	}
}

func TestAssociateRJRoundTrip(t *testing.T) {
	rj := AssociateRJ{Result: common.RejectResultPermanent, Source: common.RejectSourceServiceUser, Reason: common.RejectReasonCalledAETitleNotRecognized}
	body := MarshalAssociateRJ(rj)
	got, err := UnmarshalAssociateRJ(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != rj {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, rj)
	}
}

func TestAbortRoundTrip(t *testing.T) {
	a := Abort{Source: AbortSourceServiceProvider, Reason: 0x02}
	got, err := UnmarshalAbort(MarshalAbort(a))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != a {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, a)
	}
}

func TestPDataTFRoundTrip(t *testing.T) {
	pdvs := []PDV{
		{ContextID: 1, IsCommand: true, IsLastFragment: true, Data: []byte{0x01, 0x02, 0x03}},
		{ContextID: 1, IsCommand: false, IsLastFragment: false, Data: bytes.Repeat([]byte{0xAA}, 100)},
		{ContextID: 1, IsCommand: false, IsLastFragment: true, Data: []byte{0xBB}},
	}
	body := MarshalPDataTF(pdvs)
	got, err := UnmarshalPDataTF(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != len(pdvs) {
		t.Fatalf("expected %d PDVs, got %d", len(pdvs), len(got))
	}
	for i := range pdvs {
		if got[i].ContextID != pdvs[i].ContextID || got[i].IsCommand != pdvs[i].IsCommand ||
			got[i].IsLastFragment != pdvs[i].IsLastFragment || !bytes.Equal(got[i].Data, pdvs[i].Data) {
			t.Fatalf("PDV %d mismatch: got %+v want %+v", i, got[i], pdvs[i])
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, TypePDataTF, 1234); err != nil {
		t.Fatalf("write: %v", err)
	}
	gotType, gotLen, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotType != TypePDataTF || gotLen != 1234 {
		t.Fatalf("header mismatch: type=%v len=%v", gotType, gotLen)
	}
}

func TestReadBodyRejectsOversizedAssociationPDU(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteHeader(&buf, TypeAssociateRQ, common.MaxAssociationPDUBytes+1)
	if _, _, err := ReadBody(&buf, 0); err == nil {
		t.Fatal("expected an error for an oversized association PDU body")
	}
}
