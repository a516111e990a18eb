package common

import "testing"

// Property #10: any PDU whose declared body length exceeds the bound for
// its kind is rejected before allocation.
func TestCheckPDUBodyLengthBounds(t *testing.T) {
	if err := CheckPDUBodyLength(0x01, MaxAssociationPDUBytes, 0, true); err != nil {
		t.Fatalf("exactly at the association ceiling should pass: %v", err)
	}
	if err := CheckPDUBodyLength(0x01, MaxAssociationPDUBytes+1, 0, true); err == nil {
		t.Fatal("expected rejection just above the association ceiling")
	}
	if err := CheckPDUBodyLength(0x04, MaxDataPDUBytes, 0, false); err != nil {
		t.Fatalf("exactly at the data ceiling should pass: %v", err)
	}
	if err := CheckPDUBodyLength(0x04, MaxDataPDUBytes+1, 0, false); err == nil {
		t.Fatal("expected rejection just above the data ceiling")
	}
	if err := CheckPDUBodyLength(0x04, 20000, 16384, false); err == nil {
		t.Fatal("expected rejection above a negotiated max-PDU below the 128 MiB ceiling")
	}
	if err := CheckPDUBodyLength(0x04, 16384, 16384, false); err != nil {
		t.Fatalf("exactly at the negotiated ceiling should pass: %v", err)
	}
}

func TestValidateAETitle(t *testing.T) {
	valid := []string{"A", "STORESCP", "SIXTEEN_CHARS_OK"}
	for _, v := range valid {
		if err := ValidateAETitle(v); err != nil {
			t.Fatalf("expected %q to be valid: %v", v, err)
		}
	}
	invalid := []string{"", " LEADING", "TRAILING ", "SEVENTEEN_CHARS_X", "bad\x01byte"}
	for _, v := range invalid {
		if err := ValidateAETitle(v); err == nil {
			t.Fatalf("expected %q to be rejected", v)
		}
	}
}
