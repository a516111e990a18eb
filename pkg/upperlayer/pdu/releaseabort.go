package pdu

import "fmt"

// MarshalReleaseRQ returns the 4-byte A-RELEASE-RQ body (all reserved).
func MarshalReleaseRQ() []byte { return []byte{0x00, 0x00, 0x00, 0x00} }

// MarshalReleaseRP returns the 4-byte A-RELEASE-RP body (all reserved).
func MarshalReleaseRP() []byte { return []byte{0x00, 0x00, 0x00, 0x00} }

// Abort is a parsed/to-be-serialised A-ABORT PDU body.
type Abort struct {
	Source byte
	Reason byte
}

// Abort sources.
const (
	AbortSourceServiceUser     byte = 0x00
	AbortSourceServiceProvider byte = 0x02
)

// MarshalAbort serialises an Abort to its 4-byte PDU body.
func MarshalAbort(a Abort) []byte {
	return []byte{0x00, 0x00, a.Source, a.Reason}
}

// UnmarshalAbort parses an A-ABORT PDU body.
func UnmarshalAbort(data []byte) (Abort, error) {
	if len(data) != 4 {
		return Abort{}, fmt.Errorf("dicom: A-ABORT body has length %d, want 4", len(data))
	}
	return Abort{Source: data[2], Reason: data[3]}, nil
}
