// Package pdu implements the DICOM Upper Layer Protocol Data Unit codec:
// PDU framing, A-ASSOCIATE-RQ/AC/RJ, A-RELEASE-RQ/RP, A-ABORT and
// P-DATA-TF, including their variable items, per PS3.8 section 9.3.
package pdu

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jas88/sharpdicom/pkg/upperlayer/common"
)

// PDU type byte, header offset 0.
const (
	TypeAssociateRQ byte = 0x01
	TypeAssociateAC byte = 0x02
	TypeAssociateRJ byte = 0x03
	TypePDataTF     byte = 0x04
	TypeReleaseRQ   byte = 0x05
	TypeReleaseRP   byte = 0x06
	TypeAbort       byte = 0x07
)

// Variable item type bytes.
const (
	ItemApplicationContext        byte = 0x10
	ItemPresentationContextRQ     byte = 0x20
	ItemPresentationContextAC     byte = 0x21
	ItemAbstractSyntax            byte = 0x30
	ItemTransferSyntax            byte = 0x40
	ItemUserInformation           byte = 0x50
	ItemMaxLength                 byte = 0x51
	ItemImplementationClassUID    byte = 0x52
	ItemImplementationVersionName byte = 0x55
)

// Presentation Context (AC) result codes.
const (
	ResultAcceptance                   byte = 0x00
	ResultUserRejection                byte = 0x01
	ResultNoReason                     byte = 0x02
	ResultAbstractSyntaxNotSupported   byte = 0x03
	ResultTransferSyntaxesNotSupported byte = 0x04
)

func isAssociationPDU(t byte) bool {
	return t == TypeAssociateRQ || t == TypeAssociateAC || t == TypeAssociateRJ
}

// ReadHeader reads the fixed 6-byte PDU header: type, reserved, body length.
func ReadHeader(r io.Reader) (pduType byte, length uint32, err error) {
	var hdr [6]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, err
	}
	return hdr[0], binary.BigEndian.Uint32(hdr[2:6]), nil
}

// WriteHeader writes the fixed 6-byte PDU header.
func WriteHeader(w io.Writer, pduType byte, length uint32) error {
	var hdr [6]byte
	hdr[0] = pduType
	binary.BigEndian.PutUint32(hdr[2:6], length)
	_, err := w.Write(hdr[:])
	return err
}

// ReadBody reads a PDU's header and body, enforcing the bounded-allocation
// ceiling before allocating the body buffer.
func ReadBody(r io.Reader, negotiatedMaxPDU uint32) (pduType byte, body []byte, err error) {
	pduType, length, err := ReadHeader(r)
	if err != nil {
		return 0, nil, err
	}
	if err := common.CheckPDUBodyLength(pduType, length, negotiatedMaxPDU, isAssociationPDU(pduType)); err != nil {
		return 0, nil, err
	}
	body = make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("dicom: reading PDU type 0x%02x body: %w", pduType, err)
	}
	return pduType, body, nil
}

// WritePDU writes a complete PDU (header + body) to w.
func WritePDU(w io.Writer, pduType byte, body []byte) error {
	if err := WriteHeader(w, pduType, uint32(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// variableItem is the common {type, reserved, length, value} shape shared
// by every item and sub-item in the association PDUs.
type variableItem struct {
	Type  byte
	Value []byte
}

func marshalItem(buf []byte, typ byte, value []byte) []byte {
	buf = append(buf, typ, 0x00)
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(len(value)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, value...)
}

func readItems(data []byte) ([]variableItem, error) {
	var items []variableItem
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("dicom: truncated variable item header at offset %d", offset)
		}
		typ := data[offset]
		length := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		start := offset + 4
		end := start + int(length)
		if end > len(data) {
			return nil, fmt.Errorf("dicom: variable item type 0x%02x length %d exceeds body", typ, length)
		}
		items = append(items, variableItem{Type: typ, Value: data[start:end]})
		offset = end
	}
	return items, nil
}
