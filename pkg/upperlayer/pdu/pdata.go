package pdu

import (
	"encoding/binary"
	"fmt"
)

// PDV is one Presentation Data Value: a fragment of a command set or
// dataset tagged with its presentation context and fragmentation role.
type PDV struct {
	ContextID    byte
	IsCommand    bool
	IsLastFragment bool
	Data         []byte
}

func (p PDV) messageControlHeader() byte {
	var h byte
	if p.IsCommand {
		h |= 0x01
	}
	if p.IsLastFragment {
		h |= 0x02
	}
	return h
}

// MarshalPDataTF serialises one or more PDVs into a P-DATA-TF PDU body.
// Each PDV is individually length-prefixed (4-byte big-endian).
func MarshalPDataTF(pdvs []PDV) []byte {
	var body []byte
	for _, pdv := range pdvs {
		item := make([]byte, 0, 2+len(pdv.Data))
		item = append(item, pdv.ContextID, pdv.messageControlHeader())
		item = append(item, pdv.Data...)

		var lenBytes [4]byte
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(item)))
		body = append(body, lenBytes[:]...)
		body = append(body, item...)
	}
	return body
}

// UnmarshalPDataTF parses a P-DATA-TF PDU body into its constituent PDVs.
func UnmarshalPDataTF(data []byte) ([]PDV, error) {
	var pdvs []PDV
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("dicom: truncated PDV length prefix at offset %d", offset)
		}
		length := binary.BigEndian.Uint32(data[offset : offset+4])
		start := offset + 4
		end := start + int(length)
		if end > len(data) || length < 2 {
			return nil, fmt.Errorf("dicom: PDV item at offset %d has invalid length %d", offset, length)
		}
		item := data[start:end]
		pdvs = append(pdvs, PDV{
			ContextID:      item[0],
			IsCommand:      item[1]&0x01 != 0,
			IsLastFragment: item[1]&0x02 != 0,
			Data:           item[2:],
		})
		offset = end
	}
	return pdvs, nil
}
