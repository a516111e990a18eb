package dimse

import (
	"encoding/binary"
	"fmt"
)

// EncodeCommandSet serialises cs as Implicit VR Little Endian, group
// 0x0000 only. CommandGroupLength is computed and written first,
// regardless of whether the caller set it.
func EncodeCommandSet(cs *CommandSet) []byte {
	var body []byte
	for _, tag := range cs.order {
		if tag == TagCommandGroupLength {
			continue
		}
		e := cs.elems[tag]
		body = append(body, encodeElement(tag, e.Value)...)
	}

	out := make([]byte, 0, 8+len(body))
	out = append(out, encodeElement(TagCommandGroupLength, encodeUL(uint32(len(body))))...)
	out = append(out, body...)
	return out
}

func encodeElement(tag uint16, value []byte) []byte {
	buf := make([]byte, 8+len(value))
	binary.LittleEndian.PutUint16(buf[0:2], 0x0000) // command group
	binary.LittleEndian.PutUint16(buf[2:4], tag)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(value)))
	copy(buf[8:], value)
	return buf
}

func encodeUL(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// DecodeCommandSet parses an Implicit VR Little Endian command set. Any
// element in group 0x0000 is accepted, known or not; every element's value
// is retained as raw bytes, and CommandSet's typed accessors (US, UL, UI)
// interpret those bytes when called. The knownElements table in
// command.go is consulted by neither.
func DecodeCommandSet(data []byte) (*CommandSet, error) {
	cs := NewCommandSet()
	offset := 0
	for offset < len(data) {
		if offset+8 > len(data) {
			return nil, fmt.Errorf("dicom: truncated command element header at offset %d", offset)
		}
		group := binary.LittleEndian.Uint16(data[offset : offset+2])
		tag := binary.LittleEndian.Uint16(data[offset+2 : offset+4])
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		valueStart := offset + 8
		valueEnd := valueStart + int(length)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("dicom: command element (%04x,%04x) length %d exceeds buffer", group, tag, length)
		}
		if group != 0x0000 {
			return nil, fmt.Errorf("dicom: command set element outside group 0x0000: group %04x", group)
		}
		cs.SetBytes(tag, append([]byte(nil), data[valueStart:valueEnd]...))
		offset = valueEnd
	}
	return cs, nil
}
