package jpeg2k

// Codestream marker codes, T.800 Annex A Table A.2. Every marker is a
// two-byte big-endian value starting with 0xFF; markers that carry a
// segment also carry a two-byte big-endian length (the length field
// itself included, the marker excluded).
const (
	markerSOC uint16 = 0xFF4F // start of codestream
	markerSIZ uint16 = 0xFF51 // image and tile size
	markerCOD uint16 = 0xFF52 // coding style default
	markerCOC uint16 = 0xFF53 // coding style component
	markerQCD uint16 = 0xFF5C // quantization default
	markerQCC uint16 = 0xFF5D // quantization component
	markerRGN uint16 = 0xFF5E // region of interest
	markerCOM uint16 = 0xFF64 // comment
	markerSOT uint16 = 0xFF90 // start of tile-part
	markerSOD uint16 = 0xFF93 // start of data
	markerEOC uint16 = 0xFFD9 // end of codestream
)

// jp2Magic is the first 12 bytes of the JP2 file-format box structure;
// a raw (non-boxed) codestream instead starts directly with SOC.
var jp2Magic = []byte{0x00, 0x00, 0x00, 0x0C, 'j', 'P', ' ', ' ', 0x0D, 0x0A, 0x87, 0x0A}

// IsJPEG2000 reports whether data begins with a raw J2K codestream (SOC
// marker) or a JP2 file-format signature box.
func IsJPEG2000(data []byte) bool {
	if len(data) >= 2 && uint16(data[0])<<8|uint16(data[1]) == markerSOC {
		return true
	}
	if len(data) >= len(jp2Magic) {
		match := true
		for i, b := range jp2Magic {
			if data[i] != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// hasSegment reports whether a marker is followed by a length-prefixed
// segment (everything except SOC, SOD and EOC).
func hasSegment(marker uint16) bool {
	switch marker {
	case markerSOC, markerSOD, markerEOC:
		return false
	default:
		return true
	}
}

// codingStyle bit masks within the COD/COC Scod/Scoc byte, T.800 Table A.13.
const (
	codPrecincts     = 0x01
	codSOPMarkers    = 0x02
	codEPHMarkers    = 0x04
)

// Transform identifiers, SPcod/SPcoc byte 4 (T.800 Table A.20).
const (
	transform97 byte = 0 // irreversible 9/7
	transform53 byte = 1 // reversible 5/3
)

// progression orders, SGcod byte 0 (T.800 Table A.16). Only LRCP is
// produced and consumed by this encoder/decoder.
const progressionLRCP byte = 0
