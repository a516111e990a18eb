package jpeg2k

import (
	"bytes"
	"fmt"
)

// ComponentSpec is one component's entry in the SIZ marker segment.
type ComponentSpec struct {
	Signed   bool
	BitDepth int // 1..38, stored as BitDepth-1 in Ssiz bits 0..6
	XRsiz    byte
	YRsiz    byte
}

// CodestreamHeader is the immutable result of parsing a codestream's
// marker segments up to (but not including) the tile data.
type CodestreamHeader struct {
	Width, Height   uint32
	XOsiz, YOsiz    uint32
	TileWidth, TileHeight uint32
	TXOsiz, TYOsiz  uint32
	Components      []ComponentSpec

	DecompositionLevels int
	CBWidthExp, CBHeightExp int
	CodeBlockStyle      byte
	Wavelet             byte // transform53 or transform97
	Progression         byte
	NumLayers           int
	MCT                 bool

	QuantStepExp []byte // one exponent per subband, LL first then per-level HL/LH/HH

	tileDataOffset int // byte offset of the first byte after SOD
}

// ParseHeader parses a codestream's marker segments through SOT/SOD and
// returns the immutable header. It never reads tile data.
func ParseHeader(codestream []byte) (*CodestreamHeader, error) {
	h, _, err := parseHeaderFrame(codestream, 0)
	return h, err
}

func parseHeaderFrame(codestream []byte, frameIndex int) (*CodestreamHeader, int, error) {
	r := NewByteReader(bytes.NewReader(codestream))
	soc, err := r.ReadUint16()
	if err != nil || soc != markerSOC {
		return nil, 0, newDecodeError(frameIndex, r.Pos(), "missing SOC marker")
	}

	hdr := &CodestreamHeader{}
	sawSIZ, sawCOD := false, false

	for {
		marker, err := r.ReadUint16()
		if err != nil {
			return nil, 0, newDecodeError(frameIndex, r.Pos(), "truncated codestream before SOT/SOD")
		}
		if marker == markerSOT || marker == markerSOD {
			if !sawSIZ {
				return nil, 0, newDecodeError(frameIndex, r.Pos(), "missing SIZ marker segment before %s", markerName(marker))
			}
			if !sawCOD {
				return nil, 0, newDecodeError(frameIndex, r.Pos(), "missing COD marker segment before %s", markerName(marker))
			}
			if marker == markerSOT {
				if err := skipSOTThroughSOD(r, hdr, frameIndex); err != nil {
					return nil, 0, err
				}
			}
			hdr.tileDataOffset = r.Pos()
			return hdr, r.Pos(), nil
		}
		if !hasSegment(marker) {
			return nil, 0, newDecodeError(frameIndex, r.Pos(), "unexpected marker 0x%04X outside a segment", marker)
		}
		length, err := r.ReadUint16()
		if err != nil {
			return nil, 0, newDecodeError(frameIndex, r.Pos(), "truncated marker length")
		}
		if int(length) < 2 {
			return nil, 0, newDecodeError(frameIndex, r.Pos(), "invalid segment length %d", length)
		}
		bodyLen := int(length) - 2
		body, err := r.ReadBytes(bodyLen)
		if err != nil {
			return nil, 0, newDecodeError(frameIndex, r.Pos(), "segment body exceeds codestream (marker 0x%04X)", marker)
		}
		switch marker {
		case markerSIZ:
			if err := parseSIZ(body, hdr, frameIndex); err != nil {
				return nil, 0, err
			}
			sawSIZ = true
		case markerCOD:
			if err := parseCOD(body, hdr, frameIndex); err != nil {
				return nil, 0, err
			}
			sawCOD = true
		case markerQCD:
			hdr.QuantStepExp = append([]byte(nil), body[1:]...)
		default:
			// COC, QCC, RGN, COM and any other segment: skipped by length.
		}
	}
}

func markerName(m uint16) string {
	switch m {
	case markerSOT:
		return "SOT"
	case markerSOD:
		return "SOD"
	default:
		return fmt.Sprintf("0x%04X", m)
	}
}

// skipSOTThroughSOD locates SOD by scanning markers within the tile-part
// (not by the positional shortcut the reference implementation used,
// which mistook the byte after SOT's fixed body for tile data whenever
// no intervening marker segment was present).
func skipSOTThroughSOD(r *ByteReader, hdr *CodestreamHeader, frameIndex int) error {
	length, err := r.ReadUint16()
	if err != nil || length != 10 {
		return newDecodeError(frameIndex, r.Pos(), "malformed SOT segment")
	}
	if _, err := r.ReadBytes(8); err != nil { // tile index, Psot, TPsot, TNsot
		return newDecodeError(frameIndex, r.Pos(), "truncated SOT body")
	}
	for {
		marker, err := r.ReadUint16()
		if err != nil {
			return newDecodeError(frameIndex, r.Pos(), "no SOD found after SOT")
		}
		if marker == markerSOD {
			return nil
		}
		if !hasSegment(marker) {
			return newDecodeError(frameIndex, r.Pos(), "unexpected marker 0x%04X between SOT and SOD", marker)
		}
		length, err := r.ReadUint16()
		if err != nil || length < 2 {
			return newDecodeError(frameIndex, r.Pos(), "malformed segment between SOT and SOD")
		}
		if _, err := r.ReadBytes(int(length) - 2); err != nil {
			return newDecodeError(frameIndex, r.Pos(), "segment between SOT and SOD exceeds codestream")
		}
	}
}

func parseSIZ(body []byte, hdr *CodestreamHeader, frameIndex int) error {
	if len(body) < 36 {
		return newDecodeError(frameIndex, 0, "SIZ segment too short")
	}
	be32 := func(b []byte) uint32 { return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]) }
	// body[0:2] is Rsiz, unused beyond capability signalling.
	hdr.Width = be32(body[2:6])
	hdr.Height = be32(body[6:10])
	hdr.XOsiz = be32(body[10:14])
	hdr.YOsiz = be32(body[14:18])
	hdr.TileWidth = be32(body[18:22])
	hdr.TileHeight = be32(body[22:26])
	hdr.TXOsiz = be32(body[26:30])
	hdr.TYOsiz = be32(body[30:34])
	csiz := int(body[34])<<8 | int(body[35])
	if len(body) < 36+3*csiz {
		return newDecodeError(frameIndex, 0, "SIZ component table truncated")
	}
	hdr.Components = make([]ComponentSpec, csiz)
	for i := 0; i < csiz; i++ {
		o := 36 + 3*i
		ssiz := body[o]
		hdr.Components[i] = ComponentSpec{
			Signed:   ssiz&0x80 != 0,
			BitDepth: int(ssiz&0x7F) + 1,
			XRsiz:    body[o+1],
			YRsiz:    body[o+2],
		}
	}
	return nil
}

func parseCOD(body []byte, hdr *CodestreamHeader, frameIndex int) error {
	if len(body) < 10 {
		return newDecodeError(frameIndex, 0, "COD segment too short")
	}
	scod := body[0]
	hdr.Progression = body[1]
	hdr.NumLayers = int(body[2])<<8 | int(body[3])
	hdr.MCT = body[4] != 0
	hdr.DecompositionLevels = int(body[5])
	hdr.CBWidthExp = int(body[6])
	hdr.CBHeightExp = int(body[7])
	hdr.CodeBlockStyle = body[8]
	hdr.Wavelet = body[9]
	_ = scod
	return nil
}

// EmitHeader writes SOC, SIZ, COD and QCD for hdr.
func EmitHeader(w *ByteWriter, hdr *CodestreamHeader) error {
	if err := w.WriteUint16(markerSOC); err != nil {
		return err
	}
	if err := emitSIZ(w, hdr); err != nil {
		return err
	}
	if err := emitCOD(w, hdr); err != nil {
		return err
	}
	return emitQCD(w, hdr)
}

func emitSIZ(w *ByteWriter, hdr *CodestreamHeader) error {
	if err := w.WriteUint16(markerSIZ); err != nil {
		return err
	}
	length := uint16(38 + 3*len(hdr.Components))
	if err := w.WriteUint16(length); err != nil {
		return err
	}
	if err := w.WriteUint16(0); err != nil { // Rsiz: no capability extensions
		return err
	}
	for _, v := range []uint32{hdr.Width, hdr.Height, hdr.XOsiz, hdr.YOsiz, hdr.TileWidth, hdr.TileHeight, hdr.TXOsiz, hdr.TYOsiz} {
		if err := w.WriteUint32(v); err != nil {
			return err
		}
	}
	if err := w.WriteUint16(uint16(len(hdr.Components))); err != nil {
		return err
	}
	for _, c := range hdr.Components {
		ssiz := byte(c.BitDepth - 1)
		if c.Signed {
			ssiz |= 0x80
		}
		if err := w.WriteByte(ssiz); err != nil {
			return err
		}
		if err := w.WriteByte(c.XRsiz); err != nil {
			return err
		}
		if err := w.WriteByte(c.YRsiz); err != nil {
			return err
		}
	}
	return nil
}

func emitCOD(w *ByteWriter, hdr *CodestreamHeader) error {
	if err := w.WriteUint16(markerCOD); err != nil {
		return err
	}
	if err := w.WriteUint16(12); err != nil {
		return err
	}
	if err := w.WriteByte(0); err != nil { // Scod: no precincts/SOP/EPH
		return err
	}
	if err := w.WriteByte(hdr.Progression); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(hdr.NumLayers)); err != nil {
		return err
	}
	mct := byte(0)
	if hdr.MCT {
		mct = 1
	}
	if err := w.WriteByte(mct); err != nil {
		return err
	}
	if err := w.WriteByte(byte(hdr.DecompositionLevels)); err != nil {
		return err
	}
	if err := w.WriteByte(byte(hdr.CBWidthExp)); err != nil {
		return err
	}
	if err := w.WriteByte(byte(hdr.CBHeightExp)); err != nil {
		return err
	}
	if err := w.WriteByte(hdr.CodeBlockStyle); err != nil {
		return err
	}
	return w.WriteByte(hdr.Wavelet)
}

func emitQCD(w *ByteWriter, hdr *CodestreamHeader) error {
	if err := w.WriteUint16(markerQCD); err != nil {
		return err
	}
	n := 1 + 3*hdr.DecompositionLevels
	if err := w.WriteUint16(uint16(3 + n)); err != nil { // length field + Sqcd + n exponents
		return err
	}
	// Sqcd: quantization style 0 (no quantization / reversible) so the
	// per-subband exponents below are carried for informational symmetry
	// with a lossy encoder; see design notes on the uniform step size.
	if err := w.WriteByte(0); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.WriteByte(8); err != nil {
			return err
		}
	}
	return nil
}

// EmitSOT writes one SOT segment for a single-tile-part codestream.
func EmitSOT(w *ByteWriter, psot uint32) error {
	if err := w.WriteUint16(markerSOT); err != nil {
		return err
	}
	if err := w.WriteUint16(10); err != nil {
		return err
	}
	if err := w.WriteUint16(0); err != nil { // tile index: single tile
		return err
	}
	if err := w.WriteUint32(psot); err != nil {
		return err
	}
	if err := w.WriteByte(0); err != nil { // TPsot
		return err
	}
	return w.WriteByte(1) // TNsot
}
