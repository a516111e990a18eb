// Package jpeg2k implements the ITU-T T.800 (JPEG 2000 Part-1) codec
// layers this library needs for DICOM transfer syntaxes
// 1.2.840.10008.1.2.4.90 (lossless) and .91 (lossy): bit/byte streams,
// the MQ arithmetic coder, EBCOT Tier-1, the 5/3 and 9/7 wavelet
// transforms, and a Tier-2 codestream encoder/decoder restricted to a
// single tile, a single quality layer, and LRCP progression.
package jpeg2k

import (
	"bytes"
	"fmt"
)

// ImageInfo describes the raw pixel buffer a frame decodes into or
// encodes from — the caller's view of the frame, independent of the
// codestream's own header.
type ImageInfo struct {
	Columns, Rows   int
	SamplesPerPixel int // 1 or 3
	BitsStored      int // 2..16
	Signed          bool
	Planar          bool // true: component-major; false: pixel-interleaved
	BytesPerSample  int  // 1, 2 or 4
	FrameSizeBytes  int
}

// EncoderOptions configures EncodeFrame.
type EncoderOptions struct {
	DecompositionLevels int // 0..32, default 5
	CodeBlockWidth      int // power of two
	CodeBlockHeight     int // power of two
	NumLayers           int // >= 1
	Progression         byte
	CompressionRatio    int // >= 1, lossy only; not read by EncodeFrame
}

// DefaultEncoderOptions returns the spec's default encoding parameters.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		DecompositionLevels: 5,
		CodeBlockWidth:      defaultCodeBlockSize,
		CodeBlockHeight:     defaultCodeBlockSize,
		NumLayers:           1,
		Progression:         progressionLRCP,
		CompressionRatio:    1,
	}
}

func (o EncoderOptions) validate() error {
	if o.DecompositionLevels < 0 || o.DecompositionLevels > 32 {
		return fmt.Errorf("jpeg2k: decomposition levels %d out of range 0..32", o.DecompositionLevels)
	}
	if o.CodeBlockWidth <= 0 || o.CodeBlockHeight <= 0 ||
		o.CodeBlockWidth&(o.CodeBlockWidth-1) != 0 || o.CodeBlockHeight&(o.CodeBlockHeight-1) != 0 {
		return fmt.Errorf("jpeg2k: code-block dimensions must be powers of two")
	}
	if o.CodeBlockWidth*o.CodeBlockHeight > 4096 {
		return fmt.Errorf("jpeg2k: code-block area exceeds 4096")
	}
	if o.NumLayers < 1 {
		return fmt.Errorf("jpeg2k: at least one quality layer is required")
	}
	if o.Progression != progressionLRCP {
		return &unsupportedFeatureError{feature: "progression order other than LRCP"}
	}
	if o.NumLayers != 1 {
		return &unsupportedFeatureError{feature: "more than one quality layer"}
	}
	return nil
}

func (info ImageInfo) validate() error {
	if info.Columns <= 0 || info.Rows <= 0 {
		return fmt.Errorf("jpeg2k: image_info has non-positive dimensions")
	}
	if info.SamplesPerPixel != 1 && info.SamplesPerPixel != 3 {
		return fmt.Errorf("jpeg2k: samples-per-pixel must be 1 or 3, got %d", info.SamplesPerPixel)
	}
	if info.BitsStored < 2 || info.BitsStored > 16 {
		return fmt.Errorf("jpeg2k: bits-stored %d out of range 2..16", info.BitsStored)
	}
	switch info.BytesPerSample {
	case 1, 2, 4:
	default:
		return fmt.Errorf("jpeg2k: bytes-per-sample must be 1, 2 or 4, got %d", info.BytesPerSample)
	}
	return nil
}

// Result reports the outcome of a successful DecodeFrame call.
type Result struct {
	BytesWritten int
}

// guardBits is the number of guard bits (extra bitplanes above
// the nominal dynamic range) EBCOT codes to absorb DWT coefficient
// growth; three is conventional for this bit depth range.
const guardBits = 3

// EncodeFrame produces a complete codestream for pixels, described by
// info, per options. lossless selects the 5/3 reversible transform;
// otherwise the 9/7 irreversible transform is used and its coefficients
// are truncated to integers before Tier-1 coding. Neither path reads
// options.CompressionRatio or applies rate control or per-subband
// quantisation; the QCD segment declares a uniform step (see DESIGN.md).
func EncodeFrame(pixels []byte, info ImageInfo, options EncoderOptions, lossless bool) ([]byte, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}
	if err := options.validate(); err != nil {
		return nil, err
	}
	if len(pixels) < info.FrameSizeBytes {
		return nil, fmt.Errorf("jpeg2k: pixel buffer shorter than declared frame size")
	}
	mct := info.SamplesPerPixel == 3

	planes := unpackPixels(pixels, info)
	if mct {
		if lossless {
			planes[0], planes[1], planes[2] = ForwardRCT(planes[0], planes[1], planes[2])
		} else {
			planes[0], planes[1], planes[2] = ForwardICT(planes[0], planes[1], planes[2])
		}
	}

	hdr := &CodestreamHeader{
		Width: uint32(info.Columns), Height: uint32(info.Rows),
		TileWidth: uint32(info.Columns), TileHeight: uint32(info.Rows),
		DecompositionLevels: options.DecompositionLevels,
		CBWidthExp:          exponentOf(options.CodeBlockWidth) - 2,
		CBHeightExp:         exponentOf(options.CodeBlockHeight) - 2,
		Progression:         options.Progression,
		NumLayers:           options.NumLayers,
		MCT:                 mct,
	}
	if lossless {
		hdr.Wavelet = transform53
	} else {
		hdr.Wavelet = transform97
	}
	hdr.Components = make([]ComponentSpec, info.SamplesPerPixel)
	for i := range hdr.Components {
		hdr.Components[i] = ComponentSpec{Signed: info.Signed, BitDepth: info.BitsStored, XRsiz: 1, YRsiz: 1}
	}

	var body bytes.Buffer
	bw := NewByteWriter(&body)
	for _, plane := range planes {
		levels := DecomposeLevels(plane, options.DecompositionLevels, lossless)
		if err := encodeComponentPacket(bw, levels, lossless, guardBits); err != nil {
			return nil, err
		}
	}
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	ow := NewByteWriter(&out)
	if err := EmitHeader(ow, hdr); err != nil {
		return nil, err
	}
	psot := uint32(10 + 2 + body.Len()) // SOT body + SOD marker + tile data
	if err := EmitSOT(ow, psot); err != nil {
		return nil, err
	}
	if err := ow.WriteUint16(markerSOD); err != nil {
		return nil, err
	}
	if err := ow.WriteBytes(body.Bytes()); err != nil {
		return nil, err
	}
	if err := ow.WriteUint16(markerEOC); err != nil {
		return nil, err
	}
	if err := ow.Flush(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeFrame decodes one frame from codestream into out, validating it
// against info. frameIndex is reported in any DecodeError.
func DecodeFrame(codestream []byte, info ImageInfo, out []byte, frameIndex int) (*Result, error) {
	if err := info.validate(); err != nil {
		return nil, err
	}
	hdr, tileOffset, err := parseHeaderFrame(codestream, frameIndex)
	if err != nil {
		return nil, err
	}
	if int(hdr.Width) != info.Columns || int(hdr.Height) != info.Rows {
		return nil, newDecodeError(frameIndex, tileOffset, "SIZ dimensions %dx%d disagree with caller descriptor %dx%d",
			hdr.Width, hdr.Height, info.Columns, info.Rows)
	}
	if len(hdr.Components) != info.SamplesPerPixel {
		return nil, newDecodeError(frameIndex, tileOffset, "component count %d disagrees with samples-per-pixel %d",
			len(hdr.Components), info.SamplesPerPixel)
	}
	if len(out) < info.FrameSizeBytes {
		return nil, fmt.Errorf("jpeg2k: output buffer shorter than declared frame size")
	}
	lossless := hdr.Wavelet == transform53

	r := NewByteReader(bytes.NewReader(codestream[tileOffset:]))
	planes := make([][][]float64, len(hdr.Components))
	for i := range hdr.Components {
		levels, err := decodeComponentPacket(r, info.Columns, info.Rows, hdr.DecompositionLevels, lossless, guardBits, frameIndex, tileOffset)
		if err != nil {
			return nil, err
		}
		planes[i] = ComposeLevels(levels, lossless)
	}

	if hdr.MCT && len(planes) >= 3 {
		if lossless {
			planes[0], planes[1], planes[2] = InverseRCT(planes[0], planes[1], planes[2])
		} else {
			planes[0], planes[1], planes[2] = InverseICT(planes[0], planes[1], planes[2])
		}
	}

	n := packPixels(planes, info, out)
	return &Result{BytesWritten: n}, nil
}

func exponentOf(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// encodeComponentPacket writes one component's levels as a single
// packet: a decomposition-level count, the coarsest level's LL, then each level's
// HL, LH, HH from coarsest to finest.
func encodeComponentPacket(w *ByteWriter, levels []Subband, reversible bool, guard int) error {
	if err := w.WriteByte(byte(len(levels))); err != nil {
		return err
	}
	if err := encodePacket(w, encodeSubband(levels[0].LL, OrientLL, guard)); err != nil {
		return err
	}
	for _, sb := range levels {
		for _, pair := range []struct {
			o Orientation
			g [][]float64
		}{{OrientHL, sb.HL}, {OrientLH, sb.LH}, {OrientHH, sb.HH}} {
			if err := encodePacket(w, encodeSubband(pair.g, pair.o, guard)); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeComponentPacket(r *ByteReader, compW, compH, numLevels int, reversible bool, guard, frameIndex, baseOffset int) ([]Subband, error) {
	nLevels, err := r.ReadByte()
	if err != nil {
		return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "truncated component packet")
	}
	if int(nLevels) != numLevels {
		return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "component packet level count %d disagrees with COD %d", nLevels, numLevels)
	}
	dims := subbandDims(compW, compH, numLevels)

	llBlocks, err := decodePacket(r)
	if err != nil {
		return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "truncated LL packet")
	}
	llGrid := decodeSubband(llBlocks, codeBlockGrid(dims[0].llW, dims[0].llH, defaultCodeBlockSize), dims[0].llW, dims[0].llH, OrientLL)

	levels := make([]Subband, numLevels)
	levels[0] = Subband{Level: numLevels, LL: llGrid}
	for l := 0; l < numLevels; l++ {
		d := dims[l]
		hlBlocks, err := decodePacket(r)
		if err != nil {
			return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "truncated HL packet")
		}
		lhBlocks, err := decodePacket(r)
		if err != nil {
			return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "truncated LH packet")
		}
		hhBlocks, err := decodePacket(r)
		if err != nil {
			return nil, newDecodeError(frameIndex, baseOffset+r.Pos(), "truncated HH packet")
		}
		levels[l].Level = numLevels - l
		levels[l].HL = decodeSubband(hlBlocks, codeBlockGrid(d.hlW, d.hlH, defaultCodeBlockSize), d.hlW, d.hlH, OrientHL)
		levels[l].LH = decodeSubband(lhBlocks, codeBlockGrid(d.lhW, d.lhH, defaultCodeBlockSize), d.lhW, d.lhH, OrientLH)
		levels[l].HH = decodeSubband(hhBlocks, codeBlockGrid(d.hhW, d.hhH, defaultCodeBlockSize), d.hhW, d.hhH, OrientHH)
	}
	return levels, nil
}

type subbandDim struct{ llW, llH, hlW, hlH, lhW, lhH, hhW, hhH int }

// subbandDims computes, for each decomposition level (index 0 coarsest
// per DecomposeLevels' storage order), the pixel dimensions of its four
// quadrants, by replaying the same halving arithmetic DWT uses to split
// a grid without needing the grid itself.
func subbandDims(compW, compH, numLevels int) []subbandDim {
	widths := make([]int, numLevels+1)
	heights := make([]int, numLevels+1)
	widths[0], heights[0] = compW, compH
	for l := 0; l < numLevels; l++ {
		widths[l+1] = (widths[l] + 1) / 2
		heights[l+1] = (heights[l] + 1) / 2
	}
	dims := make([]subbandDim, numLevels)
	for l := 0; l < numLevels; l++ {
		// Forward-transform step index matching DecomposeLevels: l=0 is
		// the finest split (stored at index numLevels-1); the storage
		// index here is numLevels-1-l.
		w, h := widths[l], heights[l]
		wNL, hNL := widths[l+1], heights[l+1]
		d := subbandDim{
			hlW: w - wNL, hlH: hNL,
			lhW: wNL, lhH: h - hNL,
			hhW: w - wNL, hhH: h - hNL,
		}
		dims[numLevels-1-l] = d
	}
	dims[0].llW, dims[0].llH = widths[numLevels], heights[numLevels]
	return dims
}
