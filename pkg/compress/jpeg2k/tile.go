package jpeg2k

// Tier-2 packaging: splitting a subband into fixed-size code-blocks,
// driving Tier-1 over each, and assembling/parsing the packets that
// carry their coded segments.
//
// This implementation targets the common single-tile, single-layer,
// LRCP-progression case: one packet per (resolution level, subband)
// pair, written in coarsest-to-finest, then LL/HL/LH/HH order. Multiple
// tile-parts, multiple quality layers and precinct partitions are
// Part-1 features this codec does not produce; the encoder rejects
// options asking for more than one layer (see unsupportedFeatureError),
// and the decoder does not check a codestream for any of them.

const defaultCodeBlockSize = 64

// codeBlockGrid splits a w x h subband into codeBlockSize-square blocks,
// returning their pixel bounds in raster order.
func codeBlockGrid(w, h, size int) [][4]int {
	var blocks [][4]int
	for y := 0; y < h; y += size {
		y1 := y + size
		if y1 > h {
			y1 = h
		}
		for x := 0; x < w; x += size {
			x1 := x + size
			if x1 > w {
				x1 = w
			}
			blocks = append(blocks, [4]int{x, y, x1, y1})
		}
	}
	return blocks
}

// packetSubband holds one subband's coded code-block segments for a
// single packet.
type packetSubband struct {
	orient   Orientation
	w, h     int // subband dimensions in samples
	blocks   [][4]int
	segments [][]byte // one per block, nil if the block coded to nothing
	bitplanes []int   // per-block bitplane count, needed by the decoder
}

// encodePacket writes one subband's code-block segments as:
//   nblocks (uint16)
//   for each block: included (1 byte), [bitplanes (1 byte), length (uint32), data]
func encodePacket(w *ByteWriter, ps *packetSubband) error {
	if err := w.WriteUint16(uint16(len(ps.blocks))); err != nil {
		return err
	}
	for i := range ps.blocks {
		seg := ps.segments[i]
		if seg == nil {
			if err := w.WriteByte(0); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteByte(1); err != nil {
			return err
		}
		if err := w.WriteByte(byte(ps.bitplanes[i])); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(len(seg))); err != nil {
			return err
		}
		if err := w.WriteBytes(seg); err != nil {
			return err
		}
	}
	return nil
}

// decodedBlock is one code-block's coded segment and bitplane count, as
// read back from a packet.
type decodedBlock struct {
	included  bool
	bitplanes int
	data      []byte
}

func decodePacket(r *ByteReader) ([]decodedBlock, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	out := make([]decodedBlock, n)
	for i := range out {
		included, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if included == 0 {
			continue
		}
		bp, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		data, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		out[i] = decodedBlock{included: true, bitplanes: int(bp), data: data}
	}
	return out, nil
}

// encodeSubband splits a subband's coefficients into code-blocks, runs
// EBCOT Tier-1 on each, and returns a packetSubband ready for
// encodePacket.
func encodeSubband(coeffs [][]float64, orient Orientation, guardBits int) *packetSubband {
	h := len(coeffs)
	w := 0
	if h > 0 {
		w = len(coeffs[0])
	}
	blocks := codeBlockGrid(w, h, defaultCodeBlockSize)
	ps := &packetSubband{orient: orient, w: w, h: h, blocks: blocks,
		segments: make([][]byte, len(blocks)), bitplanes: make([]int, len(blocks))}
	for bi, bnd := range blocks {
		bw, bh := bnd[2]-bnd[0], bnd[3]-bnd[1]
		mags := make([][]int32, bh)
		signs := make([][]bool, bh)
		maxVal := int32(0)
		for r := 0; r < bh; r++ {
			mags[r] = make([]int32, bw)
			signs[r] = make([]bool, bw)
			for c := 0; c < bw; c++ {
				v := coeffs[bnd[1]+r][bnd[0]+c]
				iv := int32(v)
				if iv < 0 {
					signs[r][c] = true
					iv = -iv
				}
				mags[r][c] = iv
				if iv > maxVal {
					maxVal = iv
				}
			}
		}
		bitplanes := bitLength(maxVal) + guardBits
		if bitplanes == 0 {
			continue
		}
		enc := NewCodeBlockEncoder(mags, signs, orient)
		ps.segments[bi] = enc.Encode(bitplanes)
		ps.bitplanes[bi] = bitplanes
	}
	return ps
}

// decodeSubband reconstructs a subband's coefficient grid from the
// blocks read out of its packet.
func decodeSubband(blocks []decodedBlock, grid [][4]int, w, h int, orient Orientation) [][]float64 {
	out := newGrid(h, w)
	for bi, bnd := range grid {
		db := blocks[bi]
		if !db.included || db.bitplanes == 0 {
			continue
		}
		bw, bh := bnd[2]-bnd[0], bnd[3]-bnd[1]
		dec := NewCodeBlockDecoder(db.data, bw, bh, orient)
		mags, signs := dec.Decode(db.bitplanes)
		for r := 0; r < bh; r++ {
			for c := 0; c < bw; c++ {
				v := float64(mags[r][c])
				if signs[r][c] {
					v = -v
				}
				out[bnd[1]+r][bnd[0]+c] = v
			}
		}
	}
	return out
}

func bitLength(v int32) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}
