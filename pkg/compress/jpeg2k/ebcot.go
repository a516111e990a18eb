package jpeg2k

// EBCOT Tier-1 implements ITU-T T.800 Annex D: the bitplane coder that
// turns a code-block's wavelet coefficients into (or back from) one MQ
// arithmetic-coded segment per code-block. Three coding passes run per
// bitplane — significance propagation, magnitude refinement, cleanup —
// each selecting one of 19 contexts from the 8-neighbourhood of a sample
// and its subband orientation (Table D.1), sign prediction (Table D.2),
// and magnitude-refinement history.

// Orientation identifies which subband a code-block belongs to; it
// selects the significance-context lookup table (Table D.1 groups
// LL and LH together).
type Orientation int

const (
	OrientLL Orientation = iota
	OrientHL
	OrientLH
	OrientHH
)

// sigContext returns the significance-propagation/cleanup context index
// (0..8) for a sample with h horizontal, v vertical and d diagonal
// significant neighbours, given the code-block's orientation.
func sigContext(o Orientation, h, v, d int) int {
	switch o {
	case OrientHL:
		h, v = v, h
		return sigContextLH(h, v, d)
	case OrientHH:
		return sigContextHH(h, v, d)
	default: // OrientLL, OrientLH share a table
		return sigContextLH(h, v, d)
	}
}

func sigContextLH(h, v, d int) int {
	switch {
	case h == 2:
		return 8
	case h == 1:
		if v >= 1 {
			return 7
		}
		if d >= 1 {
			return 6
		}
		return 5
	default: // h == 0
		switch v {
		case 2:
			return 4
		case 1:
			return 3
		default:
			switch {
			case d >= 2:
				return 2
			case d == 1:
				return 1
			default:
				return 0
			}
		}
	}
}

func sigContextHH(h, v, d int) int {
	hv := h + v
	switch {
	case d >= 3:
		return 8
	case d == 2:
		if hv >= 1 {
			return 7
		}
		return 6
	case d == 1:
		switch {
		case hv >= 2:
			return 5
		case hv == 1:
			return 4
		default:
			return 3
		}
	default: // d == 0
		switch {
		case hv >= 2:
			return 2
		case hv == 1:
			return 1
		default:
			return 0
		}
	}
}

// signContext returns the sign context offset (0..4, added to
// CtxSignStart) and the XOR bit predicting the coded sign from the
// neighbourhood per T.800 Table D.2.
func signContext(hc, vc int) (offset int, xorBit int) {
	switch {
	case hc == 1 && vc == 1:
		return 4, 0
	case hc == 1 && vc == 0:
		return 3, 0
	case hc == 1 && vc == -1:
		return 2, 0
	case hc == 0 && vc == 1:
		return 1, 0
	case hc == 0 && vc == 0:
		return 0, 0
	case hc == 0 && vc == -1:
		return 1, 1
	case hc == -1 && vc == 1:
		return 2, 1
	case hc == -1 && vc == 0:
		return 3, 1
	default: // hc == -1 && vc == -1
		return 4, 1
	}
}

func clip1(v int) int {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// codeBlockState is the shared neighbourhood bookkeeping for encoding and
// decoding a single code-block: significance, sign and refinement history
// bordered by one row/column of permanently-insignificant padding so
// neighbour lookups never need bounds checks.
type codeBlockState struct {
	w, h   int
	stride int // w + 2
	sigma  []bool
	sign   []bool
	refined []bool
	visited []bool
	was    []bool // significance snapshot taken before this bitplane's passes
	orient Orientation
}

func newCodeBlockState(w, h int, o Orientation) *codeBlockState {
	stride := w + 2
	size := stride * (h + 2)
	return &codeBlockState{
		w: w, h: h, stride: stride, orient: o,
		sigma:   make([]bool, size),
		sign:    make([]bool, size),
		refined: make([]bool, size),
		visited: make([]bool, size),
		was:     make([]bool, size),
	}
}

func (s *codeBlockState) idx(r, c int) int { return (r+1)*s.stride + (c + 1) }

func (s *codeBlockState) neighbours(r, c int) (h, v, d int) {
	i := s.idx
	at := func(dr, dc int) int {
		if s.sigma[i(r+dr, c+dc)] {
			return 1
		}
		return 0
	}
	h = at(0, -1) + at(0, 1)
	v = at(-1, 0) + at(1, 0)
	d = at(-1, -1) + at(-1, 1) + at(1, -1) + at(1, 1)
	return
}

func (s *codeBlockState) signNeighbours(r, c int) (hc, vc int) {
	i := s.idx
	contrib := func(dr, dc int) int {
		p := i(r+dr, c+dc)
		if !s.sigma[p] {
			return 0
		}
		if s.sign[p] {
			return -1
		}
		return 1
	}
	hc = clip1(contrib(0, -1) + contrib(0, 1))
	vc = clip1(contrib(-1, 0) + contrib(1, 0))
	return
}

func (s *codeBlockState) beginBitplane() {
	copy(s.was, s.sigma)
	for i := range s.visited {
		s.visited[i] = false
	}
}

// stripes returns the row ranges ([start, end)) of the four-row stripes
// that EBCOT scans a code-block in, per T.800 Annex D's scan order.
func stripes(height int) [][2]int {
	var out [][2]int
	for r := 0; r < height; r += 4 {
		end := r + 4
		if end > height {
			end = height
		}
		out = append(out, [2]int{r, end})
	}
	return out
}

// --- Encoder ---

// CodeBlockEncoder codes one code-block's coefficients, most-significant
// bitplane first, into a single MQ-coded segment.
type CodeBlockEncoder struct {
	coeffs   [][]int32 // magnitude, row-major
	signs    [][]bool
	state    *codeBlockState
	mq       *MQEncoder
	ctx      [NumContexts]ctxState
}

// NewCodeBlockEncoder prepares an encoder for a w x h code-block of the
// given orientation.
func NewCodeBlockEncoder(coeffs [][]int32, signs [][]bool, orient Orientation) *CodeBlockEncoder {
	h := len(coeffs)
	w := 0
	if h > 0 {
		w = len(coeffs[0])
	}
	return &CodeBlockEncoder{
		coeffs: coeffs,
		signs:  signs,
		state:  newCodeBlockState(w, h, orient),
		mq:     NewMQEncoder(),
		ctx:    newContexts(),
	}
}

func (e *CodeBlockEncoder) bit(coeff int32, plane int) int {
	return int((coeff >> uint(plane)) & 1)
}

// Encode runs numBitplanes bitplanes of significance-propagation,
// magnitude-refinement and cleanup passes and returns the coded segment.
func (e *CodeBlockEncoder) Encode(numBitplanes int) []byte {
	s := e.state
	newlySig := make([]bool, len(s.sigma))
	for plane := numBitplanes - 1; plane >= 0; plane-- {
		s.beginBitplane()
		for i := range newlySig {
			newlySig[i] = false
		}
		e.significancePropagationPass(plane, newlySig)
		e.magnitudeRefinementPass(plane)
		e.cleanupPass(plane, newlySig)
	}
	return e.mq.Flush()
}

func (e *CodeBlockEncoder) codeSignificance(r, c, plane int, newlySig []bool) {
	s := e.state
	p := s.idx(r, c)
	h, v, d := s.neighbours(r, c)
	ctxIdx := sigContext(s.orient, h, v, d)
	bit := e.bit(e.coeffs[r][c], plane)
	e.mq.Encode(&e.ctx[ctxIdx], bit)
	if bit == 1 {
		s.sigma[p] = true
		s.sign[p] = e.signs[r][c]
		newlySig[p] = true
		hc, vc := s.signNeighbours(r, c)
		off, xorBit := signContext(hc, vc)
		coded := 0
		if e.signs[r][c] {
			coded = 1
		}
		coded ^= xorBit
		e.mq.Encode(&e.ctx[CtxSignStart+off], coded)
	}
}

func (e *CodeBlockEncoder) significancePropagationPass(plane int, newlySig []bool) {
	s := e.state
	for _, st := range stripes(s.h) {
		for c := 0; c < s.w; c++ {
			for r := st[0]; r < st[1]; r++ {
				p := s.idx(r, c)
				if s.was[p] {
					continue
				}
				h, v, d := s.neighbours(r, c)
				if h+v+d == 0 {
					continue
				}
				e.codeSignificance(r, c, plane, newlySig)
				s.visited[p] = true
			}
		}
	}
}

func (e *CodeBlockEncoder) magnitudeRefinementPass(plane int) {
	s := e.state
	for r := 0; r < s.h; r++ {
		for c := 0; c < s.w; c++ {
			p := s.idx(r, c)
			if !s.was[p] {
				continue
			}
			h, v, d := s.neighbours(r, c)
			var ctxIdx int
			if !s.refined[p] {
				if h+v+d == 0 {
					ctxIdx = CtxMagRefFirst
				} else {
					ctxIdx = CtxMagRefFirst + 1
				}
			} else {
				ctxIdx = CtxMagRefFirst + 2
			}
			bit := e.bit(e.coeffs[r][c], plane)
			e.mq.Encode(&e.ctx[ctxIdx], bit)
			s.refined[p] = true
		}
	}
}

func (e *CodeBlockEncoder) cleanupPass(plane int, newlySig []bool) {
	s := e.state
	for _, st := range stripes(s.h) {
		for c := 0; c < s.w; c++ {
			runEligible := st[1]-st[0] == 4
			if runEligible {
				for r := st[0]; r < st[1]; r++ {
					p := s.idx(r, c)
					if s.was[p] || s.visited[p] {
						runEligible = false
						break
					}
					h, v, d := s.neighbours(r, c)
					if h+v+d != 0 {
						runEligible = false
						break
					}
				}
			}
			if runEligible {
				firstSig := -1
				for r := st[0]; r < st[1]; r++ {
					if e.bit(e.coeffs[r][c], plane) == 1 {
						firstSig = r - st[0]
						break
					}
				}
				runBit := 0
				if firstSig >= 0 {
					runBit = 1
				}
				e.mq.Encode(&e.ctx[CtxRunLength], runBit)
				if runBit == 0 {
					continue
				}
				e.mq.Encode(&e.ctx[CtxUniform], (firstSig>>1)&1)
				e.mq.Encode(&e.ctx[CtxUniform], firstSig&1)
				for k, r := 0, st[0]; r < st[1]; r, k = r+1, k+1 {
					if k < firstSig {
						continue
					}
					p := s.idx(r, c)
					if k == firstSig {
						s.sigma[p] = true
						s.sign[p] = e.signs[r][c]
						newlySig[p] = true
						hc, vc := s.signNeighbours(r, c)
						off, xorBit := signContext(hc, vc)
						coded := 0
						if e.signs[r][c] {
							coded = 1
						}
						coded ^= xorBit
						e.mq.Encode(&e.ctx[CtxSignStart+off], coded)
						continue
					}
					e.codeSignificance(r, c, plane, newlySig)
				}
				continue
			}
			for r := st[0]; r < st[1]; r++ {
				p := s.idx(r, c)
				if s.was[p] || s.visited[p] {
					continue
				}
				e.codeSignificance(r, c, plane, newlySig)
			}
		}
	}
}

// --- Decoder ---

// CodeBlockDecoder is the symmetric decoder for CodeBlockEncoder's
// segment.
type CodeBlockDecoder struct {
	w, h     int
	coeffs   [][]int32
	signs    [][]bool
	state    *codeBlockState
	mq       *MQDecoder
	ctx      [NumContexts]ctxState
}

// NewCodeBlockDecoder prepares a decoder for a w x h code-block of the
// given orientation over data.
func NewCodeBlockDecoder(data []byte, w, h int, orient Orientation) *CodeBlockDecoder {
	d := &CodeBlockDecoder{
		w: w, h: h,
		coeffs: make([][]int32, h),
		signs:  make([][]bool, h),
		state:  newCodeBlockState(w, h, orient),
		mq:     NewMQDecoder(data),
		ctx:    newContexts(),
	}
	for r := range d.coeffs {
		d.coeffs[r] = make([]int32, w)
		d.signs[r] = make([]bool, w)
	}
	return d
}

// Decode runs numBitplanes bitplanes and returns the reconstructed
// magnitude/sign grids.
func (d *CodeBlockDecoder) Decode(numBitplanes int) ([][]int32, [][]bool) {
	s := d.state
	newlySig := make([]bool, len(s.sigma))
	for plane := numBitplanes - 1; plane >= 0; plane-- {
		s.beginBitplane()
		for i := range newlySig {
			newlySig[i] = false
		}
		d.significancePropagationPass(plane, newlySig)
		d.magnitudeRefinementPass(plane)
		d.cleanupPass(plane, newlySig)
	}
	return d.coeffs, d.signs
}

func (d *CodeBlockDecoder) setBit(r, c, plane int) {
	d.coeffs[r][c] |= int32(1) << uint(plane)
}

func (d *CodeBlockDecoder) decodeSignificance(r, c, plane int, newlySig []bool) {
	s := d.state
	p := s.idx(r, c)
	h, v, d2 := s.neighbours(r, c)
	ctxIdx := sigContext(s.orient, h, v, d2)
	bit := d.mq.Decode(&d.ctx[ctxIdx])
	if bit == 1 {
		d.setBit(r, c, plane)
		s.sigma[p] = true
		newlySig[p] = true
		hc, vc := s.signNeighbours(r, c)
		off, xorBit := signContext(hc, vc)
		coded := d.mq.Decode(&d.ctx[CtxSignStart+off])
		s.sign[p] = (coded^xorBit == 1)
		d.signs[r][c] = s.sign[p]
	}
}

func (d *CodeBlockDecoder) significancePropagationPass(plane int, newlySig []bool) {
	s := d.state
	for _, st := range stripes(s.h) {
		for c := 0; c < s.w; c++ {
			for r := st[0]; r < st[1]; r++ {
				p := s.idx(r, c)
				if s.was[p] {
					continue
				}
				h, v, dd := s.neighbours(r, c)
				if h+v+dd == 0 {
					continue
				}
				d.decodeSignificance(r, c, plane, newlySig)
				s.visited[p] = true
			}
		}
	}
}

func (d *CodeBlockDecoder) magnitudeRefinementPass(plane int) {
	s := d.state
	for r := 0; r < s.h; r++ {
		for c := 0; c < s.w; c++ {
			p := s.idx(r, c)
			if !s.was[p] {
				continue
			}
			h, v, dd := s.neighbours(r, c)
			var ctxIdx int
			if !s.refined[p] {
				if h+v+dd == 0 {
					ctxIdx = CtxMagRefFirst
				} else {
					ctxIdx = CtxMagRefFirst + 1
				}
			} else {
				ctxIdx = CtxMagRefFirst + 2
			}
			bit := d.mq.Decode(&d.ctx[ctxIdx])
			if bit == 1 {
				d.setBit(r, c, plane)
			}
			s.refined[p] = true
		}
	}
}

func (d *CodeBlockDecoder) cleanupPass(plane int, newlySig []bool) {
	s := d.state
	for _, st := range stripes(s.h) {
		for c := 0; c < s.w; c++ {
			runEligible := st[1]-st[0] == 4
			if runEligible {
				for r := st[0]; r < st[1]; r++ {
					p := s.idx(r, c)
					if s.was[p] || s.visited[p] {
						runEligible = false
						break
					}
					h, v, dd := s.neighbours(r, c)
					if h+v+dd != 0 {
						runEligible = false
						break
					}
				}
			}
			if runEligible {
				runBit := d.mq.Decode(&d.ctx[CtxRunLength])
				if runBit == 0 {
					continue
				}
				hi := d.mq.Decode(&d.ctx[CtxUniform])
				lo := d.mq.Decode(&d.ctx[CtxUniform])
				firstSig := hi<<1 | lo
				for k, r := 0, st[0]; r < st[1]; r, k = r+1, k+1 {
					if k < firstSig {
						continue
					}
					p := s.idx(r, c)
					if k == firstSig {
						d.setBit(r, c, plane)
						s.sigma[p] = true
						newlySig[p] = true
						hc, vc := s.signNeighbours(r, c)
						off, xorBit := signContext(hc, vc)
						coded := d.mq.Decode(&d.ctx[CtxSignStart+off])
						s.sign[p] = (coded^xorBit == 1)
						d.signs[r][c] = s.sign[p]
						continue
					}
					d.decodeSignificance(r, c, plane, newlySig)
				}
				continue
			}
			for r := st[0]; r < st[1]; r++ {
				p := s.idx(r, c)
				if s.was[p] || s.visited[p] {
					continue
				}
				d.decodeSignificance(r, c, plane, newlySig)
			}
		}
	}
}
