package jpeg2k

// MQ coder implements the context-adaptive binary arithmetic coder of
// ITU-T T.800 Annex C. The probability table below is Table C.2, reproduced
// verbatim; misassigning a row here silently corrupts every output.

// Number of MQ contexts EBCOT uses: nine significance, five sign, three
// magnitude-refinement, one run-length, one uniform.
const (
	NumContexts = 19

	CtxSignStart   = 9  // 9..13, five sign contexts
	CtxMagRefFirst = 14 // 14..16, three magnitude-refinement contexts
	CtxRunLength   = 17
	CtxUniform     = 18
)

// mqEntry is one row of the probability-estimation table: Qe, the next
// state on an MPS decision, the next state on an LPS decision, and whether
// coding an LPS should swap the sense of MPS/LPS for this context.
type mqEntry struct {
	qe   uint32
	nmps uint8
	nlps uint8
	swi  bool
}

// mqTable is ITU-T T.800 Table C.2. Row 46 is the uniform row
// (Qe=0x5601, NMPS=NLPS=46, Switch=0).
var mqTable = [47]mqEntry{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false}, {0x0AC1, 4, 12, false},
	{0x0521, 5, 29, false}, {0x0221, 38, 33, false}, {0x5601, 7, 6, true}, {0x5401, 8, 14, false},
	{0x4801, 9, 14, false}, {0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true}, {0x5401, 16, 14, false},
	{0x5101, 17, 15, false}, {0x4801, 18, 16, false}, {0x3801, 19, 17, false}, {0x3401, 20, 18, false},
	{0x3001, 21, 19, false}, {0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false}, {0x1401, 28, 25, false},
	{0x1201, 29, 26, false}, {0x1101, 30, 27, false}, {0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false},
	{0x08A1, 33, 30, false}, {0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false}, {0x0085, 40, 37, false},
	{0x0049, 41, 38, false}, {0x0025, 42, 39, false}, {0x0015, 43, 40, false}, {0x0009, 44, 41, false},
	{0x0005, 45, 42, false}, {0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// ctxState is the per-context state: the index into mqTable and the
// current most-probable-symbol bit.
type ctxState struct {
	index uint8
	mps   uint8
}

// newContexts returns NumContexts contexts all reset to {state 0, MPS=0}.
func newContexts() [NumContexts]ctxState {
	return [NumContexts]ctxState{}
}

// MQEncoder is a context-adaptive binary arithmetic encoder. It is
// stateless across code-blocks: call Reset to start a fresh block.
type MQEncoder struct {
	out  []byte
	a    uint32 // interval register, normalised to [0x8000, 0x10000)
	c    uint32 // code register
	ct   int    // bit counter until next byte-out
	b    int    // index of the last emitted byte, -1 before the first byte-out
	pend byte   // pending byte awaiting a possible carry
}

// NewMQEncoder returns a ready-to-use encoder.
func NewMQEncoder() *MQEncoder {
	e := &MQEncoder{}
	e.Reset()
	return e
}

// Reset restores A=0x8000, CT=12 and clears the output buffer. Context
// state is owned by the caller (each code-block coder holds its own
// contexts, created once when the coder is built).
func (e *MQEncoder) Reset() {
	e.out = e.out[:0]
	e.a = 0x8000
	e.c = 0
	e.ct = 12
	e.b = -1
	e.pend = 0
}

// Encode codes one bit in the given context.
func (e *MQEncoder) Encode(ctx *ctxState, bit int) {
	row := &mqTable[ctx.index]
	e.a -= row.qe
	if bit == int(ctx.mps) {
		if e.a&0x8000 == 0 {
			if e.a < row.qe {
				e.a = row.qe
			} else {
				e.c += row.qe
			}
			ctx.index = row.nmps
			e.renorm()
		} else {
			e.c += row.qe
		}
	} else {
		if e.a < row.qe {
			e.c += row.qe
		} else {
			e.a = row.qe
		}
		if row.swi {
			ctx.mps = 1 - ctx.mps
		}
		ctx.index = row.nlps
		e.renorm()
	}
}

func (e *MQEncoder) renorm() {
	for {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
		}
		if e.a&0x8000 != 0 {
			break
		}
	}
}

func (e *MQEncoder) byteOut() {
	// A carry out of C propagates into the pending byte; a pending 0xFF
	// never receives one because only seven bits follow it.
	if e.pend != 0xFF && e.c >= 0x8000000 {
		e.pend++
		e.c &= 0x7FFFFFF
	}
	if e.b >= 0 {
		e.emit(e.pend)
	}
	if e.pend == 0xFF {
		e.pend = byte(e.c >> 20) // bit-stuffing: seven bits after 0xFF
		e.c &= 0xFFFFF
		e.ct = 7
	} else {
		e.pend = byte(e.c >> 19)
		e.c &= 0x7FFFF
		e.ct = 8
	}
	e.b++
}

func (e *MQEncoder) emit(b byte) {
	e.out = append(e.out, b)
}

// Flush terminates the codeword, trims a trailing stray 0xFF, and returns
// the encoded bytes. The returned slice is owned by the encoder; copy it
// before calling Reset/Encode again.
func (e *MQEncoder) Flush() []byte {
	e.setBits()
	e.c <<= uint(e.ct)
	e.byteOut()
	e.c <<= uint(e.ct)
	e.byteOut()
	if e.pend != 0xFF {
		e.emit(e.pend)
	}
	for len(e.out) > 0 && e.out[len(e.out)-1] == 0xFF {
		e.out = e.out[:len(e.out)-1]
	}
	return e.out
}

// setBits sets the unambiguous terminating bits of C per T.800 C.2.9 (INITDEC
// calls this "clear the low bits that only the encoder needs").
func (e *MQEncoder) setBits() {
	tmp := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= tmp {
		e.c -= 0x8000
	}
}

// MQDecoder is the symmetric decoder for MQEncoder's bitstream. Decoding
// never fails: past the end of the data it reads 0xFF bytes, which byteIn
// treats as a marker and so feeds in 1-bits (the trailing 0xFF bytes that
// Flush trims are recovered this way).
type MQDecoder struct {
	data []byte
	bp   int // index of the byte most recently folded into c
	a    uint32
	c    uint32
	ct   int
}

// NewMQDecoder initialises a decoder over data.
func NewMQDecoder(data []byte) *MQDecoder {
	d := &MQDecoder{}
	d.Reset(data)
	return d
}

func (d *MQDecoder) at(i int) byte {
	if i < 0 || i >= len(d.data) {
		return 0xFF
	}
	return d.data[i]
}

// Reset restarts decoding over fresh data, re-reading the initial bytes.
func (d *MQDecoder) Reset(data []byte) {
	d.data = data
	d.bp = 0
	d.c = uint32(d.at(0)) << 16
	d.byteIn()
	d.c <<= 7
	d.ct -= 7
	d.a = 0x8000
}

// byteIn implements BYTEIN (T.800 Figure C.18): a 0xFF followed by a byte
// greater than 0x8F is a marker boundary, not a stuffed byte — the 0xFF is
// left in place for Tier-2 to see and the decoder stops consuming it.
func (d *MQDecoder) byteIn() {
	if d.at(d.bp) == 0xFF {
		if d.at(d.bp+1) > 0x8F {
			d.c += 0xFF00
			d.ct = 8
			return
		}
		d.bp++
		d.c += uint32(d.at(d.bp)) << 9
		d.ct = 7
		return
	}
	d.bp++
	d.c += uint32(d.at(d.bp)) << 8
	d.ct = 8
}

// Decode decodes one bit in the given context.
func (d *MQDecoder) Decode(ctx *ctxState) int {
	row := &mqTable[ctx.index]
	d.a -= row.qe

	if (d.c >> 16) < row.qe {
		return d.lpsExchange(ctx, row)
	}
	d.c -= row.qe << 16
	if d.a&0x8000 != 0 {
		return int(ctx.mps)
	}
	return d.mpsExchange(ctx, row)
}

func (d *MQDecoder) mpsExchange(ctx *ctxState, row *mqEntry) int {
	var bit int
	if d.a < row.qe {
		bit = 1 - int(ctx.mps)
		if row.swi {
			ctx.mps = 1 - ctx.mps
		}
		ctx.index = row.nlps
	} else {
		bit = int(ctx.mps)
		ctx.index = row.nmps
	}
	d.renorm()
	return bit
}

func (d *MQDecoder) lpsExchange(ctx *ctxState, row *mqEntry) int {
	var bit int
	if d.a < row.qe {
		d.a = row.qe
		bit = int(ctx.mps)
		ctx.index = row.nmps
	} else {
		d.a = row.qe
		bit = 1 - int(ctx.mps)
		if row.swi {
			ctx.mps = 1 - ctx.mps
		}
		ctx.index = row.nlps
	}
	d.renorm()
	return bit
}

func (d *MQDecoder) renorm() {
	for {
		if d.ct == 0 {
			d.byteIn()
		}
		d.a <<= 1
		d.c <<= 1
		d.ct--
		if d.a&0x8000 != 0 {
			break
		}
	}
}
