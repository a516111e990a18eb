package jpeg2k

// Discrete wavelet transform: the 5/3 reversible filter (Part-1 Annex F,
// used for the lossless transfer syntax) and the 9/7 irreversible filter
// (used for lossy compression), both applied as in-place lifting steps
// with symmetric boundary extension so odd-length rows/columns need no
// special casing beyond index clamping. A length-1 signal passes through
// either filter unchanged.

// Subband holds one decomposition level's four quadrants. DecomposeLevels
// fills LL at every level; only the coarsest level's LL (the final
// low-pass approximation) is read back by ComposeLevels, since each finer
// level's LL is the input that the next level split further.
type Subband struct {
	Level      int
	LL, HL, LH, HH [][]float64
}

func clampIdx(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - i - 2
	}
	return i
}

// ForwardDWT53 performs one level of the reversible 5/3 lifting transform
// on data, returning its LL/HL/LH/HH quadrants as new grids; data itself
// is left unchanged.
func ForwardDWT53(data [][]float64) (ll, hl, lh, hh [][]float64) {
	h := len(data)
	w := 0
	if h > 0 {
		w = len(data[0])
	}
	// Horizontal pass: lift every row, even samples become low-pass,
	// odd samples become high-pass.
	rows := make([][]float64, h)
	for r := 0; r < h; r++ {
		rows[r] = lift53Forward(data[r])
	}
	// Vertical pass: lift every column of the row-transformed data.
	cols := make([][]float64, w)
	for c := 0; c < w; c++ {
		col := make([]float64, h)
		for r := 0; r < h; r++ {
			col[r] = rows[r][c]
		}
		cols[c] = lift53Forward(col)
	}
	return splitQuadrants(cols, w, h)
}

// lift53Forward applies the reversible 5/3 analysis filter to one 1-D
// signal, returning [low-pass samples..., high-pass samples...].
func lift53Forward(x []float64) []float64 {
	n := len(x)
	if n <= 1 {
		return append([]float64(nil), x...)
	}
	work := make([]float64, n)
	copy(work, x)
	// Predict (odd samples).
	for i := 1; i < n; i += 2 {
		left := work[clampIdx(i-1, n)]
		right := work[clampIdx(i+1, n)]
		work[i] -= floor64((left + right) / 2)
	}
	// Update (even samples).
	for i := 0; i < n; i += 2 {
		left := work[clampIdx(i-1, n)]
		right := work[clampIdx(i+1, n)]
		work[i] += floor64((left + right + 2) / 4)
	}
	out := make([]float64, n)
	nl := (n + 1) / 2
	li, hi := 0, nl
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out[li] = work[i]
			li++
		} else {
			out[hi] = work[i]
			hi++
		}
	}
	return out
}

// InverseDWT53 reconstructs one level from its four quadrants.
func InverseDWT53(ll, hl, lh, hh [][]float64) [][]float64 {
	w, h := mergeDims(ll, hl, lh, hh)
	cols := mergeQuadrants(ll, hl, lh, hh, w, h)
	rows := make([][]float64, h)
	for r := range rows {
		rows[r] = make([]float64, w)
	}
	for c := 0; c < w; c++ {
		col := lift53Inverse(cols[c])
		for r := 0; r < h; r++ {
			rows[r][c] = col[r]
		}
	}
	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = lift53Inverse(rows[r])
	}
	return out
}

func lift53Inverse(x []float64) []float64 {
	n := len(x)
	if n <= 1 {
		return append([]float64(nil), x...)
	}
	nl := (n + 1) / 2
	work := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			work[i] = x[i/2]
		} else {
			work[i] = x[nl+i/2]
		}
	}
	for i := 0; i < n; i += 2 {
		left := work[clampIdx(i-1, n)]
		right := work[clampIdx(i+1, n)]
		work[i] -= floor64((left + right + 2) / 4)
	}
	for i := 1; i < n; i += 2 {
		left := work[clampIdx(i-1, n)]
		right := work[clampIdx(i+1, n)]
		work[i] += floor64((left + right) / 2)
	}
	return work
}

// 9/7 irreversible lifting coefficients, T.800 Annex F Table F.4.
const (
	alpha97 = -1.586134342059924
	beta97  = -0.052980118572961
	gamma97 = 0.882911075530934
	delta97 = 0.443506852043971
	k97     = 1.230174104914001
)

// ForwardDWT97 performs one level of the irreversible 9/7 lifting
// transform.
func ForwardDWT97(data [][]float64) (ll, hl, lh, hh [][]float64) {
	h := len(data)
	w := 0
	if h > 0 {
		w = len(data[0])
	}
	rows := make([][]float64, h)
	for r := 0; r < h; r++ {
		rows[r] = lift97Forward(data[r])
	}
	cols := make([][]float64, w)
	for c := 0; c < w; c++ {
		col := make([]float64, h)
		for r := 0; r < h; r++ {
			col[r] = rows[r][c]
		}
		cols[c] = lift97Forward(col)
	}
	return splitQuadrants(cols, w, h)
}

func lift97Forward(x []float64) []float64 {
	n := len(x)
	if n <= 1 {
		return append([]float64(nil), x...)
	}
	work := make([]float64, n)
	copy(work, x)
	step := func(coeff float64, parity int) {
		for i := parity; i < n; i += 2 {
			left := work[clampIdx(i-1, n)]
			right := work[clampIdx(i+1, n)]
			work[i] += coeff * (left + right)
		}
	}
	step(alpha97, 1)
	step(beta97, 0)
	step(gamma97, 1)
	step(delta97, 0)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			work[i] /= k97
		} else {
			work[i] *= k97
		}
	}
	out := make([]float64, n)
	nl := (n + 1) / 2
	li, hi := 0, nl
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out[li] = work[i]
			li++
		} else {
			out[hi] = work[i]
			hi++
		}
	}
	return out
}

// InverseDWT97 reconstructs one level from its four quadrants.
func InverseDWT97(ll, hl, lh, hh [][]float64) [][]float64 {
	w, h := mergeDims(ll, hl, lh, hh)
	cols := mergeQuadrants(ll, hl, lh, hh, w, h)
	rows := make([][]float64, h)
	for r := range rows {
		rows[r] = make([]float64, w)
	}
	for c := 0; c < w; c++ {
		col := lift97Inverse(cols[c])
		for r := 0; r < h; r++ {
			rows[r][c] = col[r]
		}
	}
	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = lift97Inverse(rows[r])
	}
	return out
}

func lift97Inverse(x []float64) []float64 {
	n := len(x)
	if n <= 1 {
		return append([]float64(nil), x...)
	}
	nl := (n + 1) / 2
	work := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			work[i] = x[i/2]
		} else {
			work[i] = x[nl+i/2]
		}
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			work[i] *= k97
		} else {
			work[i] /= k97
		}
	}
	step := func(coeff float64, parity int) {
		for i := parity; i < n; i += 2 {
			left := work[clampIdx(i-1, n)]
			right := work[clampIdx(i+1, n)]
			work[i] -= coeff * (left + right)
		}
	}
	step(delta97, 0)
	step(gamma97, 1)
	step(beta97, 0)
	step(alpha97, 1)
	return work
}

func floor64(v float64) float64 {
	i := int64(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return float64(i)
}

// splitQuadrants demultiplexes lifted columns (each column already split
// into low/high halves) into the four quadrant grids.
func splitQuadrants(cols [][]float64, w, h int) (ll, hl, lh, hh [][]float64) {
	hNL := (h + 1) / 2
	wNL := (w + 1) / 2
	ll = newGrid(hNL, wNL)
	hl = newGrid(hNL, w-wNL)
	lh = newGrid(h-hNL, wNL)
	hh = newGrid(h-hNL, w-wNL)
	for c := 0; c < w; c++ {
		col := cols[c]
		lowCol := c < wNL
		for r := 0; r < h; r++ {
			v := col[r]
			lowRow := r < hNL
			switch {
			case lowRow && lowCol:
				ll[r][c] = v
			case lowRow && !lowCol:
				hl[r][c-wNL] = v
			case !lowRow && lowCol:
				lh[r-hNL][c] = v
			default:
				hh[r-hNL][c-wNL] = v
			}
		}
	}
	return
}

func mergeDims(ll, hl, lh, hh [][]float64) (w, h int) {
	hNL := len(ll)
	wNL := 0
	if hNL > 0 {
		wNL = len(ll[0])
	}
	hNH := len(lh)
	wNH := 0
	if len(hl) > 0 {
		wNH = len(hl[0])
	}
	return wNL + wNH, hNL + hNH
}

func mergeQuadrants(ll, hl, lh, hh [][]float64, w, h int) [][]float64 {
	hNL := len(ll)
	wNL := 0
	if hNL > 0 {
		wNL = len(ll[0])
	}
	cols := make([][]float64, w)
	for c := 0; c < w; c++ {
		cols[c] = make([]float64, h)
	}
	for r := 0; r < h; r++ {
		lowRow := r < hNL
		for c := 0; c < w; c++ {
			lowCol := c < wNL
			var v float64
			switch {
			case lowRow && lowCol:
				v = ll[r][c]
			case lowRow && !lowCol:
				v = hl[r][c-wNL]
			case !lowRow && lowCol:
				v = lh[r-hNL][c]
			default:
				v = hh[r-hNL][c-wNL]
			}
			cols[c][r] = v
		}
	}
	return cols
}

func newGrid(h, w int) [][]float64 {
	g := make([][]float64, h)
	for r := range g {
		g[r] = make([]float64, w)
	}
	return g
}

// DecomposeLevels runs numLevels of forward DWT, recursing into LL each
// time, and returns the per-level subbands ordered from coarsest (index
// 0, the level whose LL is the final low-pass approximation) to finest
// (last index, the first split applied to the original data).
func DecomposeLevels(data [][]float64, numLevels int, reversible bool) []Subband {
	levels := make([]Subband, numLevels)
	cur := data
	for l := 0; l < numLevels; l++ {
		var ll, hl, lh, hh [][]float64
		if reversible {
			ll, hl, lh, hh = ForwardDWT53(cur)
		} else {
			ll, hl, lh, hh = ForwardDWT97(cur)
		}
		levels[numLevels-1-l] = Subband{Level: numLevels - l, LL: ll, HL: hl, LH: lh, HH: hh}
		cur = ll
	}
	return levels
}

// ComposeLevels inverts DecomposeLevels, reconstructing the original
// sample grid by walking from the coarsest level's LL back out to the
// finest level's detail subbands.
func ComposeLevels(levels []Subband, reversible bool) [][]float64 {
	numLevels := len(levels)
	if numLevels == 0 {
		return nil
	}
	ll := levels[0].LL
	for l := 0; l < numLevels; l++ {
		sb := levels[l]
		if reversible {
			ll = InverseDWT53(ll, sb.HL, sb.LH, sb.HH)
		} else {
			ll = InverseDWT97(ll, sb.HL, sb.LH, sb.HH)
		}
	}
	return ll
}
