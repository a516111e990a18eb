package jpeg2k

// Component-to-component transforms: the reversible colour transform
// (RCT, integer, used with the 5/3 filter) and the irreversible colour
// transform (ICT, the JPEG-style YCbCr matrix, used with the 9/7 filter),
// per T.800 Annex G. Both operate sample-by-sample over three-component
// (R,G,B) grids; any other component count passes through untouched.

// ForwardRCT converts R,G,B into Y,Cb,Cr losslessly using integer
// arithmetic (T.800 Equation G-2).
func ForwardRCT(r, g, b [][]float64) (y, cb, cr [][]float64) {
	h := len(r)
	w := 0
	if h > 0 {
		w = len(r[0])
	}
	y = newGrid(h, w)
	cb = newGrid(h, w)
	cr = newGrid(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			rr, gg, bb := r[i][j], g[i][j], b[i][j]
			y[i][j] = floor64((rr + 2*gg + bb) / 4)
			cb[i][j] = bb - gg
			cr[i][j] = rr - gg
		}
	}
	return
}

// InverseRCT recovers R,G,B from Y,Cb,Cr (T.800 Equation G-3).
func InverseRCT(y, cb, cr [][]float64) (r, g, b [][]float64) {
	h := len(y)
	w := 0
	if h > 0 {
		w = len(y[0])
	}
	r = newGrid(h, w)
	g = newGrid(h, w)
	b = newGrid(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			yy, cbv, crv := y[i][j], cb[i][j], cr[i][j]
			gg := yy - floor64((cbv+crv)/4)
			r[i][j] = crv + gg
			b[i][j] = cbv + gg
			g[i][j] = gg
		}
	}
	return
}

// ICT matrix coefficients, T.800 Equation G-4/G-5 (identical to the JFIF
// YCbCr transform).
const (
	ictY1  = 0.299
	ictY2  = 0.587
	ictY3  = 0.114
	ictCb1 = -0.168736
	ictCb2 = -0.331264
	ictCb3 = 0.5
	ictCr1 = 0.5
	ictCr2 = -0.418688
	ictCr3 = -0.081312
)

// ForwardICT converts R,G,B into Y,Cb,Cr using the floating-point
// irreversible transform.
func ForwardICT(r, g, b [][]float64) (y, cb, cr [][]float64) {
	h := len(r)
	w := 0
	if h > 0 {
		w = len(r[0])
	}
	y = newGrid(h, w)
	cb = newGrid(h, w)
	cr = newGrid(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			rr, gg, bb := r[i][j], g[i][j], b[i][j]
			y[i][j] = ictY1*rr + ictY2*gg + ictY3*bb
			cb[i][j] = ictCb1*rr + ictCb2*gg + ictCb3*bb
			cr[i][j] = ictCr1*rr + ictCr2*gg + ictCr3*bb
		}
	}
	return
}

// InverseICT recovers R,G,B from Y,Cb,Cr.
func InverseICT(y, cb, cr [][]float64) (r, g, b [][]float64) {
	h := len(y)
	w := 0
	if h > 0 {
		w = len(y[0])
	}
	r = newGrid(h, w)
	g = newGrid(h, w)
	b = newGrid(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			yy, cbv, crv := y[i][j], cb[i][j], cr[i][j]
			r[i][j] = yy + 1.402*crv
			g[i][j] = yy - 0.344136*cbv - 0.714136*crv
			b[i][j] = yy + 1.772*cbv
		}
	}
	return
}
