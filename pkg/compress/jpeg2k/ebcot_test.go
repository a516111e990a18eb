package jpeg2k

import (
	"math/rand"
	"testing"
)

func TestEBCOTRoundTrip(t *testing.T) {
	seed := rand.New(rand.NewSource(7))
	for _, dims := range [][2]int{{1, 1}, {8, 8}, {31, 17}, {64, 64}} {
		for _, orient := range []Orientation{OrientLL, OrientHL, OrientLH, OrientHH} {
			w, h := dims[0], dims[1]
			mags := make([][]int32, h)
			signs := make([][]bool, h)
			var maxVal int32
			for r := 0; r < h; r++ {
				mags[r] = make([]int32, w)
				signs[r] = make([]bool, w)
				for c := 0; c < w; c++ {
					v := int32(seed.Intn(1 << 15))
					mags[r][c] = v
					signs[r][c] = seed.Intn(2) == 1
					if v > maxVal {
						maxVal = v
					}
				}
			}
			planes := bitLength(maxVal)
			if planes == 0 {
				planes = 1
			}

			enc := NewCodeBlockEncoder(mags, signs, orient)
			data := enc.Encode(planes)

			dec := NewCodeBlockDecoder(data, w, h, orient)
			gotMags, gotSigns := dec.Decode(planes)

			for r := 0; r < h; r++ {
				for c := 0; c < w; c++ {
					if gotMags[r][c] != mags[r][c] {
						t.Fatalf("orient=%d dims=%v: magnitude mismatch at (%d,%d): got %d want %d",
							orient, dims, r, c, gotMags[r][c], mags[r][c])
					}
					if mags[r][c] != 0 && gotSigns[r][c] != signs[r][c] {
						t.Fatalf("orient=%d dims=%v: sign mismatch at (%d,%d)", orient, dims, r, c)
					}
				}
			}
		}
	}
}

func TestEBCOTAllZero(t *testing.T) {
	mags := make([][]int32, 8)
	signs := make([][]bool, 8)
	for r := range mags {
		mags[r] = make([]int32, 8)
		signs[r] = make([]bool, 8)
	}
	enc := NewCodeBlockEncoder(mags, signs, OrientLH)
	data := enc.Encode(1)
	dec := NewCodeBlockDecoder(data, 8, 8, OrientLH)
	gotMags, _ := dec.Decode(1)
	for r := range gotMags {
		for c := range gotMags[r] {
			if gotMags[r][c] != 0 {
				t.Fatalf("expected zero at (%d,%d), got %d", r, c, gotMags[r][c])
			}
		}
	}
}
