package jpeg2k

import (
	"math"
	"math/rand"
	"testing"
)

func TestDWT53RoundTrip(t *testing.T) {
	seed := rand.New(rand.NewSource(3))
	for _, dims := range [][2]int{{1, 1}, {2, 3}, {16, 16}, {33, 17}} {
		w, h := dims[0], dims[1]
		grid := newGrid(h, w)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				grid[r][c] = float64(seed.Intn(2001) - 1000)
			}
		}
		ll, hl, lh, hh := ForwardDWT53(grid)
		back := InverseDWT53(ll, hl, lh, hh)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				if back[r][c] != grid[r][c] {
					t.Fatalf("dims=%v: mismatch at (%d,%d): got %v want %v", dims, r, c, back[r][c], grid[r][c])
				}
			}
		}
	}
}

func TestDWT97NearIdentity(t *testing.T) {
	seed := rand.New(rand.NewSource(9))
	const n = 512
	grid := newGrid(n, n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			grid[r][c] = float64(seed.Intn(256))
		}
	}
	ll, hl, lh, hh := ForwardDWT97(grid)
	back := InverseDWT97(ll, hl, lh, hh)
	var sumAbs float64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			sumAbs += math.Abs(back[r][c] - grid[r][c])
		}
	}
	mae := sumAbs / float64(n*n)
	if mae > 1 {
		t.Fatalf("mean absolute error %v exceeds 1", mae)
	}
}

func TestDecomposeComposeLevels53(t *testing.T) {
	seed := rand.New(rand.NewSource(11))
	const w, h = 64, 64
	grid := newGrid(h, w)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			grid[r][c] = float64(seed.Intn(511) - 255)
		}
	}
	levels := DecomposeLevels(grid, 3, true)
	back := ComposeLevels(levels, true)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if back[r][c] != grid[r][c] {
				t.Fatalf("mismatch at (%d,%d): got %v want %v", r, c, back[r][c], grid[r][c])
			}
		}
	}
}
