package jpeg2k

import (
	"math/rand"
	"testing"
)

func TestMQRoundTrip(t *testing.T) {
	seed := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 17, 137, 1000, 10000} {
		bits := make([]int, n)
		ctxSeq := make([]int, n)
		for i := range bits {
			bits[i] = seed.Intn(2)
			ctxSeq[i] = seed.Intn(NumContexts)
		}

		encCtx := newContexts()
		enc := NewMQEncoder()
		for i, b := range bits {
			enc.Encode(&encCtx[ctxSeq[i]], b)
		}
		out := enc.Flush()

		decCtx := newContexts()
		dec := NewMQDecoder(out)
		for i := range bits {
			got := dec.Decode(&decCtx[ctxSeq[i]])
			if got != bits[i] {
				t.Fatalf("n=%d: bit %d mismatch: got %d want %d", n, i, got, bits[i])
			}
		}
	}
}

func TestMQRoundTripSingleContext(t *testing.T) {
	seed := rand.New(rand.NewSource(42))
	bits := make([]int, 5000)
	for i := range bits {
		if seed.Float64() < 0.9 {
			bits[i] = 0
		} else {
			bits[i] = 1
		}
	}
	encCtx := newContexts()
	enc := NewMQEncoder()
	for _, b := range bits {
		enc.Encode(&encCtx[0], b)
	}
	out := enc.Flush()

	decCtx := newContexts()
	dec := NewMQDecoder(out)
	for i, want := range bits {
		if got := dec.Decode(&decCtx[0]); got != want {
			t.Fatalf("bit %d mismatch: got %d want %d", i, got, want)
		}
	}
}
