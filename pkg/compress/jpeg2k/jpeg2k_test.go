package jpeg2k

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestIsJPEG2000(t *testing.T) {
	if !IsJPEG2000([]byte{0xFF, 0x4F, 0xFF, 0x51}) {
		t.Fatal("expected SOC-prefixed buffer to report true")
	}
	if IsJPEG2000([]byte{0x00, 0x00}) {
		t.Fatal("expected non-codestream buffer to report false")
	}
}

// S1: all-zero 16x16 grayscale 8-bit frame, lossless.
func TestScenarioS1AllZeroGrayscale(t *testing.T) {
	info := ImageInfo{Columns: 16, Rows: 16, SamplesPerPixel: 1, BitsStored: 8, BytesPerSample: 1, FrameSizeBytes: 256}
	pixels := make([]byte, 256)

	cs, err := EncodeFrame(pixels, info, DefaultEncoderOptions(), true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if cs[0] != 0xFF || cs[1] != 0x4F {
		t.Fatalf("expected SOC first, got %02X %02X", cs[0], cs[1])
	}
	if cs[len(cs)-2] != 0xFF || cs[len(cs)-1] != 0xD9 {
		t.Fatalf("expected EOC last, got %02X %02X", cs[len(cs)-2], cs[len(cs)-1])
	}

	out := make([]byte, 256)
	res, err := DecodeFrame(cs, info, out, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.BytesWritten != 256 {
		t.Fatalf("expected 256 bytes written, got %d", res.BytesWritten)
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("byte %d: expected 0, got %d", i, b)
		}
	}
}

// S2: 64x64 RGB 8-bit interleaved gradient, lossless round-trip.
func TestScenarioS2RGBGradient(t *testing.T) {
	const dim = 64
	info := ImageInfo{Columns: dim, Rows: dim, SamplesPerPixel: 3, BitsStored: 8, BytesPerSample: 1, FrameSizeBytes: dim * dim * 3}
	pixels := make([]byte, dim*dim*3)
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			off := (y*dim + x) * 3
			pixels[off] = byte(x)
			pixels[off+1] = byte(y)
			pixels[off+2] = byte((x + y) / 2)
		}
	}

	cs, err := EncodeFrame(pixels, info, DefaultEncoderOptions(), true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := make([]byte, len(pixels))
	if _, err := DecodeFrame(cs, info, out, 0); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out, pixels) {
		for i := range pixels {
			if pixels[i] != out[i] {
				t.Fatalf("first mismatch at byte %d: got %d want %d", i, out[i], pixels[i])
			}
		}
	}
}

// S3: valid SOC but no SIZ before SOT must fail mentioning "SIZ".
func TestScenarioS3MissingSIZ(t *testing.T) {
	var buf bytes.Buffer
	w := NewByteWriter(&buf)
	_ = w.WriteUint16(markerSOC)
	_ = w.WriteUint16(markerSOT)
	_ = w.WriteUint16(10)
	_ = w.WriteBytes(make([]byte, 8))
	_ = w.Flush()

	_, err := ParseHeader(buf.Bytes())
	if err == nil {
		t.Fatal("expected an error for missing SIZ")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) {
		t.Fatalf("expected a *DecodeError, got %T: %v", err, err)
	}
	if !strings.Contains(de.Reason, "SIZ") {
		t.Fatalf("expected reason to mention SIZ, got %q", de.Reason)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	if de, ok := err.(*DecodeError); ok {
		*target = de
		return true
	}
	return false
}

func TestCodestreamDiscipline(t *testing.T) {
	info := ImageInfo{Columns: 32, Rows: 32, SamplesPerPixel: 1, BitsStored: 8, BytesPerSample: 1, FrameSizeBytes: 32 * 32}
	pixels := make([]byte, 32*32)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	cs, err := EncodeFrame(pixels, info, DefaultEncoderOptions(), true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if cs[0] != 0xFF || cs[1] != 0x4F || cs[len(cs)-2] != 0xFF || cs[len(cs)-1] != 0xD9 {
		t.Fatal("codestream must start with SOC and end with EOC")
	}
	hdr, err := ParseHeader(cs)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if int(hdr.Width) != 32 || int(hdr.Height) != 32 {
		t.Fatalf("unexpected header dimensions: %+v", hdr)
	}
}

func TestLossyNearIdentity(t *testing.T) {
	const dim = 32
	info := ImageInfo{Columns: dim, Rows: dim, SamplesPerPixel: 1, BitsStored: 8, BytesPerSample: 1, FrameSizeBytes: dim * dim}
	pixels := make([]byte, dim*dim)
	for i := range pixels {
		pixels[i] = byte((i * 37) % 256)
	}
	cs, err := EncodeFrame(pixels, info, DefaultEncoderOptions(), false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := make([]byte, len(pixels))
	if _, err := DecodeFrame(cs, info, out, 0); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The 9/7 coefficients are truncated to integers before Tier-1 coding,
	// so the bound is looser than TestDWT97NearIdentity's.
	var sumAbs float64
	for i := range pixels {
		sumAbs += math.Abs(float64(out[i]) - float64(pixels[i]))
	}
	if mae := sumAbs / float64(len(pixels)); mae > 2 {
		t.Fatalf("mean absolute error %v exceeds 2", mae)
	}
}
