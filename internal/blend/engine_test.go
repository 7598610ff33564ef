package blend

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
)

func TestNewEngineRejectsUnknownStrategy(t *testing.T) {
	if _, err := NewEngine("median"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := NewEngine(""); err != nil {
		t.Fatalf("expected empty strategy to default, got %v", err)
	}
}

func TestBlendEmptyBatch(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	if _, err := engine.Blend(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestBlendIdenticalImagesIsIdempotent(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	src := gradientNRGBA(64, 48)
	encoded := encodeTestPNG(t, src)

	for _, n := range []int{2, 5} {
		sources := make([][]byte, n)
		for i := range sources {
			sources[i] = encoded
		}

		out, err := engine.Blend(context.Background(), sources)
		if err != nil {
			t.Fatalf("blend %d identical images: %v", n, err)
		}
		if delta := maxChannelDelta(src, imaging.Clone(out)); delta != 0 {
			t.Fatalf("expected identical output for %d copies, max delta %d", n, delta)
		}
	}
}

func TestBlendAveragesChannelValues(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	sources := [][]byte{
		encodeTestPNG(t, solidNRGBA(32, 32, color.NRGBA{R: 10, G: 20, B: 30, A: 255})),
		encodeTestPNG(t, solidNRGBA(32, 32, color.NRGBA{R: 20, G: 40, B: 60, A: 255})),
	}

	out, err := engine.Blend(context.Background(), sources)
	if err != nil {
		t.Fatalf("blend solids: %v", err)
	}

	got := imaging.Clone(out).NRGBAAt(16, 16)
	want := color.NRGBA{R: 15, G: 30, B: 45, A: 255}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestBlendRoundsHalfAwayFromZero(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	sources := [][]byte{
		encodeTestPNG(t, solidNRGBA(8, 8, color.NRGBA{A: 255})),
		encodeTestPNG(t, solidNRGBA(8, 8, color.NRGBA{R: 255, G: 255, B: 255, A: 255})),
	}

	out, err := engine.Blend(context.Background(), sources)
	if err != nil {
		t.Fatalf("blend solids: %v", err)
	}

	got := imaging.Clone(out).NRGBAAt(4, 4)
	if got.R != 128 || got.G != 128 || got.B != 128 {
		t.Fatalf("expected 127.5 to round up to 128, got %+v", got)
	}
}

func TestBlendResizesToFirstImageDimensions(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	sources := [][]byte{
		encodeTestPNG(t, gradientNRGBA(60, 40)),
		encodeTestPNG(t, gradientNRGBA(120, 90)),
	}

	out, err := engine.Blend(context.Background(), sources)
	if err != nil {
		t.Fatalf("blend mixed sizes: %v", err)
	}
	if out.Bounds().Dx() != 60 || out.Bounds().Dy() != 40 {
		t.Fatalf("expected 60x40 output, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestMeanStrategyIsOrderIndependent(t *testing.T) {
	engine := mustEngine(t, StrategyMean)
	a := encodeTestPNG(t, solidNRGBA(16, 16, color.NRGBA{R: 200, G: 10, B: 55, A: 255}))
	b := encodeTestPNG(t, solidNRGBA(16, 16, color.NRGBA{R: 35, G: 90, B: 155, A: 255}))
	c := encodeTestPNG(t, gradientNRGBA(16, 16))

	first, err := engine.Blend(context.Background(), [][]byte{a, b, c})
	if err != nil {
		t.Fatalf("blend original order: %v", err)
	}
	second, err := engine.Blend(context.Background(), [][]byte{c, b, a})
	if err != nil {
		t.Fatalf("blend permuted order: %v", err)
	}

	if delta := maxChannelDelta(imaging.Clone(first), imaging.Clone(second)); delta != 0 {
		t.Fatalf("expected permutation-identical output, max delta %d", delta)
	}
}

func TestStrategiesAgreeWithinTolerance(t *testing.T) {
	sources := [][]byte{
		encodeTestPNG(t, solidNRGBA(48, 48, color.NRGBA{R: 10, G: 100, B: 30, A: 255})),
		encodeTestPNG(t, solidNRGBA(48, 48, color.NRGBA{R: 20, G: 50, B: 200, A: 255})),
		encodeTestPNG(t, solidNRGBA(48, 48, color.NRGBA{R: 30, G: 60, B: 100, A: 255})),
	}

	mean, err := mustEngine(t, StrategyMean).Blend(context.Background(), sources)
	if err != nil {
		t.Fatalf("mean blend: %v", err)
	}
	incremental, err := mustEngine(t, StrategyIncremental).Blend(context.Background(), sources)
	if err != nil {
		t.Fatalf("incremental blend: %v", err)
	}

	if delta := maxChannelDelta(imaging.Clone(mean), imaging.Clone(incremental)); delta > 2 {
		t.Fatalf("expected strategies within 2 intensity levels, max delta %d", delta)
	}
}

func BenchmarkBlendMean(b *testing.B) {
	engine, err := NewEngine(StrategyMean)
	if err != nil {
		b.Fatalf("new engine: %v", err)
	}

	sources := make([][]byte, 5)
	for i := range sources {
		img := gradientNRGBA(640, 480)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			b.Fatalf("encode source png: %v", err)
		}
		sources[i] = buf.Bytes()
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Blend(context.Background(), sources); err != nil {
			b.Fatalf("blend: %v", err)
		}
	}
}

func mustEngine(t *testing.T, strategy Strategy) Engine {
	t.Helper()

	engine, err := NewEngine(strategy)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func gradientNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}
	return img
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodeTestPNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func maxChannelDelta(a, b *image.NRGBA) int {
	if len(a.Pix) != len(b.Pix) {
		return 255
	}
	max := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}
