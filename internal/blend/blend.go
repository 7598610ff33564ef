package blend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	bildblend "github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
)

// Strategy selects how the batch average is computed. Both strategies
// produce visually equivalent output; they differ only in intermediate
// rounding.
type Strategy string

const (
	// StrategyMean is the canonical strategy: per-channel float64
	// accumulation over the whole batch, divided by the count, rounded
	// half away from zero.
	StrategyMean Strategy = "mean"
	// StrategyIncremental folds the batch pairwise, the k-th image
	// entering an interpolated blend with weight 1/k.
	StrategyIncremental Strategy = "incremental"
)

var (
	ErrEmptyBatch      = errors.New("no images to blend")
	ErrUnknownStrategy = errors.New("unknown blend strategy")
)

// Engine computes the per-pixel average of a batch of encoded images.
// The first image's dimensions are authoritative; the rest are resampled
// to match before combination.
type Engine interface {
	Blend(ctx context.Context, sources [][]byte) (image.Image, error)
}

func NewEngine(strategy Strategy) (Engine, error) {
	switch strategy {
	case "":
		strategy = StrategyMean
	case StrategyMean, StrategyIncremental:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	return newEngine(strategy)
}

// average combines normalized images that already share one (width,
// height) pair and a 4-channel layout.
func average(images []*image.NRGBA, strategy Strategy) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrEmptyBatch
	}
	if strategy == StrategyIncremental {
		return incrementalAverage(images), nil
	}
	return meanAverage(images), nil
}

func meanAverage(images []*image.NRGBA) *image.NRGBA {
	first := images[0]
	out := image.NewNRGBA(image.Rect(0, 0, first.Bounds().Dx(), first.Bounds().Dy()))

	sums := make([]float64, len(first.Pix))
	for _, img := range images {
		for i, p := range img.Pix {
			sums[i] += float64(p)
		}
	}

	n := float64(len(images))
	for i, s := range sums {
		out.Pix[i] = uint8(math.Round(s / n))
	}
	return out
}

func incrementalAverage(images []*image.NRGBA) *image.NRGBA {
	var acc image.Image = images[0]
	for k := 2; k <= len(images); k++ {
		acc = bildblend.Opacity(acc, images[k-1], 1.0/float64(k))
	}
	return imaging.Clone(acc)
}
