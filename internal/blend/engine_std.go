//go:build !govips || !cgo

package blend

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

type stdEngine struct {
	strategy Strategy
}

func (e stdEngine) Blend(ctx context.Context, sources [][]byte) (image.Image, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyBatch
	}

	images := make([]*image.NRGBA, 0, len(sources))
	var refW, refH int
	for i, src := range sources {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		decoded, _, err := image.Decode(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("decode source image %d: %w", i, err)
		}

		normalized := imaging.Clone(decoded)
		if i == 0 {
			refW, refH = normalized.Bounds().Dx(), normalized.Bounds().Dy()
		} else if normalized.Bounds().Dx() != refW || normalized.Bounds().Dy() != refH {
			normalized = imaging.Resize(normalized, refW, refH, imaging.Lanczos)
		}
		images = append(images, normalized)
	}

	return average(images, e.strategy)
}
