//go:build govips && cgo

package blend

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// govipsEngine uses libvips for decoding and Lanczos3 resampling; the
// accumulation itself stays in the shared Go core.
type govipsEngine struct {
	strategy Strategy
}

func (e govipsEngine) Blend(ctx context.Context, sources [][]byte) (image.Image, error) {
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

		normalized, err := e.normalize(src, i, refW, refH)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			refW, refH = normalized.Bounds().Dx(), normalized.Bounds().Dy()
		}
		images = append(images, normalized)
	}

	return average(images, e.strategy)
}

func (e govipsEngine) normalize(src []byte, index, refW, refH int) (*image.NRGBA, error) {
	ref, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return nil, fmt.Errorf("decode source image %d: %w", index, err)
	}
	defer ref.Close()

	if index > 0 && (ref.Width() != refW || ref.Height() != refH) {
		hscale := float64(refW) / float64(ref.Width())
		vscale := float64(refH) / float64(ref.Height())
		if err := ref.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
			return nil, fmt.Errorf("resize source image %d: %w", index, err)
		}
	}

	data, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("export source image %d: %w", index, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reload source image %d: %w", index, err)
	}

	normalized := imaging.Clone(decoded)
	// vips scales can land one pixel off the target; force an exact fit.
	if index > 0 && (normalized.Bounds().Dx() != refW || normalized.Bounds().Dy() != refH) {
		normalized = imaging.Resize(normalized, refW, refH, imaging.Lanczos)
	}
	return normalized, nil
}
