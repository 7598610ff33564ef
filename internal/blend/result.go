package blend

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders used by Result and the engines
	_ "image/png"
	"os"

	_ "golang.org/x/image/webp"
)

// ErrUnsupportedResult marks a blend result whose shape could not be
// coerced into a decoded image.
var ErrUnsupportedResult = errors.New("could not interpret blend result as an image")

// Result is the tagged union of shapes a blending component may produce:
// an already decoded image, raw encoded bytes, or a path to an encoded
// file on disk. Exactly one field is expected to be set; when several are,
// the decoded form wins, then bytes, then the path.
type Result struct {
	Image image.Image
	Data  []byte
	Path  string
}

// Decode coerces the result into a single decoded image.
func (r Result) Decode() (image.Image, error) {
	if r.Image != nil {
		return r.Image, nil
	}
	if len(r.Data) > 0 {
		img, _, err := image.Decode(bytes.NewReader(r.Data))
		if err != nil {
			return nil, fmt.Errorf("decode result bytes: %w", err)
		}
		return img, nil
	}
	if r.Path != "" {
		f, err := os.Open(r.Path)
		if err != nil {
			return nil, fmt.Errorf("open result file %s: %w", r.Path, err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode result file %s: %w", r.Path, err)
		}
		return img, nil
	}
	return nil, ErrUnsupportedResult
}
