package graphics

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Thumbnail downscales PNG screenshot data to fit within maxWidth x
// maxHeight, preserving aspect ratio. Images already within bounds are
// re-encoded unchanged in size.
func Thumbnail(data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	fitted := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
