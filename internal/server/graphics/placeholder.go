package graphics

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// RenderPlaceholder draws the built-in generic package icon at the given
// pixel size: a neutral box glyph used when a package has no icon source.
func RenderPlaceholder(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %d", size)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))

	box := color.RGBA{R: 0xb0, G: 0xb4, B: 0xba, A: 0xff}
	lid := color.RGBA{R: 0x8e, G: 0x93, B: 0x9a, A: 0xff}

	// Body fills the lower three quarters, lid the band above it.
	inset := size / 8
	lidTop := size / 4
	bodyTop := size / 2

	draw.Draw(img, image.Rect(inset, bodyTop, size-inset, size-inset), &image.Uniform{C: box}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(inset, lidTop, size-inset, bodyTop), &image.Uniform{C: lid}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
