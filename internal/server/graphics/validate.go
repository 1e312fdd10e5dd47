// Package graphics bundles the image handling used by the catalog: icon and
// screenshot validation, HVIF rasterization, PNG optimization and
// screenshot thumbnailing.
package graphics

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// hvifMagic is the leading signature of the vector icon format ("ncif").
var hvifMagic = []byte{0x6e, 0x63, 0x69, 0x66}

// ValidateBitmapIcon checks that data is a PNG decoding to a square image
// whose side is one of the allowed bitmap icon sizes, and matches
// expectedSize when given. It returns the actual side length.
func ValidateBitmapIcon(data []byte, expectedSize *int) (int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, &common.BadIconError{
			MediaType: models.MediaTypePNG,
			Size:      sizeOrZero(expectedSize),
			Reason:    fmt.Sprintf("not decodable as png: %v", err),
		}
	}
	if cfg.Width != cfg.Height {
		return 0, &common.BadIconError{
			MediaType: models.MediaTypePNG,
			Size:      sizeOrZero(expectedSize),
			Reason:    fmt.Sprintf("not square: %dx%d", cfg.Width, cfg.Height),
		}
	}
	if !models.IsAllowedBitmapIconSize(cfg.Width) {
		return 0, &common.BadIconError{
			MediaType: models.MediaTypePNG,
			Size:      cfg.Width,
			Reason:    "side length not in the allowed set (16/32/64)",
		}
	}
	if expectedSize != nil && cfg.Width != *expectedSize {
		return 0, &common.BadIconError{
			MediaType: models.MediaTypePNG,
			Size:      *expectedSize,
			Reason:    fmt.Sprintf("expected %dpx, got %dpx", *expectedSize, cfg.Width),
		}
	}
	return cfg.Width, nil
}

// ValidateVectorIcon performs a lightweight signature check on HVIF data.
func ValidateVectorIcon(data []byte) error {
	if len(data) < len(hvifMagic) || !bytes.Equal(data[:len(hvifMagic)], hvifMagic) {
		return &common.BadIconError{
			MediaType: models.MediaTypeHVIF,
			Reason:    "missing hvif signature",
		}
	}
	return nil
}

// ValidateScreenshot checks that data is a PNG within the given maximum
// side length and returns its dimensions.
func ValidateScreenshot(data []byte, maxSide int) (width, height int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, &common.BadScreenshotError{
			MediaType: models.MediaTypePNG,
			Reason:    fmt.Sprintf("not decodable as png: %v", err),
		}
	}
	if cfg.Width > maxSide || cfg.Height > maxSide {
		return 0, 0, &common.BadScreenshotError{
			MediaType: models.MediaTypePNG,
			Width:     cfg.Width,
			Height:    cfg.Height,
			Reason:    fmt.Sprintf("exceeds maximum side length %d", maxSide),
		}
	}
	return cfg.Width, cfg.Height, nil
}

func sizeOrZero(size *int) int {
	if size == nil {
		return 0
	}
	return *size
}
