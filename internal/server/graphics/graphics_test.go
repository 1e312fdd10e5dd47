package graphics

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestValidateBitmapIcon_AcceptsAllowedSquareSizes(t *testing.T) {
	for _, size := range models.BitmapIconSizes {
		got, err := ValidateBitmapIcon(pngBytes(t, size, size), nil)
		require.NoError(t, err)
		assert.Equal(t, size, got)
	}
}

func TestValidateBitmapIcon_RejectsNonSquare(t *testing.T) {
	_, err := ValidateBitmapIcon(pngBytes(t, 32, 16), nil)
	var bad *common.BadIconError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, models.MediaTypePNG, bad.MediaType)
}

func TestValidateBitmapIcon_RejectsDisallowedSize(t *testing.T) {
	_, err := ValidateBitmapIcon(pngBytes(t, 48, 48), nil)
	var bad *common.BadIconError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, 48, bad.Size)
}

func TestValidateBitmapIcon_ExpectedSizeMismatch(t *testing.T) {
	expected := 16
	_, err := ValidateBitmapIcon(pngBytes(t, 32, 32), &expected)
	var bad *common.BadIconError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, 16, bad.Size)
}

func TestValidateBitmapIcon_RejectsGarbage(t *testing.T) {
	_, err := ValidateBitmapIcon([]byte("not a png"), nil)
	var bad *common.BadIconError
	require.ErrorAs(t, err, &bad)
}

func TestValidateVectorIcon(t *testing.T) {
	require.NoError(t, ValidateVectorIcon([]byte{0x6e, 0x63, 0x69, 0x66, 0x01, 0x02}))

	err := ValidateVectorIcon([]byte("png..."))
	var bad *common.BadIconError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, models.MediaTypeHVIF, bad.MediaType)
}

func TestValidateScreenshot(t *testing.T) {
	w, h, err := ValidateScreenshot(pngBytes(t, 640, 480), 1500)
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	_, _, err = ValidateScreenshot(pngBytes(t, 2000, 100), 1500)
	var bad *common.BadScreenshotError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, 2000, bad.Width)
}

func TestThumbnail_DownscalesPreservingAspect(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 800, 400), 320, 320)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 160, cfg.Height)
}

func TestRenderPlaceholder(t *testing.T) {
	out, err := RenderPlaceholder(32)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 32, cfg.Height)

	_, err = RenderPlaceholder(0)
	assert.Error(t, err)
}
