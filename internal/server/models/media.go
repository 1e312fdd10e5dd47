package models

import "time"

// Media types accepted for icon sources. HVIF is the vector format and the
// preferred source because it rasterizes at any size.
const (
	MediaTypePNG  = "image/png"
	MediaTypeHVIF = "application/x-vnd.haiku-icon"
)

// BitmapIconSizes is the fixed allowed size set for bitmap icon sources.
var BitmapIconSizes = []int{16, 32, 64}

// IsAllowedBitmapIconSize reports whether size is one of BitmapIconSizes.
func IsAllowedBitmapIconSize(size int) bool {
	for _, s := range BitmapIconSizes {
		if s == size {
			return true
		}
	}
	return false
}

// IconRecord is one stored icon source for a supplement, keyed by
// (media type, size). Vector records carry no size. ModifyTimestamp is used
// for cache busting.
type IconRecord struct {
	ID              int64
	SupplementID    int64
	MediaType       string
	Size            *int
	Data            []byte
	ModifyTimestamp time.Time
}

// ScreenshotRecord is one stored screenshot, deduplicated by content hash
// within its supplement. Code is the stable external identifier; Ordering
// drives display order.
type ScreenshotRecord struct {
	ID              int64
	SupplementID    int64
	Code            string
	Hash            string
	Ordering        int
	Width           int
	Height          int
	Length          int64
	Data            []byte
	CreateTimestamp time.Time
}
