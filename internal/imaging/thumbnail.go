package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for gallery thumbnails.
const DefaultThumbnailMaxDimension = 400

// Thumbnail returns a JPEG copy of h scaled so neither side exceeds maxDimension.
// Images already within bounds are re-encoded without resizing.
func Thumbnail(h Handle, maxDimension int) (Handle, error) {
	if h.IsZero() {
		return Handle{}, ErrEmptyImage
	}
	if maxDimension <= 0 {
		maxDimension = DefaultThumbnailMaxDimension
	}

	img, format, err := image.Decode(bytes.NewReader(h.Data))
	if err != nil {
		return Handle{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	newWidth, newHeight := calculateThumbnailDimensions(origWidth, origHeight, maxDimension)

	var out image.Image = img
	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 80}); err != nil {
		return Handle{}, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Str("source_format", format).
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("width", newWidth).
		Int("height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return Handle{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

func calculateThumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
