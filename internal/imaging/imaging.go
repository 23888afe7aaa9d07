// Package imaging prepares uploaded face images for the recognizers.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	jpegQuality = 90

	// maxPixels caps the pixel count of an image that gets decoded, about 8000x6000.
	// Decoding allocates roughly 4 bytes per pixel regardless of the compressed size.
	maxPixels = 50_000_000
)

// ErrImageTooLarge is returned for images whose declared dimensions exceed maxPixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// Normalize returns an image the recognizers accept: JPEG or PNG no larger than maxSize
// in either dimension. Images already within limits are returned unchanged, other formats
// and oversized images are re-encoded as JPEG. Data that does not decode as an image is
// returned as is so the recognizer reports the problem. maxSize <= 0 disables resizing.
func Normalize(data []byte, maxSize int) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, nil //nolint:nilerr // undecodable input is left to the recognizer
	}

	fits := maxSize <= 0 || (cfg.Width <= maxSize && cfg.Height <= maxSize)
	if fits && (format == "jpeg" || format == "png") {
		return data, nil
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, nil //nolint:nilerr // truncated body, same as above
	}
	if !fits {
		img = resize(img, maxSize)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// resize scales img to fit within maxSize while keeping aspect ratio.
func resize(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
