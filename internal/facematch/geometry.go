package facematch

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/patient-face-id/internal/patient"
)

// bboxArea returns the area of a pixel bbox [x1, y1, x2, y2], or 0 if malformed.
func bboxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ConvertPixelBBoxToRelative converts a pixel bbox [x1, y1, x2, y2] to a bounding box
// relative (0-1) to the image dimensions.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) patient.BoundingBox {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return patient.BoundingBox{}
	}
	return patient.BoundingBox{
		Left:   bbox[0] / float64(width),
		Top:    bbox[1] / float64(height),
		Width:  (bbox[2] - bbox[0]) / float64(width),
		Height: (bbox[3] - bbox[1]) / float64(height),
	}
}

// imageSize returns the pixel dimensions of encoded image data, or zeros if unknown.
func imageSize(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
