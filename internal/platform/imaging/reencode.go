package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	// Register decoders for the upload formats accepted by the admin form.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultQuality is the fixed JPEG quality used for re-encoded product images.
const DefaultQuality = 80

// ReEncodeJPEG decodes the uploaded image, draws it onto an opaque white
// canvas at its natural dimensions, and re-encodes the result as JPEG at the
// given quality. A non-positive quality falls back to DefaultQuality.
func ReEncodeJPEG(data []byte, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("imaging: empty image data")
	}
	if quality <= 0 {
		quality = DefaultQuality
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode image: %w", err)
	}

	// JPEG has no alpha channel; flatten transparent uploads onto white so
	// PNG and GIF sources keep a clean background.
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}
