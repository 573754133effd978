// Package uploads stores formation cover images in S3.
package uploads

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/aura-training/backend/internal/models"
)

// Cover images are scaled down to fit this box, keeping their aspect ratio.
const (
	CoverWidth  = 1200
	CoverHeight = 675
)

// PrepareCover decodes an uploaded image, applies EXIF orientation, shrinks it to fit the cover
// box and re-encodes it in its original format. Images already inside the box are not enlarged.
func PrepareCover(r io.Reader, ext string) ([]byte, error) {
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image type %s", models.ErrValidation, ext)
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %s", models.ErrValidation, err.Error())
	}
	if exceeds(img.Bounds()) {
		img = imaging.Fit(img, CoverWidth, CoverHeight, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func exceeds(b image.Rectangle) bool {
	return b.Dx() > CoverWidth || b.Dy() > CoverHeight
}
