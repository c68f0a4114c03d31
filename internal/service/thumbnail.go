package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// ThumbnailMaxWidth and ThumbnailMaxHeight bound portfolio thumbnails.
	ThumbnailMaxWidth  = 400
	ThumbnailMaxHeight = 400

	// ThumbnailJPEGQuality is the encoder quality for thumbnails.
	ThumbnailJPEGQuality = 85
)

// ThumbnailProcessor creates the small previews shown on profile pages.
type ThumbnailProcessor interface {
	// GenerateThumbnail returns a JPEG fitting within maxWidth x maxHeight,
	// plus the original width and height.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates a thumbnail processor backed by imaging.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{}
}

// GenerateThumbnail decodes the photo, honouring EXIF orientation, and
// fits it inside the bounds without changing the aspect ratio.
func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJPEGQuality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// imageBounds reports the dimensions without decoding the whole image.
func imageBounds(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
