package helpers

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/pkg/apperror"
)

const (
	DefaultImageSize = 200
	// DefaultMaxSide bounds each declared source dimension; decoders allocate the full pixel buffer up front.
	DefaultMaxSide = 4096
)

// ImageProcessor stretches uploads onto a fixed square canvas and re-encodes them in their source format.
type ImageProcessor struct {
	Size    int
	MaxSide int
}

func NewImageProcessor(size int) *ImageProcessor {
	if size <= 0 {
		size = DefaultImageSize
	}
	return &ImageProcessor{Size: size, MaxSide: DefaultMaxSide}
}

// Process decodes raw, resizes it to Size x Size with bicubic interpolation and returns a new record.
func (p *ImageProcessor) Process(raw []byte, contentType, fileName string) (entity.ProfileImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return entity.ProfileImage{}, apperror.Wrap(apperror.KindInvalidImage, "Invalid image file: "+fileName, err)
	}
	maxSide := p.MaxSide
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxSide || cfg.Height > maxSide {
		return entity.ProfileImage{}, apperror.New(apperror.KindInvalidImage,
			fmt.Sprintf("Invalid image file: %s (%dx%d exceeds %dx%d)", fileName, cfg.Width, cfg.Height, maxSide, maxSide))
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.ProfileImage{}, apperror.Wrap(apperror.KindInvalidImage, "Invalid image file: "+fileName, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, p.Size, p.Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := encode(&buf, dst, format); err != nil {
		return entity.ProfileImage{}, apperror.Wrap(apperror.KindInvalidImage, "Invalid image file: "+fileName, err)
	}

	if contentType == "" {
		contentType = "image/" + format
	}
	return entity.ProfileImage{
		ID:          uuid.New(),
		Name:        fileName,
		ImageBytes:  buf.Bytes(),
		ContentType: contentType,
	}, nil
}

func encode(buf *bytes.Buffer, img image.Image, format string) error {
	switch format {
	case "jpeg":
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	case "png":
		return png.Encode(buf, img)
	case "gif":
		return gif.Encode(buf, img, nil)
	case "bmp":
		return bmp.Encode(buf, img)
	case "tiff":
		return tiff.Encode(buf, img, nil)
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}
