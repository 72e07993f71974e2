package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/config"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

var ErrEmptyImage = errors.New("empty image")

const (
	ModeFill = "fill"
	ModeFit  = "fit"
)

// sizeSpec holds the target dimensions for a single variant.
type sizeSpec struct {
	size   domain.ImageSize
	width  int
	height int
	mode   string
}

// ProfileImageProcessor decodes an original image and encodes each size as JPEG.
type ProfileImageProcessor struct {
	sizes       []sizeSpec
	jpegQuality int
}

var _ ImageProcessor = (*ProfileImageProcessor)(nil)

// NewProfileImageProcessor builds a processor from the processor config.
// Unknown size names and modes are rejected.
func NewProfileImageProcessor(cfg config.ProcessorConfig) (*ProfileImageProcessor, error) {
	sizes := cfg.Sizes
	if len(sizes) == 0 {
		sizes = config.DefaultSizes()
	}

	specs := make([]sizeSpec, 0, len(sizes))
	for _, s := range sizes {
		size, err := domain.ParseImageSize(s.Name)
		if err != nil {
			return nil, err
		}
		if s.Width <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("invalid dimensions for %s: %dx%d", s.Name, s.Width, s.Height)
		}

		mode := s.Mode
		if mode == "" {
			mode = ModeFill
		}
		if mode != ModeFill && mode != ModeFit {
			return nil, fmt.Errorf("invalid resize mode for %s: %s", s.Name, s.Mode)
		}

		specs = append(specs, sizeSpec{size: size, width: s.Width, height: s.Height, mode: mode})
	}

	quality := cfg.JpegQuality
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &ProfileImageProcessor{sizes: specs, jpegQuality: quality}, nil
}

// Preprocess resizes original into one JPEG payload per configured size.
func (p *ProfileImageProcessor) Preprocess(ctx context.Context, ownerID string, original []byte) (map[domain.ImageSize][]byte, error) {
	l := pkglog.Ctx(ctx)

	if len(original) == 0 {
		return nil, ErrEmptyImage
	}

	// Honour EXIF orientation from phone cameras.
	img, err := imaging.Decode(bytes.NewReader(original), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	out := make(map[domain.ImageSize][]byte, len(p.sizes))
	for _, sz := range p.sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, p.resize(img, sz), imaging.JPEG, imaging.JPEGQuality(p.jpegQuality)); err != nil {
			return nil, fmt.Errorf("encode %s: %w", sz.size, err)
		}
		out[sz.size] = buf.Bytes()

		l.Debug().
			Str(pkglog.FieldUserID, ownerID).
			Str(pkglog.FieldImageSize, sz.size.String()).
			Int("bytes", buf.Len()).
			Msg("resized profile image")
	}

	return out, nil
}

func (p *ProfileImageProcessor) resize(img image.Image, sz sizeSpec) image.Image {
	if sz.mode == ModeFit {
		b := img.Bounds()
		// Never upscale.
		if b.Dx() <= sz.width && b.Dy() <= sz.height {
			return img
		}
		return imaging.Fit(img, sz.width, sz.height, imaging.Lanczos)
	}
	// Square crop centred on the image.
	return imaging.Fill(img, sz.width, sz.height, imaging.Center, imaging.Lanczos)
}
