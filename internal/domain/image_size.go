package domain

import "fmt"

// ImageSize identifies one resized variant of a profile image.
type ImageSize string

const (
	ImageSizePreview  ImageSize = "preview"
	ImageSizeComplete ImageSize = "complete"
)

// ImageSizes returns every size in processing order.
func ImageSizes() []ImageSize {
	return []ImageSize{ImageSizePreview, ImageSizeComplete}
}

// ParseImageSize converts a path or config value into an ImageSize.
func ParseImageSize(s string) (ImageSize, error) {
	switch ImageSize(s) {
	case ImageSizePreview, ImageSizeComplete:
		return ImageSize(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownImageSize, s)
	}
}

func (s ImageSize) String() string {
	return string(s)
}
