package domain

import "time"

// Profile is the self user's profile image record.
type Profile struct {
	UserID          string
	PreviewAssetID  string
	CompleteAssetID string
	OriginalImage   []byte
	PreviewImage    []byte
	CompleteImage   []byte
	UpdatedAt       time.Time
}

// AssetID returns the committed asset id for size.
func (p *Profile) AssetID(size ImageSize) string {
	switch size {
	case ImageSizePreview:
		return p.PreviewAssetID
	case ImageSizeComplete:
		return p.CompleteAssetID
	default:
		return ""
	}
}

// ImageData returns the locally cached resized bytes for size.
func (p *Profile) ImageData(size ImageSize) []byte {
	switch size {
	case ImageSizePreview:
		return p.PreviewImage
	case ImageSizeComplete:
		return p.CompleteImage
	default:
		return nil
	}
}

// SetImageData caches resized bytes for size.
func (p *Profile) SetImageData(size ImageSize, data []byte) {
	switch size {
	case ImageSizePreview:
		p.PreviewImage = data
	case ImageSizeComplete:
		p.CompleteImage = data
	}
}

// HasAssetIDs reports whether every size has a committed asset id.
func (p *Profile) HasAssetIDs() bool {
	for _, size := range ImageSizes() {
		if p.AssetID(size) == "" {
			return false
		}
	}
	return true
}

// HasCachedImages reports whether every size has resized bytes cached.
func (p *Profile) HasCachedImages() bool {
	for _, size := range ImageSizes() {
		if len(p.ImageData(size)) == 0 {
			return false
		}
	}
	return true
}

// ImageStatusResponse is the HTTP view of the coordinator state.
type ImageStatusResponse struct {
	Profile         string            `json:"profile"`
	Images          map[string]string `json:"images"`
	PreviewAssetID  string            `json:"preview_asset_id,omitempty"`
	CompleteAssetID string            `json:"complete_asset_id,omitempty"`
}

// PreprocessedImagesRequest carries already resized images, base64 encoded in JSON.
type PreprocessedImagesRequest struct {
	Preview  []byte `json:"preview" binding:"required"`
	Complete []byte `json:"complete" binding:"required"`
}
