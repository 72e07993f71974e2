package domain

import "time"

// ProfileImageModel is the GORM model for the profile_images table.
type ProfileImageModel struct {
	UserID          string    `gorm:"type:varchar(36);primaryKey"`
	PreviewAssetID  string    `gorm:"type:varchar(255)"`
	CompleteAssetID string    `gorm:"type:varchar(255)"`
	OriginalImage   []byte
	PreviewImage    []byte
	CompleteImage   []byte
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ProfileImageModel.
func (ProfileImageModel) TableName() string {
	return "profile_images"
}

// ToDomain converts ProfileImageModel to domain Profile.
func (m *ProfileImageModel) ToDomain() *Profile {
	return &Profile{
		UserID:          m.UserID,
		PreviewAssetID:  m.PreviewAssetID,
		CompleteAssetID: m.CompleteAssetID,
		OriginalImage:   m.OriginalImage,
		PreviewImage:    m.PreviewImage,
		CompleteImage:   m.CompleteImage,
		UpdatedAt:       m.UpdatedAt,
	}
}
