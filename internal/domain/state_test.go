package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allImagePhases() []ImageState {
	return []ImageState{
		ReadyImage(),
		PreprocessingImage(),
		PendingUploadImage([]byte("data")),
		UploadingImage(),
		UploadedImage("asset"),
		FailedImage(errors.New("boom")),
	}
}

func TestImageState_CanTransition(t *testing.T) {
	allowed := map[ImagePhase][]ImagePhase{
		ImageReady:         {ImageFailed, ImagePreprocessing, ImagePendingUpload},
		ImagePreprocessing: {ImageFailed, ImagePendingUpload},
		ImagePendingUpload: {ImageFailed, ImageUploading},
		ImageUploading:     {ImageFailed, ImageUploaded},
		ImageUploaded:      {ImageFailed, ImageReady},
		ImageFailed:        {ImageReady},
	}

	for _, from := range allImagePhases() {
		for _, to := range allImagePhases() {
			t.Run(fmt.Sprintf("%s to %s", from.Phase, to.Phase), func(t *testing.T) {
				assert.Equal(t, contains(allowed[from.Phase], to.Phase), from.CanTransition(to))
			})
		}
	}
}

func TestProfileUpdateState_CanTransition(t *testing.T) {
	states := []ProfileUpdateState{
		ReadyProfile(),
		PreprocessProfile([]byte("orig")),
		UpdateProfile("p", "c"),
		FailedProfile(ErrPreprocessingFailed),
	}
	allowed := map[ProfilePhase][]ProfilePhase{
		ProfileReady:      {ProfileFailed, ProfilePreprocess, ProfileUpdate},
		ProfilePreprocess: {ProfileFailed, ProfileUpdate},
		ProfileUpdate:     {ProfileFailed, ProfileReady},
		ProfileFailed:     {ProfileReady},
	}

	for _, from := range states {
		for _, to := range states {
			t.Run(fmt.Sprintf("%s to %s", from.Phase, to.Phase), func(t *testing.T) {
				assert.Equal(t, contains(allowed[from.Phase], to.Phase), from.CanTransition(to))
			})
		}
	}
}

func TestImageState_Equal(t *testing.T) {
	cause := errors.New("network down")

	assert.True(t, PendingUploadImage([]byte("a")).Equal(PendingUploadImage([]byte("a"))))
	assert.False(t, PendingUploadImage([]byte("a")).Equal(PendingUploadImage([]byte("b"))))
	assert.True(t, UploadedImage("id1").Equal(UploadedImage("id1")))
	assert.False(t, UploadedImage("id1").Equal(UploadedImage("id2")))
	assert.False(t, ReadyImage().Equal(PreprocessingImage()))
	assert.True(t, FailedImage(cause).Equal(FailedImage(cause)))
	assert.False(t, FailedImage(cause).Equal(FailedImage(nil)))
}

func TestImageState_String(t *testing.T) {
	assert.Equal(t, "ready", ReadyImage().String())
	assert.Equal(t, "pending_upload(3 bytes)", PendingUploadImage([]byte("abc")).String())
	assert.Equal(t, "uploaded(id1)", UploadedImage("id1").String())
	assert.Equal(t, "update(p, c)", UpdateProfile("p", "c").String())
}

func TestUploadFailedError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(NewUploadFailedError(cause))

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "upload failed: connection reset")

	var target *UploadFailedError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, cause, target.Cause)
}

func TestParseImageSize(t *testing.T) {
	size, err := ParseImageSize("preview")
	assert.NoError(t, err)
	assert.Equal(t, ImageSizePreview, size)

	_, err = ParseImageSize("thumbnail")
	assert.ErrorIs(t, err, ErrUnknownImageSize)
}

func TestProfile_Helpers(t *testing.T) {
	p := &Profile{UserID: "u1"}
	assert.False(t, p.HasCachedImages())
	assert.False(t, p.HasAssetIDs())

	p.SetImageData(ImageSizePreview, []byte("p"))
	p.SetImageData(ImageSizeComplete, []byte("c"))
	p.PreviewAssetID = "id1"

	assert.True(t, p.HasCachedImages())
	assert.False(t, p.HasAssetIDs())
	assert.Equal(t, []byte("c"), p.ImageData(ImageSizeComplete))
	assert.Equal(t, "id1", p.AssetID(ImageSizePreview))
}

func contains[T comparable](xs []T, x T) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
