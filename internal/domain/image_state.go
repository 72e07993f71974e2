package domain

import (
	"bytes"
	"fmt"
)

// ImagePhase is the tag of an ImageState.
type ImagePhase int

const (
	ImageReady ImagePhase = iota
	ImagePreprocessing
	ImagePendingUpload
	ImageUploading
	ImageUploaded
	ImageFailed
)

var imagePhaseNames = map[ImagePhase]string{
	ImageReady:         "ready",
	ImagePreprocessing: "preprocessing",
	ImagePendingUpload: "pending_upload",
	ImageUploading:     "uploading",
	ImageUploaded:      "uploaded",
	ImageFailed:        "failed",
}

func (p ImagePhase) String() string {
	if name, ok := imagePhaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("image_phase(%d)", int(p))
}

// imageTransitions lists the phases reachable from each phase.
var imageTransitions = map[ImagePhase][]ImagePhase{
	ImageReady:         {ImageFailed, ImagePreprocessing, ImagePendingUpload},
	ImagePreprocessing: {ImageFailed, ImagePendingUpload},
	ImagePendingUpload: {ImageFailed, ImageUploading},
	ImageUploading:     {ImageFailed, ImageUploaded},
	ImageUploaded:      {ImageFailed, ImageReady},
	ImageFailed:        {ImageReady},
}

// ImageState is the upload lifecycle of a single image size.
// Data is set only for PendingUpload, AssetID only for Uploaded and Err only for Failed.
type ImageState struct {
	Phase   ImagePhase
	Data    []byte
	AssetID string
	Err     error
}

func ReadyImage() ImageState         { return ImageState{Phase: ImageReady} }
func PreprocessingImage() ImageState { return ImageState{Phase: ImagePreprocessing} }
func UploadingImage() ImageState     { return ImageState{Phase: ImageUploading} }

func PendingUploadImage(data []byte) ImageState {
	return ImageState{Phase: ImagePendingUpload, Data: data}
}

func UploadedImage(assetID string) ImageState {
	return ImageState{Phase: ImageUploaded, AssetID: assetID}
}

func FailedImage(err error) ImageState {
	return ImageState{Phase: ImageFailed, Err: err}
}

// CanTransition reports whether next is a legal successor of s.
func (s ImageState) CanTransition(next ImageState) bool {
	for _, p := range imageTransitions[s.Phase] {
		if p == next.Phase {
			return true
		}
	}
	return false
}

// Equal compares the tag and its payload.
func (s ImageState) Equal(other ImageState) bool {
	return s.Phase == other.Phase &&
		bytes.Equal(s.Data, other.Data) &&
		s.AssetID == other.AssetID &&
		sameError(s.Err, other.Err)
}

func (s ImageState) String() string {
	switch s.Phase {
	case ImagePendingUpload:
		return fmt.Sprintf("%s(%d bytes)", s.Phase, len(s.Data))
	case ImageUploaded:
		return fmt.Sprintf("%s(%s)", s.Phase, s.AssetID)
	case ImageFailed:
		return fmt.Sprintf("%s(%v)", s.Phase, s.Err)
	default:
		return s.Phase.String()
	}
}
