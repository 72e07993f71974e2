package domain

import (
	"bytes"
	"fmt"
)

// ProfilePhase is the tag of a ProfileUpdateState.
type ProfilePhase int

const (
	ProfileReady ProfilePhase = iota
	ProfilePreprocess
	ProfileUpdate
	ProfileFailed
)

var profilePhaseNames = map[ProfilePhase]string{
	ProfileReady:      "ready",
	ProfilePreprocess: "preprocess",
	ProfileUpdate:     "update",
	ProfileFailed:     "failed",
}

func (p ProfilePhase) String() string {
	if name, ok := profilePhaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("profile_phase(%d)", int(p))
}

var profileTransitions = map[ProfilePhase][]ProfilePhase{
	ProfileReady:      {ProfileFailed, ProfilePreprocess, ProfileUpdate},
	ProfilePreprocess: {ProfileFailed, ProfileUpdate},
	ProfileUpdate:     {ProfileFailed, ProfileReady},
	ProfileFailed:     {ProfileReady},
}

// ProfileUpdateState is the aggregate lifecycle of one profile image update.
type ProfileUpdateState struct {
	Phase           ProfilePhase
	Original        []byte
	PreviewAssetID  string
	CompleteAssetID string
	Err             error
}

func ReadyProfile() ProfileUpdateState { return ProfileUpdateState{Phase: ProfileReady} }

func PreprocessProfile(original []byte) ProfileUpdateState {
	return ProfileUpdateState{Phase: ProfilePreprocess, Original: original}
}

func UpdateProfile(previewAssetID, completeAssetID string) ProfileUpdateState {
	return ProfileUpdateState{
		Phase:           ProfileUpdate,
		PreviewAssetID:  previewAssetID,
		CompleteAssetID: completeAssetID,
	}
}

func FailedProfile(err error) ProfileUpdateState {
	return ProfileUpdateState{Phase: ProfileFailed, Err: err}
}

// CanTransition reports whether next is a legal successor of s.
func (s ProfileUpdateState) CanTransition(next ProfileUpdateState) bool {
	for _, p := range profileTransitions[s.Phase] {
		if p == next.Phase {
			return true
		}
	}
	return false
}

func (s ProfileUpdateState) Equal(other ProfileUpdateState) bool {
	return s.Phase == other.Phase &&
		bytes.Equal(s.Original, other.Original) &&
		s.PreviewAssetID == other.PreviewAssetID &&
		s.CompleteAssetID == other.CompleteAssetID &&
		sameError(s.Err, other.Err)
}

func (s ProfileUpdateState) String() string {
	switch s.Phase {
	case ProfilePreprocess:
		return fmt.Sprintf("%s(%d bytes)", s.Phase, len(s.Original))
	case ProfileUpdate:
		return fmt.Sprintf("%s(%s, %s)", s.Phase, s.PreviewAssetID, s.CompleteAssetID)
	case ProfileFailed:
		return fmt.Sprintf("%s(%v)", s.Phase, s.Err)
	default:
		return s.Phase.String()
	}
}
