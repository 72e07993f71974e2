package pubsub

import "fmt"

// Channel naming conventions: {domain}:{scope}:{id}:{event}.
const (
	ChannelProfileImageState = "profile:user:%s:image_state"
	ChannelCallParticipants  = "call:conversation:%s:participants"
)

// Event types published on the profile image channel.
const (
	EventImageStateChanged   = "image_state_changed"
	EventProfileStateChanged = "profile_state_changed"
)

// Event types published on the call participants channel.
const (
	EventParticipantsChanged = "participants_changed"
	EventConnectionChanged   = "connection_changed"
)

// ProfileImageStateChannel returns the channel carrying state changes of a user's profile image.
func ProfileImageStateChannel(userID string) string {
	return fmt.Sprintf(ChannelProfileImageState, userID)
}

// CallParticipantsChannel returns the channel carrying participant list changes of a call.
func CallParticipantsChannel(conversationID string) string {
	return fmt.Sprintf(ChannelCallParticipants, conversationID)
}

// ImageStatePayload is sent when one image size changes phase.
type ImageStatePayload struct {
	UserID string `json:"user_id"`
	Size   string `json:"size"`
	From   string `json:"from"`
	To     string `json:"to"`
	Error  string `json:"error,omitempty"`
}

// ProfileStatePayload is sent when the aggregate profile update changes phase.
type ProfileStatePayload struct {
	UserID string `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Error  string `json:"error,omitempty"`
}
