package mq

import "context"

// ProfileImageAssets holds the committed asset id of each size.
type ProfileImageAssets struct {
	Preview  string `json:"preview"`
	Complete string `json:"complete"`
}

// ProfileImageUpdatedEvent is published once an update cycle commits its asset ids.
// Consumers define their own matching struct; the contract is the JSON schema.
type ProfileImageUpdatedEvent struct {
	UserID    string             `json:"user_id"`
	Assets    ProfileImageAssets `json:"assets"`
	Timestamp int64              `json:"timestamp"`
}

// ProfileEventPublisher abstracts the producer for profile-image-updated events.
type ProfileEventPublisher interface {
	PublishProfileImageUpdated(ctx context.Context, event *ProfileImageUpdatedEvent) error
	Close() error
}
