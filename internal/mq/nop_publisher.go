package mq

import "context"

// NopPublisher drops events. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishProfileImageUpdated(context.Context, *ProfileImageUpdatedEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
