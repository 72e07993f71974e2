package participant

import (
	"context"

	"github.com/google/uuid"

	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/pubsub"
)

// ParticipantsChangedPayload is published on the call participants channel.
type ParticipantsChangedPayload struct {
	ConversationID string    `json:"conversation_id"`
	Members        []Member  `json:"members"`
	Change         ChangeSet `json:"change"`
}

// PubSubObserver publishes participant changes through pkg/pubsub.
type PubSubObserver struct {
	publisher pubsub.Publisher
}

var _ Observer = (*PubSubObserver)(nil)

func NewPubSubObserver(publisher pubsub.Publisher) *PubSubObserver {
	return &PubSubObserver{publisher: publisher}
}

func (o *PubSubObserver) ParticipantsChanged(ctx context.Context, conversationID uuid.UUID, members []Member, change ChangeSet) {
	l := pkglog.Ctx(ctx)
	id := conversationID.String()

	event, err := pubsub.NewEvent(pubsub.EventParticipantsChanged, id, ParticipantsChangedPayload{
		ConversationID: id,
		Members:        members,
		Change:         change,
	})
	if err != nil {
		l.Error().Err(err).Str(pkglog.FieldConversationID, id).Msg("failed to build participants event")
		return
	}

	if err := o.publisher.Publish(ctx, pubsub.CallParticipantsChannel(id), event); err != nil {
		l.Error().Err(err).Str(pkglog.FieldConversationID, id).Msg("failed to publish participants event")
		return
	}

	l.Debug().
		Str(pkglog.FieldConversationID, id).
		Int("inserted", len(change.Inserted)).
		Int("deleted", len(change.Deleted)).
		Int("updated", len(change.Updated)).
		Int("moved", len(change.Moved)).
		Msg("participants changed")
}
