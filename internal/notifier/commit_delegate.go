package notifier

import (
	"context"
	"time"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/audit"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	"github.com/weiawesome/wes-io-live/profile-image-service/internal/mq"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// CommitDelegate announces committed and failed update cycles.
// It ignores per-size transitions.
type CommitDelegate struct {
	publisher mq.ProfileEventPublisher
	userID    string
	now       func() time.Time
}

func NewCommitDelegate(publisher mq.ProfileEventPublisher, userID string) *CommitDelegate {
	return &CommitDelegate{publisher: publisher, userID: userID, now: time.Now}
}

func (d *CommitDelegate) ImageStateChanged(context.Context, domain.ImageSize, domain.ImageState, domain.ImageState) {
}

func (d *CommitDelegate) ProfileStateChanged(ctx context.Context, from, to domain.ProfileUpdateState) {
	switch to.Phase {
	case domain.ProfileUpdate:
		audit.LogWithDetail(ctx, audit.ActionCommitted, d.userID,
			to.PreviewAssetID+","+to.CompleteAssetID, "profile image committed")

		event := &mq.ProfileImageUpdatedEvent{
			UserID: d.userID,
			Assets: mq.ProfileImageAssets{
				Preview:  to.PreviewAssetID,
				Complete: to.CompleteAssetID,
			},
			Timestamp: d.now().Unix(),
		}
		if err := d.publisher.PublishProfileImageUpdated(ctx, event); err != nil {
			l := pkglog.Ctx(ctx)
			l.Error().Err(err).Str(pkglog.FieldUserID, d.userID).Msg("failed to publish profile image updated event")
		}
	case domain.ProfileFailed:
		audit.LogWithDetail(ctx, audit.ActionUpdateFailed, d.userID, errString(to.Err), "profile image update failed")
	}
}
