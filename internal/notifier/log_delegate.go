package notifier

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/internal/domain"
	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// LogDelegate writes every transition to the context logger.
type LogDelegate struct {
	userID string
}

func NewLogDelegate(userID string) *LogDelegate {
	return &LogDelegate{userID: userID}
}

func (d *LogDelegate) ImageStateChanged(ctx context.Context, size domain.ImageSize, from, to domain.ImageState) {
	l := pkglog.Ctx(ctx)
	ev := l.Debug()
	if to.Phase == domain.ImageFailed {
		ev = l.Warn().Err(to.Err)
	}
	ev.Str(pkglog.FieldUserID, d.userID).
		Str(pkglog.FieldImageSize, size.String()).
		Stringer(pkglog.FieldFrom, from).
		Stringer(pkglog.FieldTo, to).
		Msg("image state changed")
}

func (d *LogDelegate) ProfileStateChanged(ctx context.Context, from, to domain.ProfileUpdateState) {
	l := pkglog.Ctx(ctx)
	ev := l.Info()
	if to.Phase == domain.ProfileFailed {
		ev = l.Warn().Err(to.Err)
	}
	ev.Str(pkglog.FieldUserID, d.userID).
		Stringer(pkglog.FieldFrom, from).
		Stringer(pkglog.FieldTo, to).
		Msg("profile state changed")
}
