package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// Audit actions for profile-image-service.
const (
	ActionUpdateRequested       = "profile_image.update_requested"
	ActionPreprocessedSubmitted = "profile_image.preprocessed_submitted"
	ActionReuploadRequested     = "profile_image.reupload_requested"
	ActionIngested              = "profile_image.ingested"
	ActionCommitted             = "profile_image.committed"
	ActionUpdateFailed          = "profile_image.update_failed"
	ActionParticipantsReplaced  = "call.participants_replaced"
	ActionParticipantsRemoved   = "call.participants_removed"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}

// LogTarget emits an audit log entry about targetID acted on by userID.
func LogTarget(ctx context.Context, action string, userID string, targetID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldTargetID, targetID).
		Msg(msg)
}
