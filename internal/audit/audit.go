package audit

import (
	"context"

	"github.com/anandupg/Lyvo-Backend-sub001/pkg/log"
)

// Audit actions for the chat service.
const (
	ActionCreateSession = "session.create"
	ActionSetStatus     = "session.set_status"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, bookingID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldBookingID, bookingID).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, bookingID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldBookingID, bookingID).
		Str(FieldDetail, detail).
		Msg(msg)
}
