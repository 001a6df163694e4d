package logging

import (
	"context"
	"log/slog"

	"quiltrender/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the structured logging key for render job identifiers.
	FieldJobID = "job_id"
	// FieldFrame is the structured logging key for the animation frame.
	FieldFrame = "frame"
	// FieldView is the structured logging key for the view index within a quilt.
	FieldView = "view"
	// FieldCorrelationID is the structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType names the event a line records, e.g. quilt_written.
	FieldEventType = "event_type"
	// FieldErrorHint is the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldErrorCode is the short error classification, see services.Kind.
	FieldErrorCode = "error_code"
	// FieldErrorDetailPath points at a file holding the full error detail.
	FieldErrorDetailPath = "error_detail_path"
	// FieldDecisionType labels decision log lines.
	FieldDecisionType = "decision_type"

	FieldProgressPercent = "progress_percent"
	FieldProgressStage   = "progress_stage"
	FieldProgressMessage = "progress_message"
	FieldProgressETA     = "progress_eta"
)

// ContextFields extracts standardized slog attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if frame, ok := services.FrameFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldFrame, frame))
	}
	if view, ok := services.ViewFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldView, view))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
