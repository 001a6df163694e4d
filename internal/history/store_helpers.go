package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job         Job
		animation   int
		multiview   int
		outputPath  sql.NullString
		message     sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		startedRaw  string
		updatedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Source,
		&animation,
		&multiview,
		&job.ViewWidth,
		&job.ViewHeight,
		&job.Rows,
		&job.Columns,
		&job.TotalViews,
		&job.ViewCone,
		&job.QuiltAspect,
		&job.FrameStart,
		&job.FrameEnd,
		&job.FrameStep,
		&outputPath,
		&job.Status,
		&message,
		&errorKind,
		&errorMsg,
		&job.Progress,
		&job.ViewsRendered,
		&job.Resumed,
		&startedRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Animation = animation != 0
	job.Multiview = multiview != 0
	job.OutputPath = outputPath.String
	job.Message = message.String
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMsg.String
	job.StartedAt = parseTime(startedRaw)
	job.UpdatedAt = parseTime(updatedRaw)
	if finishedRaw.Valid && finishedRaw.String != "" {
		finished := parseTime(finishedRaw.String)
		job.FinishedAt = &finished
	}
	return &job, nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
