package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiltrender/internal/services"
)

const jobColumns = "id, source, animation, multiview, view_width, view_height, rows, columns, total_views, view_cone, quilt_aspect, frame_start, frame_end, frame_step, output_path, status, message, error_kind, error_message, progress, views_rendered, resumed, started_at, updated_at, finished_at"

// Begin records job as running. Starting a known job again marks it as
// resumed and clears its previous result.
func (s *Store) Begin(ctx context.Context, job Job) error {
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx, `
INSERT INTO jobs (id, source, animation, multiview, view_width, view_height, rows, columns, total_views,
    view_cone, quilt_aspect, frame_start, frame_end, frame_step, output_path, status, progress,
    views_rendered, started_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    message = NULL,
    error_kind = NULL,
    error_message = NULL,
    finished_at = NULL,
    resumed = jobs.resumed + 1,
    updated_at = excluded.updated_at`,
		job.ID, job.Source, boolToInt(job.Animation), boolToInt(job.Multiview), job.ViewWidth, job.ViewHeight,
		job.Rows, job.Columns, job.TotalViews, job.ViewCone, job.QuiltAspect, job.FrameStart, job.FrameEnd,
		job.FrameStep, nullableString(job.OutputPath), StatusRunning, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateProgress stores the progress fraction and increments the rendered
// view counter.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress float64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress = ?, views_rendered = views_rendered + 1, updated_at = ? WHERE id = ?`,
		progress, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return requireRow(res, id)
}

// AddQuilt records a written quilt file. Rewriting a frame replaces the row.
func (s *Store) AddQuilt(ctx context.Context, q Quilt) error {
	created := q.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.execWithRetry(ctx, `
INSERT INTO quilts (job_id, frame, path, size_bytes, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(job_id, frame) DO UPDATE SET path = excluded.path, size_bytes = excluded.size_bytes, created_at = excluded.created_at`,
		q.JobID, q.Frame, q.Path, q.SizeBytes, formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("insert quilt: %w", err)
	}
	return nil
}

// Finish stores the final status of a job.
func (s *Store) Finish(ctx context.Context, id, status, message string, jobErr error) error {
	now := formatTime(time.Now())
	var kind, errMsg sql.NullString
	if jobErr != nil {
		kind = nullableString(services.Kind(jobErr))
		errMsg = nullableString(jobErr.Error())
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, message = ?, error_kind = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(message), kind, errMsg, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return requireRow(res, id)
}

// Get returns the job with id and its quilts.
func (s *Store) Get(ctx context.Context, id string) (*Job, []Quilt, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, services.Wrap(services.ErrNotFound, "history", "get", fmt.Sprintf("job %s", id), nil)
		}
		return nil, nil, err
	}
	quilts, err := s.quilts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return job, quilts, nil
}

// FindByPrefix resolves an abbreviated job ID. The prefix must match exactly
// one job.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Job, []Quilt, error) {
	ctx = ensureContext(ctx)
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil, services.Wrap(services.ErrNotFound, "history", "find", "empty job id", nil)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM jobs WHERE id LIKE ? ESCAPE '\\' LIMIT 2", escapeLike(prefix)+"%")
	if err != nil {
		return nil, nil, fmt.Errorf("find job: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("find job: %w", err)
	}
	switch len(ids) {
	case 0:
		return nil, nil, services.Wrap(services.ErrNotFound, "history", "find", fmt.Sprintf("job %s", prefix), nil)
	case 1:
		return s.Get(ctx, ids[0])
	default:
		return nil, nil, services.Wrap(services.ErrValidation, "history", "find", fmt.Sprintf("job id %q is ambiguous", prefix), nil)
	}
}

// List returns the most recent jobs first. A limit <= 0 returns every job.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + jobColumns + " FROM jobs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Prune deletes finished jobs that ended before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE status != ? AND finished_at IS NOT NULL AND finished_at < ?`,
		StatusRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) quilts(ctx context.Context, id string) ([]Quilt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT job_id, frame, path, size_bytes, created_at FROM quilts WHERE job_id = ? ORDER BY frame", id)
	if err != nil {
		return nil, fmt.Errorf("list quilts: %w", err)
	}
	defer rows.Close()

	var quilts []Quilt
	for rows.Next() {
		var (
			q          Quilt
			createdRaw string
		)
		if err := rows.Scan(&q.JobID, &q.Frame, &q.Path, &q.SizeBytes, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan quilt: %w", err)
		}
		q.CreatedAt = parseTime(createdRaw)
		quilts = append(quilts, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quilts: %w", err)
	}
	return quilts, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "update", fmt.Sprintf("job %s", id), nil)
	}
	return nil
}
