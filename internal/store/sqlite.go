package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.OrNop(logger).With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Jobs ---

// CreateJob inserts a job. Creating a job that already exists only fills
// in its name and spec, so a record made from a lifecycle event can be
// completed by the submitter later.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.logger.Debug("sql", "op", "insert", "table", "jobs", "id", job.ID)

	specJSON, err := json.Marshal(job.Spec)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}
	state := job.State
	if state == "" {
		state = model.JobStateQueued
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, state, rootless, steps, preemptions, image_size, location, spec, created_at, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = CASE WHEN excluded.name != '' THEN excluded.name ELSE jobs.name END,
		   spec = CASE WHEN excluded.spec != 'null' THEN excluded.spec ELSE jobs.spec END`,
		job.ID, job.Name, string(state), job.Rootless, job.Steps, job.Preemptions, job.ImageSize, job.Location,
		string(specJSON), job.CreatedAt.Format(time.RFC3339Nano),
		formatTimePtr(job.StartedAt), formatTimePtr(job.CompletedAt),
	)
	return err
}

const jobColumns = `id, name, state, rootless, steps, preemptions, image_size, location, spec, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var state, specJSON, createdAt string
	var startedAt, completedAt *string

	if err := row.Scan(&job.ID, &job.Name, &state, &job.Rootless, &job.Steps, &job.Preemptions,
		&job.ImageSize, &job.Location, &specJSON, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	job.State = model.JobState(state)
	if err := json.Unmarshal([]byte(specJSON), &job.Spec); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.StartedAt = parseTimePtr(startedAt)
	job.CompletedAt = parseTimePtr(completedAt)
	return &job, nil
}

// GetJob returns the job with the given ID, or nil when there is none.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.logger.Debug("sql", "op", "select", "table", "jobs", "id", id)

	job, err := scanJob(s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListJobs returns a page of jobs, newest first, and the total count.
func (s *SQLiteStore) ListJobs(ctx context.Context, opts model.ListOptions) ([]*model.Job, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "jobs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	whereSQL := ""
	var args []any
	if opts.State != "" {
		whereSQL = " WHERE state = ?"
		args = append(args, string(opts.State))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs`+whereSQL+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	return jobs, total, rows.Err()
}

// UpdateJob writes the mutable fields of a job.
func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.Job) error {
	s.logger.Debug("sql", "op", "update", "table", "jobs", "id", job.ID, "state", job.State)

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state=?, rootless=?, steps=?, preemptions=?, image_size=?, location=?, started_at=?, completed_at=? WHERE id=?`,
		string(job.State), job.Rootless, job.Steps, job.Preemptions, job.ImageSize, job.Location,
		formatTimePtr(job.StartedAt), formatTimePtr(job.CompletedAt), job.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

// --- Images ---

// SaveImage stores the PNG for a job, replacing any earlier one.
func (s *SQLiteStore) SaveImage(ctx context.Context, jobID string, png []byte) error {
	s.logger.Debug("sql", "op", "upsert", "table", "images", "job_id", jobID, "bytes", len(png))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (job_id, png, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET png = excluded.png, created_at = excluded.created_at`,
		jobID, png, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetImage returns the PNG for a job, or nil when none was stored.
func (s *SQLiteStore) GetImage(ctx context.Context, jobID string) ([]byte, error) {
	s.logger.Debug("sql", "op", "select", "table", "images", "job_id", jobID)

	var png []byte
	err := s.db.QueryRowContext(ctx, `SELECT png FROM images WHERE job_id = ?`, jobID).Scan(&png)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return png, err
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}
