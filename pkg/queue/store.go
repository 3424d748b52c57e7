package queue

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/vex/pkg/vexerr"
)

// Dialect selects the SQL text used against the jobs table; Postgres and
// SQLite agree on columns but differ on placeholders and on the atomic-claim
// clause (Postgres alone supports SKIP LOCKED).
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// sqlDB is satisfied by both storage backends' DB() escape hatch.
type sqlDB interface {
	DB() *stdsql.DB
}

// Store is the durable-queue persistence layer: real SQL against the jobs
// table (created by the storage backend's own schema/migrations), not the
// generic key/value Backend contract, so the dequeue claim can be a single
// atomic statement.
type Store struct {
	db      *stdsql.DB
	dialect Dialect
}

// NewStore wraps a storage backend's DB() accessor for direct job-table
// access.
func NewStore(backend sqlDB, dialect Dialect) *Store {
	return &Store{db: backend.DB(), dialect: dialect}
}

func (s *Store) ph(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Enqueue inserts a new pending job and returns its ID.
func (s *Store) Enqueue(ctx context.Context, tenantID, jobType string, payload json.RawMessage, runAt time.Time, priority int) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO jobs (id, tenant_id, job_type, payload, status, run_at, created_at, priority, retries)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, 0)
	`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8))
	_, err := s.db.ExecContext(ctx, query, s.idArg(id), tenantID, jobType, string(payload), string(StatusPending), runAt, now, priority)
	if err != nil {
		return uuid.Nil, vexerr.New(vexerr.CategoryJob, "enqueue", err)
	}
	return id, nil
}

// idArg adapts the job ID for the dialect: Postgres' jobs.id is a native
// UUID column, SQLite's is TEXT.
func (s *Store) idArg(id uuid.UUID) interface{} {
	if s.dialect == DialectPostgres {
		return id
	}
	return id.String()
}

// Dequeue atomically claims the highest-priority, oldest eligible pending
// job for workerID and marks it running, or returns (Job{}, false, nil) if
// none is ready.
func (s *Store) Dequeue(ctx context.Context, workerID string) (Job, bool, error) {
	now := time.Now().UTC()
	var query string
	switch s.dialect {
	case DialectPostgres:
		query = `
			WITH claimed AS (
				SELECT id FROM jobs
				WHERE status = $1 AND run_at <= $2
				ORDER BY priority DESC, created_at ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			UPDATE jobs SET status = $3, locked_at = $2, locked_by = $4
			WHERE id IN (SELECT id FROM claimed)
			RETURNING id, tenant_id, job_type, payload, status, run_at, created_at, priority, retries, last_error, locked_at, locked_by, result
		`
	default: // SQLite: single writer at a time, no SKIP LOCKED support.
		query = `
			UPDATE jobs SET status = ?, locked_at = ?, locked_by = ?
			WHERE id = (
				SELECT id FROM jobs WHERE status = ? AND run_at <= ?
				ORDER BY priority DESC, created_at ASC LIMIT 1
			)
			RETURNING id, tenant_id, job_type, payload, status, run_at, created_at, priority, retries, last_error, locked_at, locked_by, result
		`
	}

	var row *stdsql.Row
	if s.dialect == DialectPostgres {
		row = s.db.QueryRowContext(ctx, query, string(StatusPending), now, string(StatusRunning), workerID)
	} else {
		row = s.db.QueryRowContext(ctx, query, string(StatusRunning), now, workerID, string(StatusPending), now)
	}

	job, err := scanJob(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, vexerr.New(vexerr.CategoryJob, "dequeue", err)
	}
	return job, true, nil
}

func scanJob(row *stdsql.Row) (Job, error) {
	var (
		idRaw, tenantID, jobType, payload, status string
		runAt, createdAt                          time.Time
		priority                                  int
		retries                                   uint32
		lastError                                 stdsql.NullString
		lockedAt                                   stdsql.NullTime
		lockedBy                                   stdsql.NullString
		result                                     stdsql.NullString
	)
	if err := row.Scan(&idRaw, &tenantID, &jobType, &payload, &status, &runAt, &createdAt, &priority, &retries, &lastError, &lockedAt, &lockedBy, &result); err != nil {
		return Job{}, err
	}
	id, err := uuid.Parse(idRaw)
	if err != nil {
		return Job{}, fmt.Errorf("parse job id %q: %w", idRaw, err)
	}
	j := Job{
		ID:        id,
		TenantID:  tenantID,
		JobType:   jobType,
		Payload:   json.RawMessage(payload),
		Status:    Status(status),
		RunAt:     runAt,
		CreatedAt: createdAt,
		Priority:  priority,
		Retries:   retries,
		LastError: lastError.String,
		LockedBy:  lockedBy.String,
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		j.LockedAt = &t
	}
	if result.Valid {
		j.Result = json.RawMessage(result.String)
	}
	return j, nil
}

// Complete marks a job finished successfully and stores its result.
func (s *Store) Complete(ctx context.Context, tenantID string, id uuid.UUID, result json.RawMessage) error {
	query := fmt.Sprintf(`
		UPDATE jobs SET status = %s, locked_at = NULL, locked_by = NULL, result = %s
		WHERE id = %s AND tenant_id = %s
	`, s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	return s.exec1(ctx, query, string(StatusCompleted), string(result), s.idArg(id), tenantID)
}

// Fail records a retryable failure: increments retries, appends last_error,
// releases the lock, reschedules run_at after delay, and returns the job to
// pending so a future Dequeue can reclaim it once the delay elapses.
func (s *Store) Fail(ctx context.Context, tenantID string, id uuid.UUID, lastErr string, delay time.Duration) error {
	query := fmt.Sprintf(`
		UPDATE jobs SET status = %s, locked_at = NULL, locked_by = NULL,
			retries = retries + 1, last_error = %s, run_at = %s
		WHERE id = %s AND tenant_id = %s
	`, s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5))
	runAt := time.Now().UTC().Add(delay)
	return s.exec1(ctx, query, string(StatusPending), lastErr, runAt, s.idArg(id), tenantID)
}

// DeadLetter marks a job permanently failed.
func (s *Store) DeadLetter(ctx context.Context, tenantID string, id uuid.UUID, lastErr string) error {
	query := fmt.Sprintf(`
		UPDATE jobs SET status = %s, locked_at = NULL, locked_by = NULL, last_error = %s
		WHERE id = %s AND tenant_id = %s
	`, s.ph(1), s.ph(2), s.ph(3), s.ph(4))
	return s.exec1(ctx, query, string(StatusDeadLetter), lastErr, s.idArg(id), tenantID)
}

func (s *Store) exec1(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return vexerr.New(vexerr.CategoryJob, "update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return vexerr.New(vexerr.CategoryJob, "update rows_affected", err)
	}
	if n == 0 {
		return vexerr.New(vexerr.CategoryJob, "update", vexerr.ErrJobNotFound)
	}
	return nil
}

// GetJob fetches a single job by tenant-scoped ID.
func (s *Store) GetJob(ctx context.Context, tenantID string, id uuid.UUID) (Job, error) {
	query := fmt.Sprintf(`
		SELECT id, tenant_id, job_type, payload, status, run_at, created_at, priority, retries, last_error, locked_at, locked_by, result
		FROM jobs WHERE id = %s AND tenant_id = %s
	`, s.ph(1), s.ph(2))
	row := s.db.QueryRowContext(ctx, query, s.idArg(id), tenantID)
	job, err := scanJob(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return Job{}, vexerr.New(vexerr.CategoryJob, fmt.Sprintf("job %s", id), vexerr.ErrJobNotFound)
	}
	if err != nil {
		return Job{}, vexerr.New(vexerr.CategoryJob, "get_job", err)
	}
	return job, nil
}

// GetStatus is a narrow accessor over GetJob for callers that only need the
// lifecycle state.
func (s *Store) GetStatus(ctx context.Context, tenantID string, id uuid.UUID) (Status, error) {
	job, err := s.GetJob(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}
