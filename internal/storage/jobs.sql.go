package storage

import (
	"context"
	"database/sql"
)

const createImportJob = `-- name: CreateImportJob :exec
INSERT INTO import_jobs (id, status, source_type, source_descriptor, actor, model, confidence_score, error_log, created_at, completed_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)
`

type CreateImportJobParams struct {
	ID               string
	Status           string
	SourceType       string
	SourceDescriptor string
	Actor            string
	Model            string
	ConfidenceScore  sql.NullFloat64
	ErrorLog         string
	CreatedAt        string
	CompletedAt      sql.NullString
}

func (q *Queries) CreateImportJob(ctx context.Context, arg CreateImportJobParams) error {
	_, err := q.db.ExecContext(ctx, createImportJob,
		arg.ID,
		arg.Status,
		arg.SourceType,
		arg.SourceDescriptor,
		arg.Actor,
		arg.Model,
		arg.ConfidenceScore,
		arg.ErrorLog,
		arg.CreatedAt,
		arg.CompletedAt,
	)
	return err
}

const getImportJob = `-- name: GetImportJob :one
SELECT id, status, source_type, source_descriptor, actor, model, confidence_score, error_log, created_at, completed_at
FROM import_jobs
WHERE id = ?1
`

func (q *Queries) GetImportJob(ctx context.Context, id string) (ImportJob, error) {
	row := q.db.QueryRowContext(ctx, getImportJob, id)
	var i ImportJob
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.SourceType,
		&i.SourceDescriptor,
		&i.Actor,
		&i.Model,
		&i.ConfidenceScore,
		&i.ErrorLog,
		&i.CreatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const updateImportJobStatus = `-- name: UpdateImportJobStatus :exec
UPDATE import_jobs SET status = ?2, completed_at = ?3 WHERE id = ?1
`

func (q *Queries) UpdateImportJobStatus(ctx context.Context, id, status string, completedAt sql.NullString) error {
	_, err := q.db.ExecContext(ctx, updateImportJobStatus, id, status, completedAt)
	return err
}

const createImportCandidate = `-- name: CreateImportCandidate :exec
INSERT INTO import_candidates (job_id, seq, record_kind, payload, confidence, warnings, state, reason)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
`

func (q *Queries) CreateImportCandidate(ctx context.Context, arg ImportCandidate) error {
	_, err := q.db.ExecContext(ctx, createImportCandidate,
		arg.JobID,
		arg.Seq,
		arg.RecordKind,
		arg.Payload,
		arg.Confidence,
		arg.Warnings,
		arg.State,
		arg.Reason,
	)
	return err
}

const listImportCandidates = `-- name: ListImportCandidates :many
SELECT job_id, seq, record_kind, payload, confidence, warnings, state, reason
FROM import_candidates
WHERE job_id = ?1
ORDER BY seq
`

func (q *Queries) ListImportCandidates(ctx context.Context, jobID string) ([]ImportCandidate, error) {
	rows, err := q.db.QueryContext(ctx, listImportCandidates, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportCandidate
	for rows.Next() {
		var i ImportCandidate
		if err := rows.Scan(
			&i.JobID,
			&i.Seq,
			&i.RecordKind,
			&i.Payload,
			&i.Confidence,
			&i.Warnings,
			&i.State,
			&i.Reason,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateImportCandidate = `-- name: UpdateImportCandidate :exec
UPDATE import_candidates SET state = ?3, reason = ?4 WHERE job_id = ?1 AND seq = ?2
`

func (q *Queries) UpdateImportCandidate(ctx context.Context, jobID string, seq int64, state, reason string) error {
	_, err := q.db.ExecContext(ctx, updateImportCandidate, jobID, seq, state, reason)
	return err
}

const nextConfirmationSeq = `-- name: NextConfirmationSeq :one
SELECT COALESCE(MAX(seq), 0) + 1 FROM confirmation_logs WHERE import_job_id = ?1
`

func (q *Queries) NextConfirmationSeq(ctx context.Context, jobID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, nextConfirmationSeq, jobID)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const insertConfirmationLog = `-- name: InsertConfirmationLog :one
INSERT INTO confirmation_logs (import_job_id, seq, record_kind, record_id, natural_key, actor, action, diff_snapshot, comment, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)
RETURNING id
`

func (q *Queries) InsertConfirmationLog(ctx context.Context, arg ConfirmationLog) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertConfirmationLog,
		arg.ImportJobID,
		arg.Seq,
		arg.RecordKind,
		arg.RecordID,
		arg.NaturalKey,
		arg.Actor,
		arg.Action,
		arg.DiffSnapshot,
		arg.Comment,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listConfirmationLogs = `-- name: ListConfirmationLogs :many
SELECT id, import_job_id, seq, record_kind, record_id, natural_key, actor, action, diff_snapshot, comment, created_at
FROM confirmation_logs
WHERE import_job_id = ?1
ORDER BY seq
`

func (q *Queries) ListConfirmationLogs(ctx context.Context, jobID string) ([]ConfirmationLog, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmationLogs, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ConfirmationLog
	for rows.Next() {
		var i ConfirmationLog
		if err := rows.Scan(
			&i.ID,
			&i.ImportJobID,
			&i.Seq,
			&i.RecordKind,
			&i.RecordID,
			&i.NaturalKey,
			&i.Actor,
			&i.Action,
			&i.DiffSnapshot,
			&i.Comment,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRevision = `-- name: GetRevision :one
SELECT revision FROM store_revision WHERE id = 1
`

func (q *Queries) GetRevision(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, getRevision)
	var revision int64
	err := row.Scan(&revision)
	return revision, err
}

const bumpRevision = `-- name: BumpRevision :one
UPDATE store_revision SET revision = revision + 1 WHERE id = 1
RETURNING revision
`

func (q *Queries) BumpRevision(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, bumpRevision)
	var revision int64
	err := row.Scan(&revision)
	return revision, err
}
