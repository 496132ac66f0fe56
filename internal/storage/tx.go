package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finledger/internal/core"
)

// Tx is the write side of one confirm call. Every method runs inside the same
// SQLite transaction opened by InTx.
type Tx struct {
	q   *Queries
	now time.Time
}

// Now is the timestamp stamped on everything written by this transaction.
func (t *Tx) Now() time.Time {
	return t.now
}

// Job loads a job and its candidates.
func (t *Tx) Job(ctx context.Context, id string) (core.ImportJob, error) {
	return loadJob(ctx, t.q, id)
}

// EnsureCategoryPath returns the category at path, creating any missing level.
// An empty path has no category.
func (t *Tx) EnsureCategoryPath(ctx context.Context, kind core.CategoryKind, path []string) (*core.Category, error) {
	if len(path) == 0 {
		return nil, nil
	}
	var parent sql.NullInt64
	var cat Category
	for depth, name := range path {
		var err error
		cat, err = t.q.UpsertCategory(ctx, UpsertCategoryParams{
			Kind:      string(kind),
			ParentID:  parent,
			Level:     int64(depth),
			Name:      name,
			FullPath:  core.JoinPath(path[:depth+1]),
			CreatedAt: formatTime(t.now),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert category %q: %w", core.JoinPath(path[:depth+1]), err)
		}
		parent = sql.NullInt64{Int64: cat.ID, Valid: true}
	}
	c := toCoreCategory(cat)
	return &c, nil
}

// ActiveRecord is the committed record currently holding a natural key.
type ActiveRecord struct {
	ID    string
	Entry core.Entry
}

// ActiveRecord looks up the active record with the natural key. It returns
// nil when the key is free.
func (t *Tx) ActiveRecord(ctx context.Context, kind core.RecordKind, key string) (*ActiveRecord, error) {
	if kind.IsForecast() {
		row, err := t.q.GetActiveForecastByKey(ctx, string(kind), key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get active forecast: %w", err)
		}
		e, err := entryFromForecast(row)
		if err != nil {
			return nil, err
		}
		return &ActiveRecord{ID: row.ID, Entry: e}, nil
	}

	row, err := t.q.GetActiveLedgerByKey(ctx, string(kind), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active record: %w", err)
	}
	e, err := entryFromLedger(row)
	if err != nil {
		return nil, err
	}
	return &ActiveRecord{ID: row.ID, Entry: e}, nil
}

// NewRecord is a validated entry about to be committed.
type NewRecord struct {
	ID         string
	JobID      string
	NaturalKey string
	CategoryID *int64
	Entry      core.Entry
}

func (t *Tx) InsertRecord(ctx context.Context, rec NewRecord) error {
	e := rec.Entry
	if e.Kind.IsForecast() {
		err := t.q.InsertForecastRecord(ctx, ForecastRecord{
			ID:           rec.ID,
			Kind:         string(e.Kind),
			CompanyID:    e.CompanyID,
			TargetDate:   e.Date.String(),
			Certainty:    string(e.Certainty),
			AmountMinor:  e.Amount.Minor,
			Currency:     e.Currency,
			CategoryID:   nullInt64(rec.CategoryID),
			CategoryPath: core.JoinPath(e.CategoryPath),
			Description:  e.Description,
			AccountName:  e.AccountName,
			ProductLine:  e.ProductLine,
			ProductName:  e.ProductName,
			Confidence:   nullFloat64(e.Confidence),
			Notes:        e.Notes,
			ImportJobID:  nullString(rec.JobID),
			NaturalKey:   rec.NaturalKey,
			CreatedAt:    formatTime(t.now),
		})
		if err != nil {
			return fmt.Errorf("insert forecast: %w", err)
		}
		return nil
	}

	err := t.q.InsertLedgerRecord(ctx, LedgerRecord{
		ID:           rec.ID,
		Kind:         string(e.Kind),
		CompanyID:    e.CompanyID,
		OccurredOn:   e.Date.String(),
		AmountMinor:  e.Amount.Minor,
		Currency:     e.Currency,
		CategoryID:   nullInt64(rec.CategoryID),
		CategoryPath: core.JoinPath(e.CategoryPath),
		Description:  e.Description,
		AccountName:  e.AccountName,
		Confidence:   nullFloat64(e.Confidence),
		Notes:        e.Notes,
		ImportJobID:  nullString(rec.JobID),
		NaturalKey:   rec.NaturalKey,
		CreatedAt:    formatTime(t.now),
	})
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Supersede retires the active record oldID in favour of newID. It must run
// before the replacement is inserted so the active-key index stays unique.
func (t *Tx) Supersede(ctx context.Context, kind core.RecordKind, oldID, newID string) error {
	var (
		n   int64
		err error
	)
	if kind.IsForecast() {
		n, err = t.q.SupersedeForecastRecord(ctx, oldID, newID, formatTime(t.now))
	} else {
		n, err = t.q.SupersedeLedgerRecord(ctx, oldID, newID, formatTime(t.now))
	}
	if err != nil {
		return fmt.Errorf("supersede %s: %w", oldID, err)
	}
	if n == 0 {
		return fmt.Errorf("supersede %s: %w", oldID, ErrNotFound)
	}
	return nil
}

// AppendLog writes the next confirmation log entry of the job.
func (t *Tx) AppendLog(ctx context.Context, l core.ConfirmationLog) (core.ConfirmationLog, error) {
	seq, err := t.q.NextConfirmationSeq(ctx, l.ImportJobID)
	if err != nil {
		return l, fmt.Errorf("next log sequence: %w", err)
	}
	snapshot := string(l.DiffSnapshot)
	if snapshot == "" {
		snapshot = "{}"
	}
	id, err := t.q.InsertConfirmationLog(ctx, ConfirmationLog{
		ImportJobID:  l.ImportJobID,
		Seq:          seq,
		RecordKind:   string(l.RecordKind),
		RecordID:     l.RecordID,
		NaturalKey:   l.NaturalKey,
		Actor:        l.Actor,
		Action:       string(l.Action),
		DiffSnapshot: snapshot,
		Comment:      l.Comment,
		CreatedAt:    formatTime(t.now),
	})
	if err != nil {
		return l, fmt.Errorf("insert confirmation log: %w", err)
	}
	l.ID = id
	l.Sequence = int(seq)
	l.CreatedAt = t.now
	return l, nil
}

func (t *Tx) SetCandidateState(ctx context.Context, jobID string, index int, state core.CandidateState, reason string) error {
	if err := t.q.UpdateImportCandidate(ctx, jobID, int64(index), string(state), reason); err != nil {
		return fmt.Errorf("update candidate %d: %w", index, err)
	}
	return nil
}

// SetJobStatus moves the job to status, stamping completion for terminal states.
func (t *Tx) SetJobStatus(ctx context.Context, jobID string, status core.JobStatus) error {
	var completed sql.NullString
	if status.Terminal() {
		completed = nullTime(&t.now)
	}
	if err := t.q.UpdateImportJobStatus(ctx, jobID, string(status), completed); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (t *Tx) BumpRevision(ctx context.Context) (int64, error) {
	rev, err := t.q.BumpRevision(ctx)
	if err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return rev, nil
}
