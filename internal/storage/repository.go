package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finledger/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Write transactions start with BEGIN IMMEDIATE so two confirms never both
// pass the duplicate check; readers get a WAL snapshot and never block them.
const dsnParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Revision returns the store revision, bumped by every committed confirm.
func (r *SQLiteRepository) Revision(ctx context.Context) (int64, error) {
	rev, err := r.queries.GetRevision(ctx)
	if err != nil {
		return 0, fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

// View runs fn inside a read-only transaction so every query sees the same snapshot.
func (r *SQLiteRepository) View(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// InTx runs fn inside a write transaction. Any error rolls everything back.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{q: r.queries.WithTx(sqlTx), now: r.now()}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CreateJob stores a job and its candidates atomically.
func (r *SQLiteRepository) CreateJob(ctx context.Context, job core.ImportJob) error {
	err := r.InTx(ctx, func(tx *Tx) error {
		if err := tx.q.CreateImportJob(ctx, CreateImportJobParams{
			ID:               job.ID,
			Status:           string(job.Status),
			SourceType:       string(job.SourceType),
			SourceDescriptor: job.SourceDescriptor,
			Actor:            job.Actor,
			Model:            job.Model,
			ConfidenceScore:  nullFloat64(job.ConfidenceScore),
			ErrorLog:         job.ErrorLog,
			CreatedAt:        formatTime(job.CreatedAt),
			CompletedAt:      nullTime(job.CompletedAt),
		}); err != nil {
			return fmt.Errorf("create import job: %w", err)
		}
		for _, c := range job.Candidates {
			row, err := fromCoreCandidate(job.ID, c)
			if err != nil {
				return err
			}
			if err := tx.q.CreateImportCandidate(ctx, row); err != nil {
				return fmt.Errorf("create candidate %d: %w", c.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Import job saved to SQLite",
		"job_id", job.ID,
		"status", job.Status,
		"candidates", len(job.Candidates))
	return nil
}

// GetJob returns a job with its candidates.
func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (core.ImportJob, error) {
	var job core.ImportJob
	err := r.View(ctx, func(q *Queries) error {
		var err error
		job, err = loadJob(ctx, q, id)
		return err
	})
	return job, err
}

func loadJob(ctx context.Context, q *Queries, id string) (core.ImportJob, error) {
	row, err := q.GetImportJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ImportJob{}, fmt.Errorf("import job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("get import job: %w", err)
	}
	cands, err := q.ListImportCandidates(ctx, id)
	if err != nil {
		return core.ImportJob{}, fmt.Errorf("list candidates: %w", err)
	}
	return toCoreJob(row, cands)
}

// ListConfirmationLogs returns the audit trail of a job in sequence order.
func (r *SQLiteRepository) ListConfirmationLogs(ctx context.Context, jobID string) ([]core.ConfirmationLog, error) {
	var out []core.ConfirmationLog
	err := r.View(ctx, func(q *Queries) error {
		if _, err := q.GetImportJob(ctx, jobID); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("import job %s: %w", jobID, ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get import job: %w", err)
		}
		rows, err := q.ListConfirmationLogs(ctx, jobID)
		if err != nil {
			return fmt.Errorf("list confirmation logs: %w", err)
		}
		out = make([]core.ConfirmationLog, 0, len(rows))
		for _, row := range rows {
			out = append(out, toCoreLog(row))
		}
		return nil
	})
	return out, err
}

// ListCategories returns every category of one forest, disabled ones included.
func (r *SQLiteRepository) ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCoreCategory(row))
	}
	return out, nil
}

// DisableCategory hides a category from pickers. Categories are never deleted
// because committed records keep referring to them.
func (r *SQLiteRepository) DisableCategory(ctx context.Context, id int64) (core.Category, error) {
	var out core.Category
	err := r.InTx(ctx, func(tx *Tx) error {
		n, err := tx.q.SetCategoryEnabled(ctx, id, false)
		if err != nil {
			return fmt.Errorf("disable category: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		row, err := tx.q.GetCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		out = toCoreCategory(row)
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category disabled", "id", id, "path", out.FullPath)
	return out, nil
}

// SnapshotQuery selects the records behind one summary.
type SnapshotQuery struct {
	Kind            core.RecordKind
	CompanyID       string
	Year            int
	IncludeForecast bool
}

// LedgerSnapshot is a consistent view of everything a summary needs.
type LedgerSnapshot struct {
	Revision           int64
	Categories         []core.Category
	ForecastCategories []core.Category
	Actuals            []core.LedgerRecord
	Forecasts          []core.ForecastRecord
}

// LoadLedgerSnapshot reads the revision, categories and records of one year
// in a single read transaction.
func (r *SQLiteRepository) LoadLedgerSnapshot(ctx context.Context, sq SnapshotQuery) (LedgerSnapshot, error) {
	var snap LedgerSnapshot
	from := core.NewDate(sq.Year, 1, 1).String()
	to := core.NewDate(sq.Year+1, 1, 1).String()

	err := r.View(ctx, func(q *Queries) error {
		rev, err := q.GetRevision(ctx)
		if err != nil {
			return fmt.Errorf("get revision: %w", err)
		}
		snap.Revision = rev

		cats, err := q.ListCategories(ctx, string(sq.Kind.CategoryKind()))
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		for _, c := range cats {
			snap.Categories = append(snap.Categories, toCoreCategory(c))
		}

		rows, err := q.ListActiveLedger(ctx, ListRecordsParams{
			Kind: string(sq.Kind), CompanyID: sq.CompanyID, From: from, To: to,
		})
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		for _, row := range rows {
			rec, err := toCoreLedger(row)
			if err != nil {
				return err
			}
			snap.Actuals = append(snap.Actuals, rec)
		}

		fk, ok := sq.Kind.ForecastKind()
		if !sq.IncludeForecast || !ok {
			return nil
		}
		if fk.CategoryKind() != sq.Kind.CategoryKind() {
			fcats, err := q.ListCategories(ctx, string(fk.CategoryKind()))
			if err != nil {
				return fmt.Errorf("list forecast categories: %w", err)
			}
			for _, c := range fcats {
				snap.ForecastCategories = append(snap.ForecastCategories, toCoreCategory(c))
			}
		}
		frows, err := q.ListActiveForecasts(ctx, ListRecordsParams{
			Kind: string(fk), CompanyID: sq.CompanyID, From: from, To: to,
		})
		if err != nil {
			return fmt.Errorf("list forecasts: %w", err)
		}
		for _, row := range frows {
			rec, err := toCoreForecast(row)
			if err != nil {
				return err
			}
			snap.Forecasts = append(snap.Forecasts, rec)
		}
		return nil
	})
	return snap, err
}

// CashflowSnapshot holds the forecasts from the as-of month onwards and the
// latest known balance.
type CashflowSnapshot struct {
	Revision         int64
	IncomeForecasts  []core.ForecastRecord
	ExpenseForecasts []core.ForecastRecord
	// Balance is the sum of each company's latest balance on or before as-of.
	Balance      int64
	BalanceFound bool
	BalanceDate  core.Date
}

const farFuture = "9999-12-31"

func (r *SQLiteRepository) LoadCashflowSnapshot(ctx context.Context, companyID string, asOf core.Date) (CashflowSnapshot, error) {
	var snap CashflowSnapshot
	from := asOf.Month().First().String()

	err := r.View(ctx, func(q *Queries) error {
		rev, err := q.GetRevision(ctx)
		if err != nil {
			return fmt.Errorf("get revision: %w", err)
		}
		snap.Revision = rev

		for _, kind := range []core.RecordKind{core.IncomeForecast, core.ExpenseForecast} {
			rows, err := q.ListActiveForecasts(ctx, ListRecordsParams{
				Kind: string(kind), CompanyID: companyID, From: from, To: farFuture,
			})
			if err != nil {
				return fmt.Errorf("list %s: %w", kind, err)
			}
			for _, row := range rows {
				rec, err := toCoreForecast(row)
				if err != nil {
					return err
				}
				if kind == core.IncomeForecast {
					snap.IncomeForecasts = append(snap.IncomeForecasts, rec)
				} else {
					snap.ExpenseForecasts = append(snap.ExpenseForecasts, rec)
				}
			}
		}

		balances, err := q.LatestBalances(ctx, companyID, asOf.String())
		if err != nil {
			return fmt.Errorf("latest balances: %w", err)
		}
		for _, b := range balances {
			d, err := core.ParseDate(b.OccurredOn)
			if err != nil {
				return fmt.Errorf("balance date %q: %w", b.OccurredOn, err)
			}
			snap.Balance += b.AmountMinor
			snap.BalanceFound = true
			if d.After(snap.BalanceDate.Time) {
				snap.BalanceDate = d
			}
		}
		return nil
	})
	return snap, err
}

// ListBalances returns the account balance history between from and to inclusive.
func (r *SQLiteRepository) ListBalances(ctx context.Context, companyID string, from, to core.Date) ([]core.LedgerRecord, error) {
	rows, err := r.queries.ListActiveLedger(ctx, ListRecordsParams{
		Kind:      string(core.AccountBalance),
		CompanyID: companyID,
		From:      from.String(),
		To:        to.AddDate(0, 0, 1).Format(time.DateOnly),
	})
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	out := make([]core.LedgerRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toCoreLedger(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// OverviewSnapshot holds the per-company rows behind the dashboard overview.
type OverviewSnapshot struct {
	Revision  int64
	Balances  []LatestBalancesRow
	Revenue   []MonthTotalRow
	Expense   []MonthTotalRow
	Forecasts []ForecastTotalRow
}

// LoadOverviewSnapshot reads the latest balance, the latest revenue and
// expense months on or before asOf, and the income forecasts due from asOf,
// all in one read transaction.
func (r *SQLiteRepository) LoadOverviewSnapshot(ctx context.Context, companyID string, asOf core.Date) (OverviewSnapshot, error) {
	var snap OverviewSnapshot
	day := asOf.String()

	err := r.View(ctx, func(q *Queries) error {
		rev, err := q.GetRevision(ctx)
		if err != nil {
			return fmt.Errorf("get revision: %w", err)
		}
		snap.Revision = rev

		if snap.Balances, err = q.LatestBalances(ctx, companyID, day); err != nil {
			return fmt.Errorf("latest balances: %w", err)
		}
		if snap.Revenue, err = q.LatestMonthTotals(ctx, string(core.Revenue), companyID, day); err != nil {
			return fmt.Errorf("latest revenue: %w", err)
		}
		if snap.Expense, err = q.LatestMonthTotals(ctx, string(core.Expense), companyID, day); err != nil {
			return fmt.Errorf("latest expense: %w", err)
		}
		if snap.Forecasts, err = q.UpcomingForecastTotals(ctx, string(core.IncomeForecast), companyID, day); err != nil {
			return fmt.Errorf("upcoming forecasts: %w", err)
		}
		return nil
	})
	return snap, err
}
