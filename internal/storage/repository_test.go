package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createJob(t *testing.T, repo *SQLiteRepository, id string) {
	t.Helper()
	require.NoError(t, repo.CreateJob(context.Background(), core.ImportJob{
		ID:         id,
		Status:     core.StatusPendingReview,
		SourceType: core.SourceManualUpload,
		CreatedAt:  time.Now(),
		Candidates: []core.Candidate{
			{Index: 0, RecordKind: core.Revenue, Payload: json.RawMessage(`{"amount":"1"}`), State: core.CandidateProposed, Warnings: []string{"low contrast"}},
			{Index: 1, RecordKind: core.Expense, Payload: json.RawMessage(`{}`), State: core.CandidateRejected, Reason: "amount: invalid amount"},
		},
	}))
}

func entry(kind core.RecordKind, company string, day int, minor int64, path ...string) core.Entry {
	return core.Entry{
		Kind:         kind,
		CompanyID:    company,
		Date:         core.NewDate(2025, 3, day),
		Amount:       core.Money{Minor: minor},
		Currency:     "CNY",
		CategoryPath: path,
		Description:  "item",
	}
}

func TestCreateAndGetJob(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	job, err := repo.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPendingReview, job.Status)
	require.Len(t, job.Candidates, 2)
	assert.Equal(t, []string{"low contrast"}, job.Candidates[0].Warnings)
	assert.Equal(t, core.CandidateRejected, job.Candidates[1].State)
	assert.JSONEq(t, `{"amount":"1"}`, string(job.Candidates[0].Payload))

	_, err = repo.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureCategoryPathIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var first, second *core.Category
	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		var err error
		first, err = tx.EnsureCategoryPath(ctx, core.RevenueCategories, []string{"Sales", "Online"})
		return err
	}))
	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		var err error
		second, err = tx.EnsureCategoryPath(ctx, core.RevenueCategories, []string{"Sales", "Online"})
		return err
	}))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Level)
	assert.Equal(t, "Sales/Online", second.FullPath)

	cats, err := repo.ListCategories(ctx, core.RevenueCategories)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Nil(t, cats[0].ParentID)
	assert.Equal(t, cats[0].ID, *cats[1].ParentID)

	other, err := repo.ListCategories(ctx, core.ExpenseCategories)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDisableCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var cat *core.Category
	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		var err error
		cat, err = tx.EnsureCategoryPath(ctx, core.ExpenseCategories, []string{"Rent"})
		return err
	}))

	disabled, err := repo.DisableCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	_, err = repo.DisableCategory(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveKeyIsUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	insert := func(id string) error {
		return repo.InTx(ctx, func(tx *Tx) error {
			return tx.InsertRecord(ctx, NewRecord{
				ID: id, JobID: "job-1", NaturalKey: "k", Entry: entry(core.Revenue, "acme", 1, 100),
			})
		})
	}
	require.NoError(t, insert("r1"))
	assert.Error(t, insert("r2"), "a second active record with the same key must be refused")

	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		if err := tx.Supersede(ctx, core.Revenue, "r1", "r2"); err != nil {
			return err
		}
		return tx.InsertRecord(ctx, NewRecord{
			ID: "r2", JobID: "job-1", NaturalKey: "k", Entry: entry(core.Revenue, "acme", 1, 200),
		})
	}))

	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		active, err := tx.ActiveRecord(ctx, core.Revenue, "k")
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "r2", active.ID)
		assert.Equal(t, int64(200), active.Entry.Amount.Minor)

		none, err := tx.ActiveRecord(ctx, core.Expense, "k")
		require.NoError(t, err)
		assert.Nil(t, none)
		return nil
	}))
}

func TestConfirmationLogsAreAppendOnly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		for i := 0; i < 2; i++ {
			l, err := tx.AppendLog(ctx, core.ConfirmationLog{
				ImportJobID: "job-1", RecordKind: core.Revenue, Action: core.ActionRejected,
			})
			if err != nil {
				return err
			}
			assert.Equal(t, i+1, l.Sequence)
		}
		return nil
	}))

	_, err := repo.db.ExecContext(ctx, `UPDATE confirmation_logs SET comment = 'x'`)
	assert.Error(t, err)
	_, err = repo.db.ExecContext(ctx, `DELETE FROM confirmation_logs`)
	assert.Error(t, err)

	logs, err := repo.ListConfirmationLogs(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = repo.ListConfirmationLogs(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRollbackLeavesNothingBehind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	err := repo.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertRecord(ctx, NewRecord{ID: "r1", JobID: "job-1", NaturalKey: "a", Entry: entry(core.Revenue, "acme", 1, 1)}); err != nil {
			return err
		}
		if _, err := tx.BumpRevision(ctx); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	rev, err := repo.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)

	snap, err := repo.LoadLedgerSnapshot(ctx, SnapshotQuery{Kind: core.Revenue, Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, snap.Actuals)
}

func TestLoadLedgerSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		cat, err := tx.EnsureCategoryPath(ctx, core.RevenueCategories, []string{"Sales"})
		if err != nil {
			return err
		}
		fcat, err := tx.EnsureCategoryPath(ctx, core.ForecastCategories, []string{"Sales"})
		if err != nil {
			return err
		}
		records := []NewRecord{
			{ID: "a", NaturalKey: "a", CategoryID: &cat.ID, Entry: entry(core.Revenue, "acme", 1, 100, "Sales")},
			{ID: "b", NaturalKey: "b", Entry: entry(core.Revenue, "other", 2, 50)},
			{ID: "c", NaturalKey: "c", Entry: entry(core.Expense, "acme", 1, 70)},
			{ID: "d", NaturalKey: "d", CategoryID: &fcat.ID, Entry: core.Entry{
				Kind: core.IncomeForecast, CompanyID: "acme", Date: core.NewDate(2025, 9, 1),
				Amount: core.Money{Minor: 30}, Currency: "CNY", Certainty: core.Uncertain,
			}},
			{ID: "e", NaturalKey: "e", Entry: core.Entry{
				Kind: core.Revenue, CompanyID: "acme", Date: core.NewDate(2024, 12, 31),
				Amount: core.Money{Minor: 5}, Currency: "CNY",
			}},
		}
		for _, r := range records {
			r.JobID = "job-1"
			if err := tx.InsertRecord(ctx, r); err != nil {
				return err
			}
		}
		_, err = tx.BumpRevision(ctx)
		return err
	}))

	snap, err := repo.LoadLedgerSnapshot(ctx, SnapshotQuery{Kind: core.Revenue, CompanyID: "acme", Year: 2025, IncludeForecast: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Revision)
	require.Len(t, snap.Actuals, 1)
	assert.Equal(t, "a", snap.Actuals[0].ID)
	require.Len(t, snap.Forecasts, 1)
	assert.Equal(t, core.Uncertain, snap.Forecasts[0].Certainty)
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.ForecastCategories, 1)

	all, err := repo.LoadLedgerSnapshot(ctx, SnapshotQuery{Kind: core.Revenue, Year: 2025})
	require.NoError(t, err)
	assert.Len(t, all.Actuals, 2)
	assert.Empty(t, all.Forecasts)
}

func TestLoadCashflowSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	balance := func(id, company string, d core.Date, minor int64) NewRecord {
		return NewRecord{ID: id, JobID: "job-1", NaturalKey: id, Entry: core.Entry{
			Kind: core.AccountBalance, CompanyID: company, Date: d, Amount: core.Money{Minor: minor}, Currency: "CNY",
		}}
	}
	forecast := func(id string, kind core.RecordKind, d core.Date, minor int64) NewRecord {
		return NewRecord{ID: id, JobID: "job-1", NaturalKey: id, Entry: core.Entry{
			Kind: kind, CompanyID: "acme", Date: d, Amount: core.Money{Minor: minor}, Currency: "CNY", Certainty: core.Certain,
		}}
	}
	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		for _, r := range []NewRecord{
			balance("b1", "acme", core.NewDate(2025, 1, 31), 1000),
			balance("b2", "acme", core.NewDate(2025, 2, 28), 2000),
			balance("b3", "acme", core.NewDate(2025, 4, 30), 9999),
			balance("b4", "beta", core.NewDate(2025, 1, 15), 300),
			forecast("f1", core.IncomeForecast, core.NewDate(2025, 2, 10), 1),
			forecast("f2", core.IncomeForecast, core.NewDate(2025, 3, 1), 2),
			forecast("f3", core.ExpenseForecast, core.NewDate(2025, 5, 1), 3),
		} {
			if err := tx.InsertRecord(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	asOf := core.NewDate(2025, 3, 15)
	snap, err := repo.LoadCashflowSnapshot(ctx, "acme", asOf)
	require.NoError(t, err)
	assert.True(t, snap.BalanceFound)
	assert.Equal(t, int64(2000), snap.Balance)
	assert.Equal(t, "2025-02-28", snap.BalanceDate.String())
	require.Len(t, snap.IncomeForecasts, 1)
	assert.Equal(t, "f2", snap.IncomeForecasts[0].ID)
	assert.Len(t, snap.ExpenseForecasts, 1)

	all, err := repo.LoadCashflowSnapshot(ctx, "", asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(2300), all.Balance)

	none, err := repo.LoadCashflowSnapshot(ctx, "acme", core.NewDate(2024, 1, 1))
	require.NoError(t, err)
	assert.False(t, none.BalanceFound)

	history, err := repo.ListBalances(ctx, "acme", core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 28))
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLoadOverviewSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	createJob(t, repo, "job-1")

	rec := func(id string, kind core.RecordKind, company string, d core.Date, minor int64, certainty core.Certainty) NewRecord {
		return NewRecord{ID: id, JobID: "job-1", NaturalKey: id, Entry: core.Entry{
			Kind: kind, CompanyID: company, Date: d, Amount: core.Money{Minor: minor}, Currency: "CNY", Certainty: certainty,
		}}
	}
	require.NoError(t, repo.InTx(ctx, func(tx *Tx) error {
		for _, r := range []NewRecord{
			rec("b1", core.AccountBalance, "acme", core.NewDate(2025, 2, 28), 5000, ""),
			rec("b2", core.AccountBalance, "acme", core.NewDate(2025, 4, 30), 7000, ""),
			rec("r1", core.Revenue, "acme", core.NewDate(2025, 2, 10), 100, ""),
			rec("r2", core.Revenue, "acme", core.NewDate(2025, 3, 1), 200, ""),
			rec("r3", core.Revenue, "acme", core.NewDate(2025, 3, 14), 300, ""),
			rec("r4", core.Revenue, "acme", core.NewDate(2025, 3, 20), 999, ""),
			rec("r5", core.Revenue, "beta", core.NewDate(2025, 1, 5), 40, ""),
			rec("e1", core.Expense, "acme", core.NewDate(2025, 1, 1), 80, ""),
			rec("f1", core.IncomeForecast, "acme", core.NewDate(2025, 3, 10), 1, core.Certain),
			rec("f2", core.IncomeForecast, "acme", core.NewDate(2025, 3, 15), 20, core.Certain),
			rec("f3", core.IncomeForecast, "acme", core.NewDate(2025, 6, 1), 30, core.Certain),
			rec("f4", core.IncomeForecast, "beta", core.NewDate(2025, 7, 1), 50, core.Uncertain),
			rec("f5", core.ExpenseForecast, "acme", core.NewDate(2025, 7, 1), 70, core.Certain),
		} {
			if err := tx.InsertRecord(ctx, r); err != nil {
				return err
			}
		}
		_, err := tx.BumpRevision(ctx)
		return err
	}))

	asOf := core.NewDate(2025, 3, 15)
	snap, err := repo.LoadOverviewSnapshot(ctx, "", asOf)
	require.NoError(t, err)
	assert.EqualValues(t, 1, snap.Revision)

	require.Len(t, snap.Balances, 1)
	assert.Equal(t, "acme", snap.Balances[0].CompanyID)
	assert.EqualValues(t, 5000, snap.Balances[0].AmountMinor)

	require.Len(t, snap.Revenue, 2)
	assert.Equal(t, MonthTotalRow{CompanyID: "acme", Month: "2025-03", AmountMinor: 500, Currency: "CNY"}, snap.Revenue[0])
	assert.Equal(t, MonthTotalRow{CompanyID: "beta", Month: "2025-01", AmountMinor: 40, Currency: "CNY"}, snap.Revenue[1])

	require.Len(t, snap.Expense, 1)
	assert.Equal(t, "2025-01", snap.Expense[0].Month)

	require.Len(t, snap.Forecasts, 2)
	assert.Equal(t, ForecastTotalRow{CompanyID: "acme", Certainty: "certain", AmountMinor: 50, Currency: "CNY"}, snap.Forecasts[0])
	assert.Equal(t, ForecastTotalRow{CompanyID: "beta", Certainty: "uncertain", AmountMinor: 50, Currency: "CNY"}, snap.Forecasts[1])

	beta, err := repo.LoadOverviewSnapshot(ctx, "beta", asOf)
	require.NoError(t, err)
	assert.Empty(t, beta.Balances)
	require.Len(t, beta.Revenue, 1)
	assert.Equal(t, "beta", beta.Revenue[0].CompanyID)
}
