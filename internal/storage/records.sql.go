package storage

import (
	"context"
	"database/sql"
)

const ledgerColumns = `id, kind, company_id, occurred_on, amount_minor, currency, category_id, category_path,
description, account_name, confidence, notes, import_job_id, natural_key, superseded_by, superseded_at, created_at`

const forecastColumns = `id, kind, company_id, target_date, certainty, amount_minor, currency, category_id, category_path,
description, account_name, product_line, product_name, confidence, notes, import_job_id, natural_key,
superseded_by, superseded_at, created_at`

func scanLedger(row interface{ Scan(...any) error }) (LedgerRecord, error) {
	var i LedgerRecord
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.CompanyID,
		&i.OccurredOn,
		&i.AmountMinor,
		&i.Currency,
		&i.CategoryID,
		&i.CategoryPath,
		&i.Description,
		&i.AccountName,
		&i.Confidence,
		&i.Notes,
		&i.ImportJobID,
		&i.NaturalKey,
		&i.SupersededBy,
		&i.SupersededAt,
		&i.CreatedAt,
	)
	return i, err
}

func scanForecast(row interface{ Scan(...any) error }) (ForecastRecord, error) {
	var i ForecastRecord
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.CompanyID,
		&i.TargetDate,
		&i.Certainty,
		&i.AmountMinor,
		&i.Currency,
		&i.CategoryID,
		&i.CategoryPath,
		&i.Description,
		&i.AccountName,
		&i.ProductLine,
		&i.ProductName,
		&i.Confidence,
		&i.Notes,
		&i.ImportJobID,
		&i.NaturalKey,
		&i.SupersededBy,
		&i.SupersededAt,
		&i.CreatedAt,
	)
	return i, err
}

const insertLedgerRecord = `-- name: InsertLedgerRecord :exec
INSERT INTO ledger_records (id, kind, company_id, occurred_on, amount_minor, currency, category_id, category_path,
    description, account_name, confidence, notes, import_job_id, natural_key, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15)
`

func (q *Queries) InsertLedgerRecord(ctx context.Context, arg LedgerRecord) error {
	_, err := q.db.ExecContext(ctx, insertLedgerRecord,
		arg.ID,
		arg.Kind,
		arg.CompanyID,
		arg.OccurredOn,
		arg.AmountMinor,
		arg.Currency,
		arg.CategoryID,
		arg.CategoryPath,
		arg.Description,
		arg.AccountName,
		arg.Confidence,
		arg.Notes,
		arg.ImportJobID,
		arg.NaturalKey,
		arg.CreatedAt,
	)
	return err
}

const insertForecastRecord = `-- name: InsertForecastRecord :exec
INSERT INTO forecast_records (id, kind, company_id, target_date, certainty, amount_minor, currency, category_id,
    category_path, description, account_name, product_line, product_name, confidence, notes, import_job_id,
    natural_key, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16, ?17, ?18)
`

func (q *Queries) InsertForecastRecord(ctx context.Context, arg ForecastRecord) error {
	_, err := q.db.ExecContext(ctx, insertForecastRecord,
		arg.ID,
		arg.Kind,
		arg.CompanyID,
		arg.TargetDate,
		arg.Certainty,
		arg.AmountMinor,
		arg.Currency,
		arg.CategoryID,
		arg.CategoryPath,
		arg.Description,
		arg.AccountName,
		arg.ProductLine,
		arg.ProductName,
		arg.Confidence,
		arg.Notes,
		arg.ImportJobID,
		arg.NaturalKey,
		arg.CreatedAt,
	)
	return err
}

const getActiveLedgerByKey = `-- name: GetActiveLedgerByKey :one
SELECT ` + ledgerColumns + `
FROM ledger_records
WHERE kind = ?1 AND natural_key = ?2 AND superseded_by IS NULL
`

func (q *Queries) GetActiveLedgerByKey(ctx context.Context, kind, naturalKey string) (LedgerRecord, error) {
	return scanLedger(q.db.QueryRowContext(ctx, getActiveLedgerByKey, kind, naturalKey))
}

const getActiveForecastByKey = `-- name: GetActiveForecastByKey :one
SELECT ` + forecastColumns + `
FROM forecast_records
WHERE kind = ?1 AND natural_key = ?2 AND superseded_by IS NULL
`

func (q *Queries) GetActiveForecastByKey(ctx context.Context, kind, naturalKey string) (ForecastRecord, error) {
	return scanForecast(q.db.QueryRowContext(ctx, getActiveForecastByKey, kind, naturalKey))
}

const supersedeLedgerRecord = `-- name: SupersedeLedgerRecord :execrows
UPDATE ledger_records SET superseded_by = ?2, superseded_at = ?3
WHERE id = ?1 AND superseded_by IS NULL
`

func (q *Queries) SupersedeLedgerRecord(ctx context.Context, id, by, at string) (int64, error) {
	result, err := q.db.ExecContext(ctx, supersedeLedgerRecord, id, by, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const supersedeForecastRecord = `-- name: SupersedeForecastRecord :execrows
UPDATE forecast_records SET superseded_by = ?2, superseded_at = ?3
WHERE id = ?1 AND superseded_by IS NULL
`

func (q *Queries) SupersedeForecastRecord(ctx context.Context, id, by, at string) (int64, error) {
	result, err := q.db.ExecContext(ctx, supersedeForecastRecord, id, by, at)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Date bounds are half-open: from <= date < to. Dates are stored as
// YYYY-MM-DD so string comparison orders them correctly.

const listActiveLedger = `-- name: ListActiveLedger :many
SELECT ` + ledgerColumns + `
FROM ledger_records
WHERE kind = ?1 AND superseded_by IS NULL
  AND (?2 = '' OR company_id = ?2)
  AND occurred_on >= ?3 AND occurred_on < ?4
ORDER BY occurred_on, id
`

type ListRecordsParams struct {
	Kind      string
	CompanyID string
	From      string
	To        string
}

func (q *Queries) ListActiveLedger(ctx context.Context, arg ListRecordsParams) ([]LedgerRecord, error) {
	rows, err := q.db.QueryContext(ctx, listActiveLedger, arg.Kind, arg.CompanyID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRecord
	for rows.Next() {
		i, err := scanLedger(rows)
		if err != nil {
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

const listActiveForecasts = `-- name: ListActiveForecasts :many
SELECT ` + forecastColumns + `
FROM forecast_records
WHERE kind = ?1 AND superseded_by IS NULL
  AND (?2 = '' OR company_id = ?2)
  AND target_date >= ?3 AND target_date < ?4
ORDER BY target_date, id
`

func (q *Queries) ListActiveForecasts(ctx context.Context, arg ListRecordsParams) ([]ForecastRecord, error) {
	rows, err := q.db.QueryContext(ctx, listActiveForecasts, arg.Kind, arg.CompanyID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ForecastRecord
	for rows.Next() {
		i, err := scanForecast(rows)
		if err != nil {
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

const latestBalances = `-- name: LatestBalances :many
SELECT r.company_id, r.occurred_on, r.amount_minor, r.currency
FROM ledger_records r
WHERE r.kind = 'account_balance' AND r.superseded_by IS NULL
  AND (?1 = '' OR r.company_id = ?1)
  AND r.occurred_on = (
    SELECT MAX(b.occurred_on) FROM ledger_records b
    WHERE b.kind = 'account_balance' AND b.superseded_by IS NULL
      AND b.company_id = r.company_id AND b.occurred_on <= ?2
  )
ORDER BY r.company_id, r.id
`

type LatestBalancesRow struct {
	CompanyID   string
	OccurredOn  string
	AmountMinor int64
	Currency    string
}

func (q *Queries) LatestBalances(ctx context.Context, companyID, asOf string) ([]LatestBalancesRow, error) {
	rows, err := q.db.QueryContext(ctx, latestBalances, companyID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LatestBalancesRow
	for rows.Next() {
		var i LatestBalancesRow
		if err := rows.Scan(&i.CompanyID, &i.OccurredOn, &i.AmountMinor, &i.Currency); err != nil {
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

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullFloat64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
