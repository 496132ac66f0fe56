package storage

import (
	"context"
)

const latestMonthTotals = `-- name: LatestMonthTotals :many
SELECT r.company_id, substr(r.occurred_on, 1, 7) AS month, SUM(r.amount_minor), MAX(r.currency)
FROM ledger_records r
WHERE r.kind = ?1 AND r.superseded_by IS NULL
  AND (?2 = '' OR r.company_id = ?2)
  AND r.occurred_on <= ?3
  AND substr(r.occurred_on, 1, 7) = (
    SELECT substr(MAX(b.occurred_on), 1, 7) FROM ledger_records b
    WHERE b.kind = ?1 AND b.superseded_by IS NULL
      AND b.company_id = r.company_id AND b.occurred_on <= ?3
  )
GROUP BY r.company_id, month
ORDER BY r.company_id
`

type MonthTotalRow struct {
	CompanyID   string
	Month       string
	AmountMinor int64
	Currency    string
}

// LatestMonthTotals sums, per company, the records of kind in the latest
// month with activity on or before asOf. Records after asOf are left out.
func (q *Queries) LatestMonthTotals(ctx context.Context, kind, companyID, asOf string) ([]MonthTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, latestMonthTotals, kind, companyID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthTotalRow
	for rows.Next() {
		var i MonthTotalRow
		if err := rows.Scan(&i.CompanyID, &i.Month, &i.AmountMinor, &i.Currency); err != nil {
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

const upcomingForecastTotals = `-- name: UpcomingForecastTotals :many
SELECT company_id, certainty, SUM(amount_minor), MAX(currency)
FROM forecast_records
WHERE kind = ?1 AND superseded_by IS NULL
  AND (?2 = '' OR company_id = ?2)
  AND target_date >= ?3
GROUP BY company_id, certainty
ORDER BY company_id, certainty
`

type ForecastTotalRow struct {
	CompanyID   string
	Certainty   string
	AmountMinor int64
	Currency    string
}

func (q *Queries) UpcomingForecastTotals(ctx context.Context, kind, companyID, from string) ([]ForecastTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, upcomingForecastTotals, kind, companyID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ForecastTotalRow
	for rows.Next() {
		var i ForecastTotalRow
		if err := rows.Scan(&i.CompanyID, &i.Certainty, &i.AmountMinor, &i.Currency); err != nil {
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
