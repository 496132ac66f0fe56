package services

import (
	"context"
	"fmt"

	"finledger/internal/cashflow"
	"finledger/internal/core"
	"finledger/internal/log"
)

// BalanceSource tells where a projection's starting balance came from.
type BalanceSource string

const (
	BalanceFromRequest BalanceSource = "request"
	BalanceFromLedger  BalanceSource = "account_balance"
	BalanceZero        BalanceSource = "zero"
)

type CashflowQuery struct {
	CompanyID string
	AsOf      core.Date
	// StartingBalance overrides the latest recorded account balance.
	StartingBalance *int64
	Options         cashflow.Options
}

type CashflowResult struct {
	CompanyID             string
	AsOf                  core.Date
	StartingBalance       int64
	StartingBalanceSource BalanceSource
	// BalanceDate is set when the balance came from the ledger.
	BalanceDate *core.Date
	Revision    int64
	Rows        []cashflow.Row
}

type CashflowService struct {
	store  CashflowStore
	logger *log.Logger
}

func NewCashflowService(store CashflowStore, logger *log.Logger) *CashflowService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CashflowService{store: store, logger: logger.WithComponent(log.ComponentCashflow)}
}

func (s *CashflowService) Project(ctx context.Context, q CashflowQuery) (CashflowResult, error) {
	if err := q.AsOf.Validate(); err != nil {
		return CashflowResult{}, invalidRequest("asOf", err)
	}

	snap, err := s.store.LoadCashflowSnapshot(ctx, q.CompanyID, q.AsOf)
	if err != nil {
		return CashflowResult{}, fmt.Errorf("load cashflow snapshot: %w", err)
	}

	res := CashflowResult{
		CompanyID: q.CompanyID,
		AsOf:      q.AsOf,
		Revision:  snap.Revision,
	}
	switch {
	case q.StartingBalance != nil:
		res.StartingBalance = *q.StartingBalance
		res.StartingBalanceSource = BalanceFromRequest
	case snap.BalanceFound:
		res.StartingBalance = snap.Balance
		res.StartingBalanceSource = BalanceFromLedger
		d := snap.BalanceDate
		res.BalanceDate = &d
	default:
		res.StartingBalanceSource = BalanceZero
	}

	buckets := make([]cashflow.Bucket, 0, len(snap.IncomeForecasts)+len(snap.ExpenseForecasts))
	skipped := 0
	for _, f := range snap.IncomeForecasts {
		b := cashflow.Bucket{Month: f.TargetDate.Month()}
		switch f.Certainty {
		case core.Certain:
			b.CertainIncome = f.Amount.Minor
		case core.Uncertain:
			b.UncertainIncome = f.Amount.Minor
		default:
			skipped++
			continue
		}
		buckets = append(buckets, b)
	}
	for _, f := range snap.ExpenseForecasts {
		buckets = append(buckets, cashflow.Bucket{Month: f.TargetDate.Month(), Expense: f.Amount.Minor})
	}
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Income forecasts with unknown certainty excluded", "count", skipped)
	}

	res.Rows = cashflow.Project(res.StartingBalance, q.AsOf.Month(), buckets, q.Options)

	s.logger.DebugContext(ctx, "Cash flow projected",
		log.FieldCompanyID, q.CompanyID,
		"as_of", q.AsOf.String(),
		"balance_source", res.StartingBalanceSource,
		"rows", len(res.Rows))
	return res, nil
}

// Balances returns the account balance history between from and to inclusive.
func (s *CashflowService) Balances(ctx context.Context, companyID string, from, to core.Date) ([]core.LedgerRecord, error) {
	if err := from.Validate(); err != nil {
		return nil, invalidRequest("from", err)
	}
	if err := to.Validate(); err != nil {
		return nil, invalidRequest("to", err)
	}
	if to.Before(from.Time) {
		return nil, invalidRequest("to", fmt.Errorf("%w: %s is before %s", core.ErrInvalidDate, to, from))
	}
	return s.store.ListBalances(ctx, companyID, from, to)
}
