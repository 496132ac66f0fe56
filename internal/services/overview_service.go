package services

import (
	"context"
	"fmt"
	"sort"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

type OverviewQuery struct {
	CompanyID string
	AsOf      core.Date
}

// BalanceSnapshot is a company's latest account balance on or before as-of.
type BalanceSnapshot struct {
	Date     core.Date
	Minor    int64
	Currency string
}

// FlowSnapshot is the total of a company's latest month with activity.
type FlowSnapshot struct {
	Month    core.Month
	Minor    int64
	Currency string
}

// ForecastTotals sums the income forecasts due on or after as-of.
type ForecastTotals struct {
	Certain   int64
	Uncertain int64
	Currency  string
}

type CompanyOverview struct {
	CompanyID string
	Balance   *BalanceSnapshot
	Revenue   *FlowSnapshot
	Expense   *FlowSnapshot
	Forecast  ForecastTotals
}

type Overview struct {
	AsOf      core.Date
	Revision  int64
	Companies []CompanyOverview
}

// OverviewService builds the per-company dashboard snapshot.
type OverviewService struct {
	store  OverviewStore
	logger *log.Logger
}

func NewOverviewService(store OverviewStore, logger *log.Logger) *OverviewService {
	if logger == nil {
		logger = log.Discard()
	}
	return &OverviewService{store: store, logger: logger.WithComponent(log.ComponentSummary)}
}

// Overview returns one entry per company with data, ordered by company id.
// A requested company is always listed, even with nothing on record.
func (s *OverviewService) Overview(ctx context.Context, q OverviewQuery) (Overview, error) {
	if err := q.AsOf.Validate(); err != nil {
		return Overview{}, invalidRequest("asOf", err)
	}
	snap, err := s.store.LoadOverviewSnapshot(ctx, q.CompanyID, q.AsOf)
	if err != nil {
		return Overview{}, fmt.Errorf("load overview snapshot: %w", err)
	}

	companies := map[string]*CompanyOverview{}
	company := func(id string) *CompanyOverview {
		c, ok := companies[id]
		if !ok {
			c = &CompanyOverview{CompanyID: id}
			companies[id] = c
		}
		return c
	}
	if q.CompanyID != "" {
		company(q.CompanyID)
	}

	for _, b := range snap.Balances {
		d, err := core.ParseDate(b.OccurredOn)
		if err != nil {
			return Overview{}, fmt.Errorf("balance date %q: %w", b.OccurredOn, err)
		}
		c := company(b.CompanyID)
		if c.Balance == nil {
			c.Balance = &BalanceSnapshot{Date: d, Currency: b.Currency}
		}
		sum, err := core.Money{Minor: c.Balance.Minor}.Add(core.Money{Minor: b.AmountMinor})
		if err != nil {
			return Overview{}, fmt.Errorf("balance of %s: %w", b.CompanyID, err)
		}
		c.Balance.Minor = sum.Minor
	}

	flows := func(rows []storage.MonthTotalRow, set func(*CompanyOverview, *FlowSnapshot)) error {
		for _, r := range rows {
			m, err := core.ParseMonth(r.Month)
			if err != nil {
				return err
			}
			set(company(r.CompanyID), &FlowSnapshot{Month: m, Minor: r.AmountMinor, Currency: r.Currency})
		}
		return nil
	}
	if err := flows(snap.Revenue, func(c *CompanyOverview, f *FlowSnapshot) { c.Revenue = f }); err != nil {
		return Overview{}, fmt.Errorf("revenue month: %w", err)
	}
	if err := flows(snap.Expense, func(c *CompanyOverview, f *FlowSnapshot) { c.Expense = f }); err != nil {
		return Overview{}, fmt.Errorf("expense month: %w", err)
	}

	for _, f := range snap.Forecasts {
		c := company(f.CompanyID)
		if c.Forecast.Currency == "" {
			c.Forecast.Currency = f.Currency
		}
		switch core.Certainty(f.Certainty) {
		case core.Certain:
			c.Forecast.Certain = f.AmountMinor
		case core.Uncertain:
			c.Forecast.Uncertain = f.AmountMinor
		default:
			s.logger.WarnContext(ctx, "Skipping forecast total with unknown certainty",
				log.FieldCompanyID, f.CompanyID, "certainty", f.Certainty)
		}
	}

	out := Overview{AsOf: q.AsOf, Revision: snap.Revision, Companies: make([]CompanyOverview, 0, len(companies))}
	for _, c := range companies {
		out.Companies = append(out.Companies, *c)
	}
	sort.Slice(out.Companies, func(i, j int) bool { return out.Companies[i].CompanyID < out.Companies[j].CompanyID })
	return out, nil
}
