package http

import (
	"net/http"
	"strings"

	"finledger/internal/cashflow"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

type cashflowRowJSON struct {
	Month           string `json:"month"`
	OpeningBalance  any    `json:"openingBalance"`
	CertainIncome   any    `json:"certainIncome"`
	UncertainIncome any    `json:"uncertainIncome"`
	Expense         any    `json:"expense"`
	ClosingBalance  any    `json:"closingBalance"`
}

type cashflowJSON struct {
	CompanyID             string            `json:"companyId,omitempty"`
	AsOf                  string            `json:"asOf"`
	Unit                  string            `json:"unit"`
	StartingBalance       any               `json:"startingBalance"`
	StartingBalanceSource string            `json:"startingBalanceSource"`
	BalanceDate           string            `json:"balanceDate,omitempty"`
	IncludeCertain        bool              `json:"includeCertain"`
	IncludeUncertain      bool              `json:"includeUncertain"`
	Rows                  []cashflowRowJSON `json:"rows"`
}

// handleCashflow projects the balance forward from asOf (today by default).
// startingBalance is a major-unit decimal; without it the latest recorded
// account balance is used.
func (s *Server) handleCashflow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	def := cashflow.DefaultOptions()

	asOf, err := QueryDate(q, "asOf", s.today())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	start, err := QueryAmount(q, "startingBalance", s.deps.Currency)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	includeCertain, err := QueryBool(q, "includeCertain", def.IncludeCertain)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	includeUncertain, err := QueryBool(q, "includeUncertain", def.IncludeUncertain)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	major, err := QueryUnit(q)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	res, err := s.deps.Cashflow.Project(r.Context(), services.CashflowQuery{
		CompanyID:       strings.TrimSpace(q.Get("companyId")),
		AsOf:            asOf,
		StartingBalance: start,
		Options: cashflow.Options{
			IncludeCertain:   includeCertain,
			IncludeUncertain: includeUncertain,
		},
	})
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	f := amountFormat{major: major, currency: s.deps.Currency}
	out := cashflowJSON{
		CompanyID:             res.CompanyID,
		AsOf:                  res.AsOf.String(),
		Unit:                  unitName(major),
		StartingBalance:       f.one(res.StartingBalance),
		StartingBalanceSource: string(res.StartingBalanceSource),
		IncludeCertain:        includeCertain,
		IncludeUncertain:      includeUncertain,
		Rows:                  make([]cashflowRowJSON, 0, len(res.Rows)),
	}
	if res.BalanceDate != nil {
		out.BalanceDate = res.BalanceDate.String()
	}
	for _, row := range res.Rows {
		out.Rows = append(out.Rows, cashflowRowJSON{
			Month:           row.Month.String(),
			OpeningBalance:  f.one(row.Opening),
			CertainIncome:   f.one(row.CertainIncome),
			UncertainIncome: f.one(row.UncertainIncome),
			Expense:         f.one(row.Expense),
			ClosingBalance:  f.one(row.Closing),
		})
	}
	NewJSONResponse().Body(out).Write(w)
}

type balanceJSON struct {
	ID          string `json:"id"`
	CompanyID   string `json:"companyId"`
	ReportDate  string `json:"reportDate"`
	Balance     any    `json:"balance"`
	Currency    string `json:"currency"`
	AccountName string `json:"accountName,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ImportJobID string `json:"importJobId,omitempty"`
}

// handleBalances lists account balances between from (1900-01-01 by default)
// and to (today by default). Amounts render in each record's own currency.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := QueryDate(q, "from", core.NewDate(1900, 1, 1))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	to, err := QueryDate(q, "to", s.today())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	major, err := QueryUnit(q)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	companyID := strings.TrimSpace(q.Get("companyId"))
	recs, err := s.deps.Cashflow.Balances(r.Context(), companyID, from, to)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	out := make([]balanceJSON, 0, len(recs))
	for _, rec := range recs {
		f := amountFormat{major: major, currency: rec.Currency}
		out = append(out, balanceJSON{
			ID:          rec.ID,
			CompanyID:   rec.CompanyID,
			ReportDate:  rec.OccurredOn.String(),
			Balance:     f.one(rec.Amount.Minor),
			Currency:    rec.Currency,
			AccountName: rec.AccountName,
			Notes:       rec.Notes,
			ImportJobID: rec.ImportJobID,
		})
	}
	NewJSONResponse().Body(map[string]any{
		"companyId": companyID,
		"from":      from.String(),
		"to":        to.String(),
		"unit":      unitName(major),
		"balances":  out,
	}).Write(w)
}
