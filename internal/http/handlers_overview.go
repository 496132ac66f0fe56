package http

import (
	"net/http"
	"strings"

	"finledger/internal/log"
	"finledger/internal/services"
)

type overviewBalanceJSON struct {
	ReportDate string `json:"reportDate"`
	Total      any    `json:"total"`
	Currency   string `json:"currency"`
}

type flowJSON struct {
	Period   string `json:"period"`
	Amount   any    `json:"amount"`
	Currency string `json:"currency"`
}

type forecastTotalsJSON struct {
	Certain   any    `json:"certain"`
	Uncertain any    `json:"uncertain"`
	Currency  string `json:"currency"`
}

type companyOverviewJSON struct {
	CompanyID string               `json:"companyId"`
	Balance   *overviewBalanceJSON `json:"balance,omitempty"`
	Revenue   *flowJSON            `json:"revenue,omitempty"`
	Expense   *flowJSON            `json:"expense,omitempty"`
	Forecast  forecastTotalsJSON   `json:"forecast"`
}

func toFlowJSON(f *services.FlowSnapshot, major bool) *flowJSON {
	if f == nil {
		return nil
	}
	return &flowJSON{
		Period:   f.Month.String(),
		Amount:   amountFormat{major: major, currency: f.Currency}.one(f.Minor),
		Currency: f.Currency,
	}
}

// handleOverview returns the per-company dashboard snapshot as of asOf
// (today by default).
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asOf, err := QueryDate(q, "asOf", s.today())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	major, err := QueryUnit(q)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	ov, err := s.deps.Overview.Overview(r.Context(), services.OverviewQuery{
		CompanyID: strings.TrimSpace(q.Get("companyId")),
		AsOf:      asOf,
	})
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	companies := make([]companyOverviewJSON, 0, len(ov.Companies))
	for _, c := range ov.Companies {
		currency := c.Forecast.Currency
		if currency == "" {
			currency = s.deps.Currency
		}
		f := amountFormat{major: major, currency: currency}
		out := companyOverviewJSON{
			CompanyID: c.CompanyID,
			Revenue:   toFlowJSON(c.Revenue, major),
			Expense:   toFlowJSON(c.Expense, major),
			Forecast: forecastTotalsJSON{
				Certain:   f.one(c.Forecast.Certain),
				Uncertain: f.one(c.Forecast.Uncertain),
				Currency:  currency,
			},
		}
		if b := c.Balance; b != nil {
			out.Balance = &overviewBalanceJSON{
				ReportDate: b.Date.String(),
				Total:      amountFormat{major: major, currency: b.Currency}.one(b.Minor),
				Currency:   b.Currency,
			}
		}
		companies = append(companies, out)
	}
	NewJSONResponse().Body(map[string]any{
		"asOf":      ov.AsOf.String(),
		"unit":      unitName(major),
		"companies": companies,
	}).Write(w)
}
