package http

import (
	"errors"
	"net/http"
	"strings"

	"finledger/internal/category"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/rollup"
	"finledger/internal/services"
)

// amountFormat renders minor units either as integers or, for unit=major,
// as fixed-point decimal strings.
type amountFormat struct {
	major    bool
	currency string
}

func (f amountFormat) one(minor int64) any {
	if f.major {
		return core.MinorToMajor(minor, f.currency)
	}
	return minor
}

func (f amountFormat) months(m [12]int64) []any {
	out := make([]any, len(m))
	for i, v := range m {
		out[i] = f.one(v)
	}
	return out
}

type totalsJSON struct {
	Monthly                  []any `json:"monthly"`
	Total                    any   `json:"total"`
	ForecastCertainMonthly   []any `json:"forecastCertainMonthly,omitempty"`
	ForecastUncertainMonthly []any `json:"forecastUncertainMonthly,omitempty"`
	ForecastCertainTotal     any   `json:"forecastCertainTotal,omitempty"`
	ForecastUncertainTotal   any   `json:"forecastUncertainTotal,omitempty"`
}

type nodeJSON struct {
	Label  string `json:"label"`
	Level  int    `json:"level"`
	Path   string `json:"path"`
	Direct bool   `json:"direct,omitempty"`
	totalsJSON
	Children []nodeJSON `json:"children,omitempty"`
}

type summaryJSON struct {
	Year              int        `json:"year"`
	CompanyID         string     `json:"companyId,omitempty"`
	Kind              string     `json:"kind"`
	MaxLevel          int        `json:"maxLevel"`
	Unit              string     `json:"unit"`
	Totals            totalsJSON `json:"totals"`
	Nodes             []nodeJSON `json:"nodes"`
	OrphanedForecasts int        `json:"orphanedForecasts,omitempty"`
}

func (f amountFormat) totals(t rollup.Totals, forecast bool) totalsJSON {
	out := totalsJSON{Monthly: f.months(t.Monthly), Total: f.one(t.Total)}
	if forecast {
		out.ForecastCertainMonthly = f.months(t.ForecastCertainMonthly)
		out.ForecastUncertainMonthly = f.months(t.ForecastUncertainMonthly)
		out.ForecastCertainTotal = f.one(t.ForecastCertainTotal)
		out.ForecastUncertainTotal = f.one(t.ForecastUncertainTotal)
	}
	return out
}

func (f amountFormat) nodes(nodes []*rollup.Node, forecast bool) []nodeJSON {
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeJSON{
			Label:      n.Label,
			Level:      n.Level,
			Path:       core.JoinPath(n.Path),
			Direct:     n.Direct,
			totalsJSON: f.totals(n.Totals, forecast),
			Children:   f.nodes(n.Children, forecast),
		})
	}
	return out
}

func unitName(major bool) string {
	if major {
		return "major"
	}
	return "minor"
}

// handleRevenueSummary serves the roll-up tree. kind defaults to revenue;
// year defaults to the current year.
func (s *Server) handleRevenueSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := QueryInt(q, "year", s.now().Year())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	maxLevel, err := QueryInt(q, "maxLevel", 0)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	includeForecast, err := QueryBool(q, "includeForecast", false)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	major, err := QueryUnit(q)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	query := services.SummaryQuery{
		CompanyID:       strings.TrimSpace(q.Get("companyId")),
		Year:            year,
		Kind:            core.RecordKind(strings.TrimSpace(q.Get("kind"))),
		MaxDepth:        maxLevel,
		IncludeForecast: includeForecast,
	}
	sum, err := s.deps.Summaries.Summary(r.Context(), query)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	kind := query.Kind
	if kind == "" {
		kind = core.Revenue
	}
	f := amountFormat{major: major, currency: s.deps.Currency}
	NewJSONResponse().Body(summaryJSON{
		Year:              sum.Year,
		CompanyID:         query.CompanyID,
		Kind:              string(kind),
		MaxLevel:          sum.MaxDepth,
		Unit:              unitName(major),
		Totals:            f.totals(sum.Totals, includeForecast),
		Nodes:             f.nodes(sum.Nodes, includeForecast),
		OrphanedForecasts: sum.Orphaned,
	}).Write(w)
}

type categoryJSON struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	ParentID *int64 `json:"parentId,omitempty"`
	Level    int    `json:"level"`
	Name     string `json:"name"`
	FullPath string `json:"fullPath"`
	Enabled  bool   `json:"enabled"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:       c.ID,
		Kind:     string(c.Kind),
		ParentID: c.ParentID,
		Level:    c.Level,
		Name:     c.Name,
		FullPath: c.FullPath,
		Enabled:  c.Enabled,
	}
}

type categoryTreeJSON struct {
	categoryJSON
	Children []categoryTreeJSON `json:"children,omitempty"`
}

func categoryTree(f *category.Forest, cats []core.Category) []categoryTreeJSON {
	out := make([]categoryTreeJSON, 0, len(cats))
	for _, c := range cats {
		n := categoryTreeJSON{categoryJSON: toCategoryJSON(c), Children: categoryTree(f, f.Children(c.ID))}
		if level, ok := f.Level(c.ID); ok {
			n.Level = level
		}
		out = append(out, n)
	}
	return out
}

// handleListCategories lists one category kind. The flat view orders parents
// before their children; view=tree nests them.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("kind"))
	if raw == "" {
		raw = string(core.RevenueCategories)
	}
	kind, err := core.ParseCategoryKind(raw)
	if err != nil {
		writeError(w, r, log.OpList, invalidParam("kind", err))
		return
	}
	view := strings.ToLower(strings.TrimSpace(q.Get("view")))
	if view != "" && view != "flat" && view != "tree" {
		writeError(w, r, log.OpList, invalidParam("view", errors.New("must be flat or tree")))
		return
	}

	cats, err := s.deps.Summaries.ListCategories(r.Context(), kind)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	forest := category.Build(kind, cats, log.FromContext(r.Context()))

	if view == "tree" {
		NewJSONResponse().Body(map[string]any{"kind": kind, "categories": categoryTree(forest, forest.Roots())}).Write(w)
		return
	}
	out := make([]categoryJSON, 0, forest.Len())
	forest.Walk(func(c core.Category, path []string) {
		j := toCategoryJSON(c)
		j.Level = len(path) - 1
		out = append(out, j)
	})
	NewJSONResponse().Body(map[string]any{"kind": kind, "categories": out}).Write(w)
}

func (s *Server) handleDisableCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	c, err := s.deps.Summaries.DisableCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Category disabled",
		log.FieldCategoryID, c.ID,
		log.FieldCategoryPath, c.FullPath)
	NewJSONResponse().Body(toCategoryJSON(c)).Write(w)
}
