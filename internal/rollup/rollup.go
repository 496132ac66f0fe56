// Package rollup aggregates a ledger snapshot into a category summary tree.
//
// Build is pure: it reads the snapshot it is given and nothing else. Amounts
// are int64 minor units and are only ever added, with overflow reported
// as core.ErrAmountOverflow.
package rollup

import (
	"fmt"
	"sort"

	"finledger/internal/category"
	"finledger/internal/core"
	"finledger/internal/log"
)

const DefaultMaxDepth = 2

// Item is one amount-bearing record of the snapshot.
type Item struct {
	CategoryID *int64
	PathText   string
	Date       core.Date
	Minor      int64
	Certainty  core.Certainty // forecasts only
}

// Snapshot is everything Build reads. Forecasts resolve their categories
// against ForecastForest when it is set, otherwise against Forest.
type Snapshot struct {
	Year           int
	Forest         *category.Forest
	ForecastForest *category.Forest
	Actuals        []Item
	Forecasts      []Item
}

type Options struct {
	MaxDepth        int
	IncludeForecast bool
	Logger          *log.Logger
}

// Totals holds monthly arrays indexed January..December plus their sums.
type Totals struct {
	Monthly                  [12]int64
	Total                    int64
	ForecastCertainMonthly   [12]int64
	ForecastUncertainMonthly [12]int64
	ForecastCertainTotal     int64
	ForecastUncertainTotal   int64
}

// Node is one row of the summary tree. Direct marks the synthetic child that
// carries amounts booked on the parent category itself.
type Node struct {
	Label    string
	Level    int
	Path     []string
	Direct   bool
	Totals   Totals
	Children []*Node
}

type Summary struct {
	Year     int
	MaxDepth int
	Totals   Totals
	Nodes    []*Node
	// Orphaned counts forecasts dropped for an unknown certainty tag.
	Orphaned int
}

type arenaNode struct {
	label    string
	path     []string
	parent   int
	children []int
	direct   Totals
	total    Totals
}

type arena struct {
	nodes []arenaNode
	roots []int
	index map[string]int
}

func (a *arena) insert(path []string) int {
	parent := -1
	for depth := range path {
		key := core.JoinPath(path[:depth+1])
		i, ok := a.index[key]
		if !ok {
			i = len(a.nodes)
			a.nodes = append(a.nodes, arenaNode{
				label:  path[depth],
				path:   append([]string(nil), path[:depth+1]...),
				parent: parent,
			})
			a.index[key] = i
			if parent < 0 {
				a.roots = append(a.roots, i)
			} else {
				a.nodes[parent].children = append(a.nodes[parent].children, i)
			}
		}
		parent = i
	}
	return parent
}

// Build rolls the snapshot up into a tree no deeper than MaxDepth.
func Build(s Snapshot, opts Options) (Summary, error) {
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSummary)

	a := &arena{index: make(map[string]int)}
	sum := Summary{Year: s.Year, MaxDepth: opts.MaxDepth}

	for _, it := range s.Actuals {
		if it.Date.Year() != s.Year {
			continue
		}
		i := a.insert(resolvePath(s.Forest, it, opts.MaxDepth))
		m := it.Date.Month().Index()
		d := &a.nodes[i].direct
		if err := accumulate(it.Minor, &d.Monthly[m], &d.Total); err != nil {
			return Summary{}, fmt.Errorf("roll up %s: %w", core.JoinPath(a.nodes[i].path), err)
		}
	}

	if opts.IncludeForecast {
		forest := s.ForecastForest
		if forest == nil {
			forest = s.Forest
		}
		for _, it := range s.Forecasts {
			if it.Date.Year() != s.Year {
				continue
			}
			if it.Certainty != core.Certain && it.Certainty != core.Uncertain {
				sum.Orphaned++
				logger.Warn("Dropping forecast with unknown certainty",
					"certainty", string(it.Certainty), log.FieldAmountMinor, it.Minor)
				continue
			}
			i := a.insert(resolvePath(forest, it, opts.MaxDepth))
			m := it.Date.Month().Index()
			d := &a.nodes[i].direct
			var err error
			if it.Certainty == core.Certain {
				err = accumulate(it.Minor, &d.ForecastCertainMonthly[m], &d.ForecastCertainTotal)
			} else {
				err = accumulate(it.Minor, &d.ForecastUncertainMonthly[m], &d.ForecastUncertainTotal)
			}
			if err != nil {
				return Summary{}, fmt.Errorf("roll up forecast %s: %w", core.JoinPath(a.nodes[i].path), err)
			}
		}
	}

	// Children are always appended after their parent, so walking the arena
	// backwards visits every child before its parent.
	for i := len(a.nodes) - 1; i >= 0; i-- {
		n := &a.nodes[i]
		if err := n.total.add(n.direct); err != nil {
			return Summary{}, fmt.Errorf("roll up %s: %w", core.JoinPath(n.path), err)
		}
		if n.parent >= 0 {
			if err := a.nodes[n.parent].total.add(n.total); err != nil {
				return Summary{}, fmt.Errorf("roll up %s: %w", core.JoinPath(a.nodes[n.parent].path), err)
			}
		}
	}

	for _, r := range a.roots {
		if node := a.emit(r, 0); node != nil {
			sum.Nodes = append(sum.Nodes, node)
			if err := sum.Totals.add(node.Totals); err != nil {
				return Summary{}, fmt.Errorf("roll up grand total: %w", err)
			}
		}
	}
	sortNodes(sum.Nodes)
	return sum, nil
}

func (a *arena) emit(i, level int) *Node {
	n := a.nodes[i]
	if !n.total.active() {
		return nil
	}
	out := &Node{Label: n.label, Level: level, Path: n.path, Totals: n.total}
	if len(n.children) == 0 {
		return out
	}
	if n.direct.active() {
		out.Children = append(out.Children, &Node{
			Label:  n.label,
			Level:  level + 1,
			Path:   n.path,
			Direct: true,
			Totals: n.direct,
		})
	}
	for _, c := range n.children {
		if child := a.emit(c, level+1); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	sortNodes(out.Children)
	return out
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Label != nodes[j].Label {
			return nodes[i].Label < nodes[j].Label
		}
		return nodes[i].Direct && !nodes[j].Direct
	})
}

// resolvePath prefers the forest path, then the stored path text, then the
// uncategorized root. The result is cut at maxDepth.
func resolvePath(forest *category.Forest, it Item, maxDepth int) []string {
	var path []string
	if forest != nil && it.CategoryID != nil {
		path, _ = forest.Path(*it.CategoryID)
	}
	if len(path) == 0 {
		path = core.SplitPath(it.PathText)
	}
	if len(path) == 0 {
		path = []string{core.UncategorizedLabel}
	}
	if len(path) > maxDepth {
		path = path[:maxDepth]
	}
	return path
}

// accumulate adds v to every target, failing on the first overflow.
func accumulate(v int64, targets ...*int64) error {
	for _, t := range targets {
		sum, err := core.Money{Minor: *t}.Add(core.Money{Minor: v})
		if err != nil {
			return err
		}
		*t = sum.Minor
	}
	return nil
}

func (t *Totals) add(o Totals) error {
	for m := 0; m < 12; m++ {
		if err := accumulate(o.Monthly[m], &t.Monthly[m]); err != nil {
			return err
		}
		if err := accumulate(o.ForecastCertainMonthly[m], &t.ForecastCertainMonthly[m]); err != nil {
			return err
		}
		if err := accumulate(o.ForecastUncertainMonthly[m], &t.ForecastUncertainMonthly[m]); err != nil {
			return err
		}
	}
	if err := accumulate(o.Total, &t.Total); err != nil {
		return err
	}
	if err := accumulate(o.ForecastCertainTotal, &t.ForecastCertainTotal); err != nil {
		return err
	}
	return accumulate(o.ForecastUncertainTotal, &t.ForecastUncertainTotal)
}

func (t Totals) active() bool {
	for m := 0; m < 12; m++ {
		if t.Monthly[m] != 0 || t.ForecastCertainMonthly[m] != 0 || t.ForecastUncertainMonthly[m] != 0 {
			return true
		}
	}
	return false
}
