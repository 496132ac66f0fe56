// Package category holds the category forests as index-addressed arenas.
//
// Nodes refer to each other by slot index, never by pointer, so a forest built
// from stored rows is immutable and safe to share between readers.
package category

import (
	"sort"

	"finledger/internal/core"
	"finledger/internal/log"
)

const noParent = -1

type node struct {
	cat      core.Category
	parent   int
	children []int
	path     []string
}

// Forest is one category forest (revenue, expense or forecast).
type Forest struct {
	kind  core.CategoryKind
	nodes []node
	index map[int64]int
	roots []int
}

// Build assembles a forest from stored categories. A category whose parent
// does not exist becomes a root; a parent chain that loops back on itself is
// cut at the node that closes the loop. Both are logged as warnings.
func Build(kind core.CategoryKind, cats []core.Category, logger *log.Logger) *Forest {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentCategory)

	sorted := make([]core.Category, len(cats))
	copy(sorted, cats)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	f := &Forest{
		kind:  kind,
		nodes: make([]node, len(sorted)),
		index: make(map[int64]int, len(sorted)),
	}
	for i, c := range sorted {
		f.nodes[i] = node{cat: c, parent: noParent}
		f.index[c.ID] = i
	}

	for i := range f.nodes {
		pid := f.nodes[i].cat.ParentID
		if pid == nil {
			continue
		}
		p, ok := f.index[*pid]
		if !ok || p == i {
			logger.Warn("Category parent missing, treating as root",
				log.FieldCategoryID, f.nodes[i].cat.ID, "parent_id", *pid)
			continue
		}
		f.nodes[i].parent = p
	}

	f.breakCycles(logger)

	for i := range f.nodes {
		if p := f.nodes[i].parent; p == noParent {
			f.roots = append(f.roots, i)
		} else {
			f.nodes[p].children = append(f.nodes[p].children, i)
		}
	}
	for i := range f.nodes {
		f.resolvePath(i)
	}
	return f
}

// breakCycles walks every parent chain once. Nodes on the chain currently
// being walked are marked in progress; reaching one again means a loop.
func (f *Forest) breakCycles(logger *log.Logger) {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]int, len(f.nodes))
	for start := range f.nodes {
		var chain []int
		cur := start
		for cur != noParent && state[cur] == unvisited {
			state[cur] = inProgress
			chain = append(chain, cur)
			next := f.nodes[cur].parent
			if next != noParent && state[next] == inProgress {
				logger.Warn("Category cycle detected, breaking",
					log.FieldCategoryID, f.nodes[cur].cat.ID, "parent_id", f.nodes[next].cat.ID)
				f.nodes[cur].parent = noParent
				next = noParent
			}
			cur = next
		}
		for _, i := range chain {
			state[i] = done
		}
	}
}

func (f *Forest) resolvePath(i int) []string {
	if f.nodes[i].path != nil {
		return f.nodes[i].path
	}
	var prefix []string
	if p := f.nodes[i].parent; p != noParent {
		prefix = f.resolvePath(p)
	}
	path := make([]string, len(prefix)+1)
	copy(path, prefix)
	path[len(prefix)] = f.nodes[i].cat.Name
	f.nodes[i].path = path
	return path
}

// Kind returns the forest's category kind.
func (f *Forest) Kind() core.CategoryKind {
	return f.kind
}

// Len returns the number of categories in the forest.
func (f *Forest) Len() int {
	return len(f.nodes)
}

// Path returns the label path from root to the category.
func (f *Forest) Path(id int64) ([]string, bool) {
	i, ok := f.index[id]
	if !ok {
		return nil, false
	}
	return f.nodes[i].path, true
}

// Level returns the depth of the category as placed in the forest (root 0).
func (f *Forest) Level(id int64) (int, bool) {
	p, ok := f.Path(id)
	if !ok {
		return 0, false
	}
	return len(p) - 1, true
}

// Category returns the stored category.
func (f *Forest) Category(id int64) (core.Category, bool) {
	i, ok := f.index[id]
	if !ok {
		return core.Category{}, false
	}
	return f.nodes[i].cat, true
}

// Roots returns the root categories ordered by id.
func (f *Forest) Roots() []core.Category {
	out := make([]core.Category, len(f.roots))
	for k, i := range f.roots {
		out[k] = f.nodes[i].cat
	}
	return out
}

// Children returns the direct children of a category ordered by id.
func (f *Forest) Children(id int64) []core.Category {
	i, ok := f.index[id]
	if !ok {
		return nil
	}
	out := make([]core.Category, len(f.nodes[i].children))
	for k, c := range f.nodes[i].children {
		out[k] = f.nodes[c].cat
	}
	return out
}

// Walk visits every category depth first, parents before children.
func (f *Forest) Walk(fn func(c core.Category, path []string)) {
	var visit func(i int)
	visit = func(i int) {
		fn(f.nodes[i].cat, f.nodes[i].path)
		for _, c := range f.nodes[i].children {
			visit(c)
		}
	}
	for _, r := range f.roots {
		visit(r)
	}
}
