package category

import (
	"testing"

	"finledger/internal/core"
)

func ptr(v int64) *int64 { return &v }

func TestBuildPaths(t *testing.T) {
	f := Build(core.RevenueCategories, []core.Category{
		{ID: 3, Name: "Online", ParentID: ptr(1)},
		{ID: 1, Name: "Sales"},
		{ID: 4, Name: "Retail", ParentID: ptr(3)},
		{ID: 2, Name: "Services"},
	}, nil)

	path, ok := f.Path(4)
	if !ok || core.JoinPath(path) != "Sales/Online/Retail" {
		t.Fatalf("unexpected path %v", path)
	}
	if lvl, _ := f.Level(4); lvl != 2 {
		t.Fatalf("expected level 2, got %d", lvl)
	}
	roots := f.Roots()
	if len(roots) != 2 || roots[0].ID != 1 || roots[1].ID != 2 {
		t.Fatalf("unexpected roots %+v", roots)
	}
	if kids := f.Children(1); len(kids) != 1 || kids[0].ID != 3 {
		t.Fatalf("unexpected children %+v", kids)
	}
}

func TestBuildDanglingParentBecomesRoot(t *testing.T) {
	f := Build(core.ExpenseCategories, []core.Category{
		{ID: 1, Name: "Rent", ParentID: ptr(99)},
	}, nil)

	path, ok := f.Path(1)
	if !ok || core.JoinPath(path) != "Rent" {
		t.Fatalf("unexpected path %v", path)
	}
	if len(f.Roots()) != 1 {
		t.Fatalf("expected one root")
	}
}

func TestBuildBreaksCycles(t *testing.T) {
	f := Build(core.ExpenseCategories, []core.Category{
		{ID: 1, Name: "A", ParentID: ptr(3)},
		{ID: 2, Name: "B", ParentID: ptr(1)},
		{ID: 3, Name: "C", ParentID: ptr(2)},
		{ID: 4, Name: "Self", ParentID: ptr(4)},
	}, nil)

	// Walking from A: A -> C -> B -> back to A, so B is cut loose.
	for id, want := range map[int64]string{2: "B", 3: "B/C", 1: "B/C/A", 4: "Self"} {
		path, ok := f.Path(id)
		if !ok || core.JoinPath(path) != want {
			t.Fatalf("category %d: expected %s, got %v", id, want, path)
		}
	}

	visited := 0
	f.Walk(func(core.Category, []string) { visited++ })
	if visited != 4 {
		t.Fatalf("walk must reach every category exactly once, got %d", visited)
	}
}

func TestPathUnknownID(t *testing.T) {
	f := Build(core.RevenueCategories, nil, nil)
	if _, ok := f.Path(7); ok {
		t.Fatalf("expected unknown id")
	}
	if f.Len() != 0 {
		t.Fatalf("expected empty forest")
	}
}
