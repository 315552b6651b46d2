package get_diff

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"appforge/internal/domain/model"
	"appforge/internal/ledger"
)

func seedStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.json"), 4000)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if _, err := store.CreateApp("todo"); err != nil {
		t.Fatalf("create app: %v", err)
	}
	versions := []*model.Version{
		{
			Version:       "v1.0.0",
			ContainerName: "todo-v1.0.0",
			Files:         []string{"package.json", "server.js"},
			FileHashes:    map[string]string{"package.json": "p1", "server.js": "s1"},
			CreatedAt:     time.Now().UTC(),
		},
		{
			Version:       "v1.0.1",
			ParentVersion: "v1.0.0",
			ContainerName: "todo-v1.0.1",
			Files:         []string{"package.json", "server.js", "routes/list.js"},
			FileHashes:    map[string]string{"package.json": "p1", "server.js": "s2", "routes/list.js": "r1"},
			CreatedAt:     time.Now().UTC(),
		},
		{
			Version:       "v1.1.0",
			ParentVersion: "v1.0.1",
			ContainerName: "todo-v1.1.0",
			Files:         []string{"package.json", "routes/list.js"},
			FileHashes:    map[string]string{"package.json": "p2", "routes/list.js": "r1"},
			CreatedAt:     time.Now().UTC(),
		},
	}
	for _, v := range versions {
		if err := store.Commit("todo", v); err != nil {
			t.Fatalf("commit %s: %v", v.Version, err)
		}
	}
	return store
}

func TestGetDiffDefaultsToActiveVersionAgainstParent(t *testing.T) {
	h := NewGetDiffQueryHandler(seedStore(t))

	d, err := h.Handle(GetDiffQuery{AppName: "todo"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if d.From != "v1.0.1" || d.To != "v1.1.0" {
		t.Errorf("range = %s -> %s, want v1.0.1 -> v1.1.0", d.From, d.To)
	}
	if !reflect.DeepEqual(d.Changed, []string{"package.json"}) {
		t.Errorf("changed = %v, want [package.json]", d.Changed)
	}
	if !reflect.DeepEqual(d.Removed, []string{"server.js"}) {
		t.Errorf("removed = %v, want [server.js]", d.Removed)
	}
	if len(d.Added) != 0 {
		t.Errorf("added = %v, want none", d.Added)
	}
}

func TestGetDiffBetweenArbitraryVersions(t *testing.T) {
	h := NewGetDiffQueryHandler(seedStore(t))

	d, err := h.Handle(GetDiffQuery{AppName: "todo", FromVersion: "v1.0.0", ToVersion: "v1.1.0"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if d.From != "v1.0.0" || d.To != "v1.1.0" {
		t.Errorf("range = %s -> %s, want v1.0.0 -> v1.1.0", d.From, d.To)
	}
	if !reflect.DeepEqual(d.Changed, []string{"package.json"}) {
		t.Errorf("changed = %v, want [package.json]", d.Changed)
	}
	if !reflect.DeepEqual(d.Added, []string{"routes/list.js"}) {
		t.Errorf("added = %v, want [routes/list.js]", d.Added)
	}
	if !reflect.DeepEqual(d.Removed, []string{"server.js"}) {
		t.Errorf("removed = %v, want [server.js]", d.Removed)
	}
}

func TestGetDiffInitialVersionReportsAllAdded(t *testing.T) {
	h := NewGetDiffQueryHandler(seedStore(t))

	d, err := h.Handle(GetDiffQuery{AppName: "todo", ToVersion: "v1.0.0"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if d.From != "" {
		t.Errorf("from = %q, want empty for the initial version", d.From)
	}
	if !reflect.DeepEqual(d.Added, []string{"package.json", "server.js"}) {
		t.Errorf("added = %v, want all files of v1.0.0", d.Added)
	}
	if len(d.Changed) != 0 || len(d.Removed) != 0 {
		t.Errorf("changed = %v, removed = %v, want none", d.Changed, d.Removed)
	}
}

func TestGetDiffUnknownVersions(t *testing.T) {
	h := NewGetDiffQueryHandler(seedStore(t))

	if _, err := h.Handle(GetDiffQuery{AppName: "todo", ToVersion: "v9.0.0"}); err == nil {
		t.Error("unknown to-version should fail")
	}
	if _, err := h.Handle(GetDiffQuery{AppName: "todo", FromVersion: "v9.0.0", ToVersion: "v1.1.0"}); err == nil {
		t.Error("unknown from-version should fail")
	}
}
