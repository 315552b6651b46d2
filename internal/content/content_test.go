package content

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"appforge/internal/domain/model"
)

func TestFingerprintMatchesFingerprintSet(t *testing.T) {
	dir := t.TempDir()
	files := model.FileSet{
		"package.json": []byte(`{"name":"todo"}`),
		"src/App.js":   []byte("export default function App() {}"),
	}
	for p, data := range files {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, data, 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	onDisk := Fingerprint(dir, []string{"package.json", "src/App.js"})
	inMemory := FingerprintSet(files)

	if !reflect.DeepEqual(onDisk, inMemory) {
		t.Errorf("on-disk fingerprints %v differ from in-memory %v", onDisk, inMemory)
	}
}

func TestFingerprintUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server.js"), []byte("ok"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	hashes := Fingerprint(dir, []string{"server.js", "missing.js"})

	if hashes["missing.js"] != UnknownHash {
		t.Errorf("missing file hash = %q, want %q", hashes["missing.js"], UnknownHash)
	}
	if hashes["server.js"] == UnknownHash {
		t.Error("readable file was marked unknown")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		old         map[string]string
		new         map[string]string
		wantChanged []string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name: "identical maps yield empty diff",
			old:  map[string]string{"a.js": "h1", "b.js": "h2"},
			new:  map[string]string{"a.js": "h1", "b.js": "h2"},
		},
		{
			name:        "changed added removed",
			old:         map[string]string{"a.js": "h1", "b.js": "h2", "c.js": "h3"},
			new:         map[string]string{"a.js": "h1x", "b.js": "h2", "d.js": "h4"},
			wantChanged: []string{"a.js"},
			wantAdded:   []string{"d.js"},
			wantRemoved: []string{"c.js"},
		},
		{
			name:      "everything new on first version",
			old:       map[string]string{},
			new:       map[string]string{"a.js": "h1"},
			wantAdded: []string{"a.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare(tt.old, tt.new).Sorted()
			if !equalSlices(d.Changed, tt.wantChanged) {
				t.Errorf("Changed = %v, want %v", d.Changed, tt.wantChanged)
			}
			if !equalSlices(d.Added, tt.wantAdded) {
				t.Errorf("Added = %v, want %v", d.Added, tt.wantAdded)
			}
			if !equalSlices(d.Removed, tt.wantRemoved) {
				t.Errorf("Removed = %v, want %v", d.Removed, tt.wantRemoved)
			}
		})
	}
}

func TestCompareSameVersionIsIdempotent(t *testing.T) {
	hashes := FingerprintSet(model.FileSet{
		"package.json": []byte("{}"),
		"server.js":    []byte("require('express')"),
	})

	if d := Compare(hashes, hashes); !d.Empty() {
		t.Errorf("diff of a version against itself is not empty: %+v", d)
	}
}

func equalSlices(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
