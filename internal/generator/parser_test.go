package generator

import (
	"strings"
	"testing"

	"appforge/internal/domain/model"
)

func TestParse(t *testing.T) {
	raw := `Here is your app.
<file path="package.json">
{"name":"todo"}
</file>
<file path="src/App.js">
export default function App() {}
</file>
<changes>
Added the App component.
</changes>`

	result := Parse(raw)

	if len(result.Files) != 2 {
		t.Fatalf("parsed %d files, want 2", len(result.Files))
	}
	if got := string(result.Files["package.json"]); !strings.Contains(got, `"name":"todo"`) {
		t.Errorf("package.json content = %q", got)
	}
	if result.Changes != "Added the App component." {
		t.Errorf("changes = %q", result.Changes)
	}
	if result.SkippedFiles != 0 {
		t.Errorf("skipped = %d, want 0", result.SkippedFiles)
	}
}

func TestParseSkipsUnsafePaths(t *testing.T) {
	raw := `<file path="../escape.js">
bad
</file>
<file path="/etc/passwd">
bad
</file>
<file path="src/ok.js">
good
</file>`

	result := Parse(raw)

	if len(result.Files) != 1 {
		t.Fatalf("parsed %d files, want 1", len(result.Files))
	}
	if _, ok := result.Files["src/ok.js"]; !ok {
		t.Error("safe file missing from result")
	}
	if result.SkippedFiles != 2 {
		t.Errorf("skipped = %d, want 2", result.SkippedFiles)
	}
}

func TestParseNoBlocks(t *testing.T) {
	result := Parse("sorry, I cannot help with that")
	if len(result.Files) != 0 {
		t.Errorf("parsed %d files from junk input", len(result.Files))
	}
}

func TestSafeRelPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/App.js", true},
		{"package.json", true},
		{"public/assets/logo.svg", true},
		{"", false},
		{"/etc/passwd", false},
		{"../outside.js", false},
		{"src/../../outside.js", false},
		{"..", false},
		{`src\win.js`, false},
		{"src/./App.js", true},
	}
	for _, tt := range tests {
		if got := SafeRelPath(tt.path); got != tt.want {
			t.Errorf("SafeRelPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRenderFilesRoundTrip(t *testing.T) {
	files := model.FileSet{
		"package.json": []byte("{}\n"),
		"server.js":    []byte("require('express')"),
	}

	parsed := Parse(RenderFiles(files))

	if len(parsed.Files) != len(files) {
		t.Fatalf("round trip produced %d files, want %d", len(parsed.Files), len(files))
	}
	for p := range files {
		if _, ok := parsed.Files[p]; !ok {
			t.Errorf("file %s lost in round trip", p)
		}
	}
}

func TestAnalyzeIntent(t *testing.T) {
	tests := []struct {
		intent string
		want   model.ImprovementTarget
	}{
		{"make the buttons blue and improve the layout", model.TargetFrontend},
		{"add auth with a login endpoint", model.TargetBackend},
		{"add dark mode and persist it per user in the database", model.TargetFullstack},
		{"make it better", model.TargetFullstack},
	}
	for _, tt := range tests {
		if got := AnalyzeIntent(tt.intent); got != tt.want {
			t.Errorf("AnalyzeIntent(%q) = %v, want %v", tt.intent, got, tt.want)
		}
	}
}
