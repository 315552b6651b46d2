// Package generator adapts the external content-generation API to the core:
// it renders prompts, parses the tagged-block response format and falls back
// to deterministic keyword analysis when the analysis call fails.
package generator

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"appforge/internal/domain/model"
	"appforge/pkg/log"
)

var (
	fileBlockPattern = regexp.MustCompile(`(?s)<file path="([^"]+)">\n?(.*?)</file>`)
	changesPattern   = regexp.MustCompile(`(?s)<changes>\n?(.*?)</changes>`)
)

// Parse extracts the file set from a tagged response: a sequence of
// <file path="...">content</file> blocks plus an optional
// <changes>explanation</changes> block. A block with an unsafe path is
// skipped and counted; it never fails the whole batch.
func Parse(raw string) *model.GeneratedApp {
	result := &model.GeneratedApp{Files: model.FileSet{}}

	for _, m := range fileBlockPattern.FindAllStringSubmatch(raw, -1) {
		p, content := m[1], m[2]
		if !SafeRelPath(p) {
			log.Warn("skipping generated file with unsafe path", "path", p)
			result.SkippedFiles++
			continue
		}
		result.Files[path.Clean(p)] = []byte(content)
	}

	if m := changesPattern.FindStringSubmatch(raw); m != nil {
		result.Changes = strings.TrimSpace(m[1])
	}
	return result
}

// SafeRelPath reports whether a generated file path is acceptable: relative,
// free of parent-directory segments, and resolving inside the app directory.
func SafeRelPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	if strings.Contains(p, "\\") || strings.ContainsRune(p, 0) {
		return false
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return false
	}
	return true
}

// RenderFiles serializes a file set back into the tagged format, used when
// handing the current version's content to the generation API.
func RenderFiles(files model.FileSet) string {
	var b strings.Builder
	for _, p := range sortedPaths(files) {
		b.WriteString(`<file path="`)
		b.WriteString(p)
		b.WriteString("\">\n")
		b.Write(files[p])
		if data := files[p]; len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteString("</file>\n")
	}
	return b.String()
}

func sortedPaths(files model.FileSet) []string {
	paths := files.Paths()
	sort.Strings(paths)
	return paths
}
