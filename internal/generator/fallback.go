package generator

import (
	"strings"

	"appforge/internal/domain/model"
)

var frontendKeywords = []string{
	"color", "colour", "style", "css", "layout", "design", "font", "theme",
	"dark mode", "responsive", "button", "animation", "ui", "look",
}

var backendKeywords = []string{
	"api", "database", "auth", "login", "endpoint", "server", "storage",
	"validation", "session", "persist", "route", "websocket", "email",
}

// AnalyzeIntent is the deterministic fallback used when the analysis call
// to the generation API fails or returns unparseable content. It classifies
// an improvement intent by keyword so an analysis failure never becomes a
// fatal error.
func AnalyzeIntent(intent string) model.ImprovementTarget {
	lower := strings.ToLower(intent)

	frontend := containsAny(lower, frontendKeywords)
	backend := containsAny(lower, backendKeywords)

	switch {
	case frontend && !backend:
		return model.TargetFrontend
	case backend && !frontend:
		return model.TargetBackend
	default:
		return model.TargetFullstack
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
