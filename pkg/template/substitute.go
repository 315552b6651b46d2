// Package template implements shell-style variable substitution used when
// materializing container build recipes.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Substitute replaces ${VAR} and ${VAR:-default} expressions in input with
// values from vars. A ${VAR} expression whose variable is absent from vars
// and carries no default is an error, so a recipe can never silently render
// with a hole in it.
func Substitute(input string, vars map[string]string) (string, error) {
	indices := varPattern.FindAllStringSubmatchIndex(input, -1)
	if len(indices) == 0 {
		return input, nil
	}

	var builder strings.Builder
	builder.Grow(len(input))

	lastPos := 0
	for _, idx := range indices {
		builder.WriteString(input[lastPos:idx[0]])

		expr := input[idx[2]:idx[3]]
		value, err := evaluate(expr, vars)
		if err != nil {
			return "", err
		}
		builder.WriteString(value)

		lastPos = idx[1]
	}
	builder.WriteString(input[lastPos:])

	return builder.String(), nil
}

func evaluate(expr string, vars map[string]string) (string, error) {
	name := expr
	fallback := ""
	hasFallback := false

	if idx := strings.Index(expr, ":-"); idx != -1 {
		name = expr[:idx]
		fallback = expr[idx+2:]
		hasFallback = true
	}
	name = strings.TrimSpace(name)

	if value, ok := vars[name]; ok && value != "" {
		return value, nil
	}
	if hasFallback {
		return fallback, nil
	}
	return "", fmt.Errorf("variable %q is not set and has no default", name)
}
