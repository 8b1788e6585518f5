package domain

import (
	"regexp"
	"strconv"
	"strings"

	"spekt.dev/pkg/spekt/internal/interp"
	m "spekt.dev/pkg/spekt/internal/model"
)

// DefaultUnrollPattern names unrolled iterations after the feature and the
// iteration index.
const DefaultUnrollPattern = "#featureName[#iterationCount]"

var unrollVariable = regexp.MustCompile(`#([a-zA-Z_$][\w$]*(?:\.[a-zA-Z_$][\w$]*)*)`)

// UnrollNamer derives per-iteration names for an unrolled feature.
type UnrollNamer struct {
	feature *m.Feature
	pattern string
}

// NewUnrollNamer returns a namer for feature. An empty pattern falls back to
// the feature's own pattern, then to DefaultUnrollPattern.
func NewUnrollNamer(feature *m.Feature, pattern string) *UnrollNamer {
	if pattern == "" {
		pattern = feature.UnrollPattern
	}

	if pattern == "" {
		pattern = DefaultUnrollPattern
	}

	return &UnrollNamer{feature: feature, pattern: pattern}
}

// NameFor expands every #variable in the pattern. Expressions that cannot be
// evaluated are rendered as #Error:expression.
func (n *UnrollNamer) NameFor(it *m.Iteration) string {
	return unrollVariable.ReplaceAllStringFunc(n.pattern, func(match string) string {
		expr := match[1:]

		value, ok := n.value(expr, it)
		if !ok {
			return "#Error:" + expr
		}

		return value
	})
}

func (n *UnrollNamer) value(expr string, it *m.Iteration) (string, bool) {
	switch expr {
	case "featureName":
		return n.feature.Name, true
	case "iterationCount":
		return strconv.Itoa(it.Index), true
	}

	path := strings.Split(expr, ".")

	v, ok := it.Values[path[0]]
	if !ok {
		return "", false
	}

	for _, name := range path[1:] {
		next, err := interp.Property(v, name)
		if err != nil {
			return "", false
		}

		v = next
	}

	return interp.Display(v), true
}
