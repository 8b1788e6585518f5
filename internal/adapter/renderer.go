package adapter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	m "spekt.dev/pkg/spekt/internal/model"
)

// YAMLRenderer renders values for comparison diffs. Scalars render on one
// line; lists and maps render as YAML so that a diff is line oriented.
type YAMLRenderer struct{}

// NewYAMLRenderer constructs a YAMLRenderer.
func NewYAMLRenderer() *YAMLRenderer {
	return &YAMLRenderer{}
}

// Render returns the text form of v.
func (r *YAMLRenderer) Render(v any) (string, error) {
	switch v.(type) {
	case []any, map[string]any:
		out, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("render %T: %w", v, err)
		}

		return strings.TrimSuffix(string(out), "\n"), nil
	}

	return m.FormatValue(v), nil
}
