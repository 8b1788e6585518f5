// Package model defines the data structures shared by the rewriter, the
// interpreter and the execution supervisor.
package model

import (
	"fmt"

	"spekt.dev/pkg/spekt/internal/ast"
)

// Path represents a file system path.
type Path string

// SpecFileSuffix marks files that hold a specification.
const SpecFileSuffix = ".spec.yaml"

// Diagnostic is a static error found while rewriting a spec. It is attached
// to the source location of the offending node.
type Diagnostic struct {
	File    Path    `yaml:"file"`
	Pos     ast.Pos `yaml:"pos"`
	Message string  `yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s", d.Pos, d.Message)
	}

	return fmt.Sprintf("%s:%s: %s", d.File, d.Pos, d.Message)
}
