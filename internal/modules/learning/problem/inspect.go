package problem

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Shape summarises the structure of a generated source document.
type Shape struct {
	Empty            bool `json:"empty"`
	HasFunction      bool `json:"hasFunction"`
	HasHeaderComment bool `json:"hasHeaderComment"`
	HasSyntaxError   bool `json:"hasSyntaxError"`
}

// Warnings lists the soft problems worth surfacing to the learner.
func (s Shape) Warnings() []string {
	var out []string
	if s.Empty {
		return []string{"generated problem is empty"}
	}
	if !s.HasFunction {
		out = append(out, "generated problem has no function signature")
	}
	if !s.HasHeaderComment {
		out = append(out, "generated problem has no description header")
	}
	if s.HasSyntaxError {
		out = append(out, "generated problem does not parse as Python")
	}
	return out
}

// Inspect parses code with the Python grammar. A parse failure is reported through the shape, never
// as an error.
func Inspect(ctx context.Context, code string) Shape {
	if strings.TrimSpace(code) == "" {
		return Shape{Empty: true}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return Shape{HasSyntaxError: true}
	}
	defer tree.Close()

	root := tree.RootNode()
	shape := Shape{HasSyntaxError: root.HasError()}

	if root.NamedChildCount() > 0 {
		first := root.NamedChild(0)
		switch first.Type() {
		case "comment":
			shape.HasHeaderComment = true
		case "expression_statement":
			// A leading docstring counts as a header too.
			if first.NamedChildCount() > 0 && first.NamedChild(0).Type() == "string" {
				shape.HasHeaderComment = true
			}
		}
	}
	shape.HasFunction = containsType(root, "function_definition")
	return shape
}

func containsType(n *sitter.Node, typ string) bool {
	if n == nil {
		return false
	}
	if n.Type() == typ {
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsType(n.NamedChild(i), typ) {
			return true
		}
	}
	return false
}
