package split

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// SplitGoSource decomposes a Go source file into one code molecule per
// top-level declaration (func, method, type, var, const, import block)
// using tree-sitter's Go grammar, rather than the brace-depth heuristic
// splitCode uses for other languages. Byte offsets come directly from the
// parsed AST node spans, so they are exact by construction. Returns nil if
// the content fails to parse, in which case callers fall back to splitCode.
func SplitGoSource(content string) []Fragment {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(content))
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil
	}

	var fragments []Fragment
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		switch node.Type() {
		case "function_declaration", "method_declaration", "type_declaration",
			"var_declaration", "const_declaration", "import_declaration":
			start, end := int(node.StartByte()), int(node.EndByte())
			if start >= end {
				continue
			}
			fragments = append(fragments, Fragment{
				Content:   content[start:end],
				StartByte: start,
				EndByte:   end,
				Type:      TypeCode,
			})
		}
	}
	return fragments
}
