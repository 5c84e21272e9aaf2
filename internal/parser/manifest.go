package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ParseManifest reads a module manifest file and evaluates its single
// dictionary literal under the closed literal grammar. A manifest that is
// missing or does not reduce to a dictionary yields an empty map.
func ParseManifest(ctx context.Context, path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		expr := stmt.NamedChild(0)
		if expr.Type() != "dictionary" {
			continue
		}
		v, ok := evalLiteral(expr, content)
		if !ok {
			return nil, fmt.Errorf("manifest dictionary is not a literal")
		}
		dict, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("manifest does not evaluate to a dictionary")
		}
		return dict, nil
	}

	return nil, fmt.Errorf("no dictionary literal found in manifest")
}
