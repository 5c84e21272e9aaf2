package parser

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// evalLiteral evaluates a syntax node under a closed literal grammar: strings,
// numbers, booleans, None, and (possibly nested) lists, tuples, sets and
// dicts. Anything outside the grammar reports ok=false — callers record the
// value as unknown rather than failing the declaration.
func evalLiteral(node *sitter.Node, source []byte) (any, bool) {
	if node == nil {
		return nil, false
	}

	switch node.Type() {
	case "string", "concatenated_string":
		return stringLiteral(node, source)
	case "integer":
		v, err := strconv.ParseInt(strings.ReplaceAll(node.Content(source), "_", ""), 0, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(node.Content(source), "_", ""), 64)
		if err != nil {
			return nil, false
		}
		return v, true
	case "true":
		return true, true
	case "false":
		return false, true
	case "none":
		return nil, true
	case "unary_operator":
		arg := node.ChildByFieldName("argument")
		v, ok := evalLiteral(arg, source)
		if !ok {
			return nil, false
		}
		neg := strings.HasPrefix(node.Content(source), "-")
		switch n := v.(type) {
		case int64:
			if neg {
				return -n, true
			}
			return n, true
		case float64:
			if neg {
				return -n, true
			}
			return n, true
		}
		return nil, false
	case "list", "tuple", "set":
		items := make([]any, 0)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			v, ok := evalLiteral(node.NamedChild(i), source)
			if !ok {
				return nil, false
			}
			items = append(items, v)
		}
		return items, true
	case "dictionary":
		dict := make(map[string]any)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			pair := node.NamedChild(i)
			if pair.Type() != "pair" {
				// dict comprehensions and ** splats are outside the grammar
				return nil, false
			}
			key, ok := evalLiteral(pair.ChildByFieldName("key"), source)
			if !ok {
				return nil, false
			}
			keyStr, ok := key.(string)
			if !ok {
				keyStr = strings.TrimSpace(pair.ChildByFieldName("key").Content(source))
			}
			value, ok := evalLiteral(pair.ChildByFieldName("value"), source)
			if !ok {
				return nil, false
			}
			dict[keyStr] = value
		}
		return dict, true
	case "parenthesized_expression", "expression_statement":
		if node.NamedChildCount() == 1 {
			return evalLiteral(node.NamedChild(0), source)
		}
	}

	return nil, false
}

// stringLiteral extracts the text of a string or concatenated_string node.
func stringLiteral(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "concatenated_string":
		var sb strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part, ok := stringLiteral(node.NamedChild(i), source)
			if !ok {
				return "", false
			}
			sb.WriteString(part)
		}
		return sb.String(), true
	case "string":
		var sb strings.Builder
		found := false
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "string_content":
				sb.WriteString(child.Content(source))
				found = true
			case "escape_sequence":
				sb.WriteString(unescape(child.Content(source)))
				found = true
			case "interpolation":
				// f-strings are not statically evaluable
				return "", false
			}
		}
		if found {
			return sb.String(), true
		}
		// Grammar versions without string_content nodes: strip the quotes.
		return trimQuotes(node.Content(source)), true
	}
	return "", false
}

func unescape(seq string) string {
	switch seq {
	case `\n`:
		return "\n"
	case `\t`:
		return "\t"
	case `\r`:
		return "\r"
	case `\\`:
		return `\`
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	}
	return strings.TrimPrefix(seq, `\`)
}

func trimQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// stringElems returns the string elements of a literal that is either a
// single string or a list/tuple of strings. Non-string elements are skipped.
func stringElems(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
