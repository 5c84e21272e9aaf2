// Package parser extracts the structural model of an Odoo module: models and
// their fields and methods from Python source, views and menus from XML,
// access rules from CSV and XML. It uses tree-sitter to parse the Python
// declarations and never executes module code.
package parser

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// hookPrefixes are the framework lifecycle-hook name prefixes that keep an
// underscore-prefixed method in the extracted set.
var hookPrefixes = []string{"_compute_", "_inverse_", "_search_", "_onchange_", "_check_"}

// decoratorNamespace is the namespace sentinel for recognized decorators.
const decoratorNamespace = "api"

// ModelExtractor parses model source files using tree-sitter and merges
// recognized models into a Module aggregate.
type ModelExtractor struct {
	parser *sitter.Parser
}

// NewModelExtractor creates a model extractor with Python language support.
func NewModelExtractor() *ModelExtractor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &ModelExtractor{parser: p}
}

// modelSource is one parsed model file, kept alive across both stages.
type modelSource struct {
	path   string
	source []byte
	tree   *sitter.Tree
}

// ExtractFiles parses the given model files and merges every recognized model
// into mod. Extraction is two-stage: stage 1 collects model skeletons (name,
// inheritance, scalar attributes, fields) from all files into the aggregate's
// index; stage 2 re-walks the same trees to extract methods against the fully
// populated field maps. A file that fails to parse contributes nothing and
// does not affect the others.
func (e *ModelExtractor) ExtractFiles(ctx context.Context, mod *Module, paths []string) {
	sources := make([]*modelSource, 0, len(paths))
	defer func() {
		for _, src := range sources {
			src.tree.Close()
		}
	}()

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable model file")
			continue
		}
		tree, err := e.parser.ParseCtx(ctx, nil, content)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unparseable model file")
			continue
		}
		sources = append(sources, &modelSource{path: path, source: content, tree: tree})
	}

	// Stage 1: model skeletons.
	for _, src := range sources {
		for _, class := range modelClasses(src.tree.RootNode(), src.source) {
			skeleton := extractSkeleton(class, src.source)
			if skeleton.Name == "" {
				continue
			}
			mergeModel(mod, skeleton, src.path)
		}
	}

	// Stage 2: methods, classified against the completed field index.
	for _, src := range sources {
		for _, class := range modelClasses(src.tree.RootNode(), src.source) {
			name := declaredName(class, src.source)
			model, ok := mod.Models[name]
			if !ok {
				continue
			}
			extractMethods(class, src.source, model)
		}
	}
}

// modelClasses returns every class definition in the tree whose base resolves
// to the Model sentinel, by simple name or attribute access.
func modelClasses(root *sitter.Node, source []byte) []*sitter.Node {
	var classes []*sitter.Node
	walk(root, func(n *sitter.Node) {
		if n.Type() == "class_definition" && isModelClass(n, source) {
			classes = append(classes, n)
		}
	})
	return classes
}

func isModelClass(class *sitter.Node, source []byte) bool {
	supers := class.ChildByFieldName("superclasses")
	if supers == nil {
		return false
	}
	for i := 0; i < int(supers.NamedChildCount()); i++ {
		base := supers.NamedChild(i)
		switch base.Type() {
		case "identifier":
			if base.Content(source) == "Model" {
				return true
			}
		case "attribute":
			attr := base.ChildByFieldName("attribute")
			if attr != nil && attr.Content(source) == "Model" {
				return true
			}
		}
	}
	return false
}

// extractSkeleton builds a model skeleton (everything but methods) from a
// class body. A declaration that cannot be evaluated contributes nothing.
func extractSkeleton(class *sitter.Node, source []byte) *Model {
	model := NewModel("")

	body := class.ChildByFieldName("body")
	if body == nil {
		return model
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		right := assign.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != "identifier" {
			continue
		}
		target := left.Content(source)

		switch target {
		case "_name":
			if v, ok := evalLiteral(right, source); ok {
				if s, ok := v.(string); ok {
					model.Name = ModelRef(s)
				}
			}
		case "_inherit":
			if v, ok := evalLiteral(right, source); ok {
				for _, s := range stringElems(v) {
					model.Inherit = append(model.Inherit, ModelRef(s))
				}
			}
		case "_description":
			if s, ok := evalString(right, source); ok {
				model.Description = s
			}
		case "_order":
			if s, ok := evalString(right, source); ok {
				model.Order = s
			}
		case "_rec_name":
			if s, ok := evalString(right, source); ok {
				model.RecordName = s
			}
		case "_sql_constraints":
			if v, ok := evalLiteral(right, source); ok {
				if items, ok := v.([]any); ok {
					for _, item := range items {
						if tuple, ok := item.([]any); ok && len(tuple) > 0 {
							if name, ok := tuple[0].(string); ok {
								model.Constraints = append(model.Constraints, name)
							}
						}
					}
				}
			}
		default:
			if field := extractField(target, right, source); field != nil {
				model.Fields[field.Name] = field
			}
		}
	}

	return model
}

// declaredName returns the _name literal of a class body, or "".
func declaredName(class *sitter.Node, source []byte) ModelRef {
	body := class.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" || left.Content(source) != "_name" {
			continue
		}
		if s, ok := evalString(assign.ChildByFieldName("right"), source); ok {
			return ModelRef(s)
		}
	}
	return ""
}

// extractField recognizes a `name = fields.TypeTag(...)` assignment. Any
// other right-hand side is not a field.
func extractField(name string, right *sitter.Node, source []byte) *Field {
	if strings.HasPrefix(name, "_") || right.Type() != "call" {
		return nil
	}
	fn := right.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return nil
	}
	object := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if object == nil || attr == nil || object.Type() != "identifier" || object.Content(source) != "fields" {
		return nil
	}
	fieldType := attr.Content(source)

	field := &Field{
		Name:      name,
		FieldType: fieldType,
		Store:     true,
	}

	params := map[string]any{}
	args := right.ChildByFieldName("arguments")
	var positional []*sitter.Node
	if args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				key := arg.ChildByFieldName("name")
				value := arg.ChildByFieldName("value")
				if key == nil || value == nil {
					continue
				}
				// Unevaluable keyword values are recorded as absent.
				if v, ok := evalLiteral(value, source); ok {
					params[key.Content(source)] = v
				}
			} else if arg.Type() != "comment" {
				positional = append(positional, arg)
			}
		}
	}

	if IsRelational(fieldType) && len(positional) > 0 {
		if s, ok := evalString(positional[0], source); ok {
			field.RelatedModel = ModelRef(s)
		}
	}

	field.Required = boolParam(params, "required", false)
	field.String = stringParam(params, "string")
	field.Default = params["default"]
	field.Compute = stringParam(params, "compute")
	field.Inverse = stringParam(params, "inverse")
	field.Store = boolParam(params, "store", true)
	field.Readonly = boolParam(params, "readonly", false)
	field.Index = boolParam(params, "index", false)
	field.Tracking = boolParam(params, "tracking", false)
	field.Help = stringParam(params, "help")

	return field
}

// extractMethods walks a class body and attaches every recognized method to
// the model. Runs after the field index is complete so compute targets can be
// classified.
func extractMethods(class *sitter.Node, source []byte, model *Model) {
	body := class.ChildByFieldName("body")
	if body == nil {
		return
	}

	// Methods referenced by a compute= field attribute are compute methods
	// even without an explicit dependency decorator.
	computeTargets := map[string]bool{}
	for _, field := range model.Fields {
		if field.Compute != "" {
			computeTargets[field.Compute] = true
		}
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)

		var fnNode *sitter.Node
		var decorators []*sitter.Node
		switch stmt.Type() {
		case "function_definition":
			fnNode = stmt
		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def == nil || def.Type() != "function_definition" {
				continue
			}
			fnNode = def
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				if child := stmt.NamedChild(j); child.Type() == "decorator" {
					decorators = append(decorators, child)
				}
			}
		default:
			continue
		}

		nameNode := fnNode.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(source)
		if strings.HasPrefix(name, "_") && !isLifecycleHook(name) {
			continue
		}

		method := &Method{
			Name:       name,
			Complexity: complexity(fnNode),
			LineCount:  int(fnNode.EndPoint().Row) - int(fnNode.StartPoint().Row),
			IsCompute:  computeTargets[name],
		}

		for _, dec := range decorators {
			applyDecorator(method, dec, source)
		}

		if paramsNode := fnNode.ChildByFieldName("parameters"); paramsNode != nil {
			method.Parameters = parameterNames(paramsNode, source)
		}
		method.Docstring = docstring(fnNode, source)

		model.Methods[name] = method
	}
}

// applyDecorator records a decorator tag when it matches the api namespace
// sentinel, and classifies dependency/constraint/onchange markers.
func applyDecorator(method *Method, dec *sitter.Node, source []byte) {
	var expr *sitter.Node
	for i := 0; i < int(dec.NamedChildCount()); i++ {
		expr = dec.NamedChild(i)
	}
	if expr == nil {
		return
	}

	var attrNode *sitter.Node
	var callArgs *sitter.Node
	switch expr.Type() {
	case "call":
		attrNode = expr.ChildByFieldName("function")
		callArgs = expr.ChildByFieldName("arguments")
	case "attribute":
		attrNode = expr
	default:
		return
	}
	if attrNode == nil || attrNode.Type() != "attribute" {
		return
	}
	object := attrNode.ChildByFieldName("object")
	attr := attrNode.ChildByFieldName("attribute")
	if object == nil || attr == nil || object.Type() != "identifier" ||
		object.Content(source) != decoratorNamespace {
		return
	}

	tag := attr.Content(source)
	method.Decorators = append(method.Decorators, "@api."+tag)

	switch tag {
	case "depends":
		method.IsCompute = true
		if callArgs != nil {
			for i := 0; i < int(callArgs.NamedChildCount()); i++ {
				if s, ok := evalString(callArgs.NamedChild(i), source); ok {
					method.Depends = append(method.Depends, s)
				}
			}
		}
	case "constrains":
		method.IsConstraint = true
	case "onchange":
		method.IsOnchange = true
	}
}

// complexity computes the cyclomatic complexity of a function body: 1 plus
// one per branch point. Boolean operators are binary nodes, so counting each
// one yields N-1 for an N-operand expression.
func complexity(fn *sitter.Node) int {
	count := 1
	walk(fn, func(n *sitter.Node) {
		switch n.Type() {
		case "if_statement", "elif_clause", "while_statement", "for_statement", "boolean_operator":
			count++
		}
	})
	return count
}

// parameterNames returns the declared parameter names, excluding the
// implicit receiver.
func parameterNames(params *sitter.Node, source []byte) []string {
	names := make([]string, 0)
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		var name string
		switch child.Type() {
		case "identifier":
			name = child.Content(source)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if sub := child.NamedChild(j); sub.Type() == "identifier" {
					name = sub.Content(source)
					break
				}
			}
		}
		if name != "" && name != "self" && name != "cls" {
			names = append(names, name)
		}
	}
	return names
}

// docstring returns the leading string literal of a function body, if any.
func docstring(fn *sitter.Node, source []byte) string {
	body := fn.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	if s, ok := stringLiteral(str, source); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func isLifecycleHook(name string) bool {
	for _, prefix := range hookPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// mergeModel merges a skeleton into the aggregate. Same-name declarations
// across files union their field maps; scalar attributes are last-write-wins
// with a collision diagnostic when a non-empty value is replaced.
func mergeModel(mod *Module, skeleton *Model, file string) {
	existing, ok := mod.Models[skeleton.Name]
	if !ok {
		mod.Models[skeleton.Name] = skeleton
		return
	}

	overwrite := func(attr string, old, new string) string {
		if new == "" {
			return old
		}
		if old != "" && old != new {
			log.Warn().
				Str("model", string(skeleton.Name)).
				Str("attribute", attr).
				Str("file", file).
				Msg("model redeclared with conflicting attribute, keeping latest")
		}
		return new
	}

	existing.Description = overwrite("description", existing.Description, skeleton.Description)
	existing.Order = overwrite("order", existing.Order, skeleton.Order)
	existing.RecordName = overwrite("record_name", existing.RecordName, skeleton.RecordName)

	for _, parent := range skeleton.Inherit {
		if !containsRef(existing.Inherit, parent) {
			existing.Inherit = append(existing.Inherit, parent)
		}
	}
	existing.Constraints = append(existing.Constraints, skeleton.Constraints...)
	for name, field := range skeleton.Fields {
		existing.Fields[name] = field
	}
}

func containsRef(refs []ModelRef, ref ModelRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

func evalString(node *sitter.Node, source []byte) (string, bool) {
	v, ok := evalLiteral(node, source)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolParam(params map[string]any, key string, def bool) bool {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case string:
		return b != ""
	case nil:
		return false
	}
	return true
}

func stringParam(params map[string]any, key string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

// walk visits every node in the subtree rooted at node, depth-first.
func walk(node *sitter.Node, fn func(*sitter.Node)) {
	cursor := sitter.NewTreeCursor(node)
	defer cursor.Close()

	for {
		fn(cursor.CurrentNode())

		if cursor.GoToFirstChild() {
			continue
		}

		for {
			if cursor.GoToNextSibling() {
				break
			}
			if !cursor.GoToParent() {
				return
			}
		}
	}
}
