// Package analyzer derives the dependency graph, relationship graph,
// aggregate statistics and code-quality findings from a parsed module. It
// runs after extraction completes and rebuilds everything from scratch on
// each call: there are no stale entries, and only declared models appear as
// keys. Reference targets that were never declared stay as dangling names.
package analyzer

import (
	"sort"
	"strings"

	"github.com/odooscope/odooscope/internal/parser"
)

// FieldDep records which field or compute method produced a dependency edge.
type FieldDep struct {
	Name   string          `json:"name"`
	Target parser.ModelRef `json:"target"`
}

// Dependencies is the derived dependency graph of a module.
type Dependencies struct {
	// Models maps a model name to the set of model names it depends on
	// through inheritance or relational fields.
	Models map[parser.ModelRef]map[parser.ModelRef]struct{}

	// Fields maps a model name to the (field-or-method, target) pairs that
	// produced its edges.
	Fields map[parser.ModelRef]map[FieldDep]struct{}
}

// AnalyzeDependencies builds the dependency graph for every declared model.
func AnalyzeDependencies(mod *parser.Module) *Dependencies {
	deps := &Dependencies{
		Models: make(map[parser.ModelRef]map[parser.ModelRef]struct{}, len(mod.Models)),
		Fields: make(map[parser.ModelRef]map[FieldDep]struct{}, len(mod.Models)),
	}

	for name, model := range mod.Models {
		deps.Models[name] = map[parser.ModelRef]struct{}{}
		deps.Fields[name] = map[FieldDep]struct{}{}

		for _, parent := range model.Inherit {
			deps.Models[name][parent] = struct{}{}
		}

		for fieldName, field := range model.Fields {
			if field.RelatedModel == "" {
				continue
			}
			deps.Models[name][field.RelatedModel] = struct{}{}
			deps.Fields[name][FieldDep{Name: fieldName, Target: field.RelatedModel}] = struct{}{}
		}

		for methodName, method := range model.Methods {
			if !method.IsCompute {
				continue
			}
			for _, path := range method.Depends {
				resolveDependencyPath(mod, deps, name, methodName, path)
			}
		}
	}

	return deps
}

// resolveDependencyPath walks a dotted dependency path through relational
// fields. Only the first segment's target is recorded as a direct edge;
// deeper segments advance the cursor model without recording edges of their
// own. Paths through unknown models or non-relational fields stop silently.
func resolveDependencyPath(mod *parser.Module, deps *Dependencies, owner parser.ModelRef, methodName, path string) {
	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return
	}

	current := owner
	for i, part := range parts[:len(parts)-1] {
		model, ok := mod.Models[current]
		if !ok {
			return
		}
		field, ok := model.Fields[part]
		if !ok || field.RelatedModel == "" {
			return
		}
		if i == 0 {
			deps.Fields[owner][FieldDep{Name: methodName, Target: field.RelatedModel}] = struct{}{}
		}
		current = field.RelatedModel
	}
}

// Node is one entity in the relationship graph.
type Node struct {
	ID          parser.ModelRef `json:"id"`
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Fields      int             `json:"fields"`
	Methods     int             `json:"methods"`
	Description string          `json:"description,omitempty"`
}

// Edge is one typed relationship between two entities. Field is set for
// edges that originate from a relational field.
type Edge struct {
	From  parser.ModelRef `json:"from"`
	To    parser.ModelRef `json:"to"`
	Type  string          `json:"type"`
	Label string          `json:"label"`
	Field string          `json:"field,omitempty"`
}

// Graph returns the relationship graph: one node per declared model and one
// edge per inheritance link or relational field. Output order is stable.
func Graph(mod *parser.Module) ([]Node, []Edge) {
	nodes := make([]Node, 0, len(mod.Models))
	edges := make([]Edge, 0)

	for _, name := range sortedModelNames(mod) {
		model := mod.Models[name]
		nodes = append(nodes, Node{
			ID:          name,
			Label:       string(name),
			Type:        "model",
			Fields:      len(model.Fields),
			Methods:     len(model.Methods),
			Description: model.Description,
		})

		for _, parent := range model.Inherit {
			edges = append(edges, Edge{
				From:  name,
				To:    parent,
				Type:  "inherits",
				Label: "inherits",
			})
		}

		for _, fieldName := range sortedFieldNames(model) {
			field := model.Fields[fieldName]
			if field.RelatedModel == "" {
				continue
			}
			edges = append(edges, Edge{
				From:  name,
				To:    field.RelatedModel,
				Type:  field.FieldType,
				Label: field.FieldType,
				Field: fieldName,
			})
		}
	}

	return nodes, edges
}

// EdgeTypeCounts tallies edges by relationship type.
func EdgeTypeCounts(edges []Edge) map[string]int {
	counts := map[string]int{}
	for _, e := range edges {
		counts[e.Type]++
	}
	return counts
}

func sortedModelNames(mod *parser.Module) []parser.ModelRef {
	names := make([]parser.ModelRef, 0, len(mod.Models))
	for name := range mod.Models {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sortedFieldNames(model *parser.Model) []string {
	names := make([]string, 0, len(model.Fields))
	for name := range model.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
