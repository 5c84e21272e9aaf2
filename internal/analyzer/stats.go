package analyzer

import (
	"math"
	"sort"

	"github.com/odooscope/odooscope/internal/parser"
)

// ModelSize holds per-model sizing.
type ModelSize struct {
	Fields  int `json:"fields"`
	Methods int `json:"methods"`
}

// SecurityCoverage summarizes how many declared models carry at least one
// applicable access rule.
type SecurityCoverage struct {
	ModelsWithRules    int      `json:"models_with_rules"`
	CoveragePercentage float64  `json:"coverage_percentage"`
	ModelsMissingRules []string `json:"models_missing_rules"`
}

// InheritanceStats summarizes model-level inheritance.
type InheritanceStats struct {
	ModelsInheriting  int                 `json:"models_inheriting"`
	InheritanceChains [][]parser.ModelRef `json:"inheritance_chains"`
}

// Stats is the aggregate statistics surface of a module.
type Stats struct {
	TotalModels      int                              `json:"total_models"`
	TotalFields      int                              `json:"total_fields"`
	TotalMethods     int                              `json:"total_methods"`
	FieldTypes       map[string]int                   `json:"field_types"`
	ModelSize        map[parser.ModelRef]ModelSize    `json:"model_size"`
	Inheritance      InheritanceStats                 `json:"inheritance"`
	ViewsByType      map[string]int                   `json:"views_by_type"`
	SecurityCoverage SecurityCoverage                 `json:"security_coverage"`
}

// ComputeStats builds the statistics surface from a parsed module.
func ComputeStats(mod *parser.Module) *Stats {
	stats := &Stats{
		TotalModels: len(mod.Models),
		FieldTypes:  map[string]int{},
		ModelSize:   map[parser.ModelRef]ModelSize{},
		ViewsByType: map[string]int{},
	}

	for name, model := range mod.Models {
		stats.TotalFields += len(model.Fields)
		stats.TotalMethods += len(model.Methods)
		for _, field := range model.Fields {
			stats.FieldTypes[field.FieldType]++
		}
		stats.ModelSize[name] = ModelSize{Fields: len(model.Fields), Methods: len(model.Methods)}
		if len(model.Inherit) > 0 {
			stats.Inheritance.ModelsInheriting++
		}
	}

	stats.Inheritance.InheritanceChains = inheritanceChains(mod)

	for _, view := range mod.Views {
		stats.ViewsByType[view.Type]++
	}

	stats.SecurityCoverage = securityCoverage(mod)

	return stats
}

// inheritanceChains enumerates root-to-tail inheritance chains. Parents that
// were never declared in this module end a chain as dangling names. Each
// declared model appears in at least one chain.
func inheritanceChains(mod *parser.Module) [][]parser.ModelRef {
	chains := make([][]parser.ModelRef, 0)
	covered := map[parser.ModelRef]bool{}

	for _, name := range sortedModelNames(mod) {
		if covered[name] {
			continue
		}
		for _, chain := range chainsFrom(mod, name, map[parser.ModelRef]bool{}) {
			chains = append(chains, chain)
			for _, member := range chain {
				covered[member] = true
			}
		}
	}

	return chains
}

func chainsFrom(mod *parser.Module, name parser.ModelRef, visiting map[parser.ModelRef]bool) [][]parser.ModelRef {
	model, declared := mod.Models[name]
	if !declared || len(model.Inherit) == 0 || visiting[name] {
		return [][]parser.ModelRef{{name}}
	}

	visiting[name] = true
	defer delete(visiting, name)

	var out [][]parser.ModelRef
	for _, parent := range model.Inherit {
		for _, tail := range chainsFrom(mod, parent, visiting) {
			chain := append([]parser.ModelRef{name}, tail...)
			out = append(out, chain)
		}
	}
	return out
}

func securityCoverage(mod *parser.Module) SecurityCoverage {
	withRules := map[parser.ModelRef]bool{}
	for _, rule := range mod.SecurityRules {
		if _, ok := mod.Models[rule.ModelID]; ok {
			withRules[rule.ModelID] = true
		}
	}

	missing := make([]string, 0)
	for _, name := range sortedModelNames(mod) {
		if !withRules[name] {
			missing = append(missing, string(name))
		}
	}
	sort.Strings(missing)

	coverage := SecurityCoverage{
		ModelsWithRules:    len(withRules),
		ModelsMissingRules: missing,
	}
	if len(mod.Models) > 0 {
		pct := float64(len(withRules)) / float64(len(mod.Models)) * 100
		coverage.CoveragePercentage = math.Round(pct*100) / 100
	}
	return coverage
}
