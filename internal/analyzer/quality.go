package analyzer

import (
	"fmt"

	"github.com/odooscope/odooscope/internal/parser"
)

// Quality holds the categorized code-quality findings for a module.
type Quality struct {
	// Models with no description.
	MissingDescriptions []string `json:"missing_descriptions"`

	// One2many fields whose target declares no reciprocal Many2one.
	UnusedRelations []string `json:"unused_relations"`

	// Non-stored compute fields, recomputed on every read.
	PerformanceConcerns []string `json:"performance_concerns"`

	// Models with no applicable access rule at all.
	SecurityGaps []string `json:"security_gaps"`
}

// AnalyzeQuality inspects a parsed module and returns its findings. Output
// order is stable across runs.
func AnalyzeQuality(mod *parser.Module) *Quality {
	q := &Quality{
		MissingDescriptions: []string{},
		UnusedRelations:     []string{},
		PerformanceConcerns: []string{},
		SecurityGaps:        []string{},
	}

	covered := map[parser.ModelRef]bool{}
	for _, rule := range mod.SecurityRules {
		covered[rule.ModelID] = true
	}

	for _, name := range sortedModelNames(mod) {
		model := mod.Models[name]

		if model.Description == "" {
			q.MissingDescriptions = append(q.MissingDescriptions,
				fmt.Sprintf("model %s has no description", name))
		}

		for _, fieldName := range sortedFieldNames(model) {
			field := model.Fields[fieldName]

			if field.FieldType == parser.TypeOne2many &&
				field.RelatedModel != "" && !hasInverseField(mod, name, field) {
				q.UnusedRelations = append(q.UnusedRelations,
					fmt.Sprintf("field %s.%s has no inverse Many2one on %s", name, fieldName, field.RelatedModel))
			}

			if field.Compute != "" && !field.Store {
				q.PerformanceConcerns = append(q.PerformanceConcerns,
					fmt.Sprintf("field %s.%s is computed but not stored", name, fieldName))
			}
		}

		if !covered[name] {
			q.SecurityGaps = append(q.SecurityGaps,
				fmt.Sprintf("model %s has no access rules", name))
		}
	}

	return q
}

// hasInverseField reports whether the target of a One2many field declares a
// Many2one back to the owning model. An undeclared target counts as no.
func hasInverseField(mod *parser.Module, owner parser.ModelRef, field *parser.Field) bool {
	related, ok := mod.Models[field.RelatedModel]
	if !ok {
		return false
	}
	for _, candidate := range related.Fields {
		if candidate.FieldType == parser.TypeMany2one && candidate.RelatedModel == owner {
			return true
		}
	}
	return false
}
