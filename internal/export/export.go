// Package export serializes the structural model into a nested document for
// persistence or hand-off to a display layer. The document shape is stable:
// module name, models with their fields, security rules and views.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odooscope/odooscope/internal/parser"
)

// FieldDoc is the exported form of a field declaration.
type FieldDoc struct {
	Type         string `json:"type"`
	Required     bool   `json:"required"`
	RelatedModel string `json:"related_model,omitempty"`
	Compute      string `json:"compute,omitempty"`
	Store        bool   `json:"store"`
	Readonly     bool   `json:"readonly"`
}

// ModelDoc is the exported form of a model declaration.
type ModelDoc struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	Inherit     []string                  `json:"inherit,omitempty"`
	Fields      map[string]FieldDoc       `json:"fields"`
	Methods     map[string]*parser.Method `json:"methods"`
}

// RuleDoc is the exported form of a security rule.
type RuleDoc struct {
	ModelID    string   `json:"model_id"`
	Groups     []string `json:"groups"`
	PermRead   bool     `json:"perm_read"`
	PermWrite  bool     `json:"perm_write"`
	PermCreate bool     `json:"perm_create"`
	PermUnlink bool     `json:"perm_unlink"`
}

// ViewDoc is the exported form of a view declaration.
type ViewDoc struct {
	Model     string `json:"model"`
	Type      string `json:"type"`
	InheritID string `json:"inherit_id,omitempty"`
	Priority  int    `json:"priority"`
}

// Document is the full export document of one module.
type Document struct {
	ModuleName    string              `json:"module_name"`
	Models        map[string]ModelDoc `json:"models"`
	SecurityRules map[string]RuleDoc  `json:"security_rules"`
	Views         map[string]ViewDoc  `json:"views"`
}

// BuildDocument assembles the export document from a parsed module.
func BuildDocument(mod *parser.Module) *Document {
	doc := &Document{
		ModuleName:    mod.Name,
		Models:        map[string]ModelDoc{},
		SecurityRules: map[string]RuleDoc{},
		Views:         map[string]ViewDoc{},
	}

	for name, model := range mod.Models {
		modelDoc := ModelDoc{
			Name:        string(model.Name),
			Description: model.Description,
			Fields:      map[string]FieldDoc{},
			Methods:     model.Methods,
		}
		for _, parent := range model.Inherit {
			modelDoc.Inherit = append(modelDoc.Inherit, string(parent))
		}
		for fieldName, field := range model.Fields {
			modelDoc.Fields[fieldName] = FieldDoc{
				Type:         field.FieldType,
				Required:     field.Required,
				RelatedModel: string(field.RelatedModel),
				Compute:      field.Compute,
				Store:        field.Store,
				Readonly:     field.Readonly,
			}
		}
		doc.Models[string(name)] = modelDoc
	}

	for name, rule := range mod.SecurityRules {
		doc.SecurityRules[name] = RuleDoc{
			ModelID:    string(rule.ModelID),
			Groups:     rule.Groups,
			PermRead:   rule.PermRead,
			PermWrite:  rule.PermWrite,
			PermCreate: rule.PermCreate,
			PermUnlink: rule.PermUnlink,
		}
	}

	for name, view := range mod.Views {
		doc.Views[name] = ViewDoc{
			Model:     string(view.Model),
			Type:      view.Type,
			InheritID: view.InheritID,
			Priority:  view.Priority,
		}
	}

	return doc
}

// WriteJSON writes the document as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// ReadDocument parses an export document back from JSON.
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode export document: %w", err)
	}
	return &doc, nil
}

// RenderTemp writes the document to a scoped temporary file, reads it back
// and removes it, returning the serialized bytes. The file is single-use
// transport to the display layer, never persistent state.
func RenderTemp(mod *parser.Module) ([]byte, error) {
	f, err := os.CreateTemp("", "odooscope-export-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	doc := BuildDocument(mod)
	if err := doc.WriteJSON(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush export file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file back: %w", err)
	}
	return data, nil
}
