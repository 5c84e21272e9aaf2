package parser

// ModelRef is a model name used as a cross-reference. References are plain
// names and may dangle: the target model can live in another module and never
// appear in the extracted set. Consumers must not assume a ModelRef resolves.
type ModelRef string

// Relational field type tags.
const (
	TypeMany2one  = "Many2one"
	TypeOne2many  = "One2many"
	TypeMany2many = "Many2many"
)

// IsRelational reports whether a field type tag references another model.
func IsRelational(fieldType string) bool {
	switch fieldType {
	case TypeMany2one, TypeOne2many, TypeMany2many:
		return true
	}
	return false
}

// Field is one declared attribute of a model. Optional attributes are always
// present and use the zero value as "unset".
type Field struct {
	Name         string   `json:"name"`
	FieldType    string   `json:"field_type"`
	Required     bool     `json:"required"`
	RelatedModel ModelRef `json:"related_model,omitempty"`
	String       string   `json:"string,omitempty"`
	Default      any      `json:"default,omitempty"`
	Compute      string   `json:"compute,omitempty"`
	Store        bool     `json:"store"`
	Readonly     bool     `json:"readonly"`
	Inverse      string   `json:"inverse,omitempty"`
	Index        bool     `json:"index"`
	Tracking     bool     `json:"tracking"`
	Help         string   `json:"help,omitempty"`
}

// Method is one declared behavior of a model.
type Method struct {
	Name         string   `json:"name"`
	Decorators   []string `json:"decorators,omitempty"`
	Parameters   []string `json:"parameters,omitempty"`
	Complexity   int      `json:"complexity"`
	LineCount    int      `json:"line_count"`
	Docstring    string   `json:"docstring,omitempty"`
	Depends      []string `json:"depends,omitempty"`
	IsConstraint bool     `json:"is_constraint"`
	IsCompute    bool     `json:"is_compute"`
	IsOnchange   bool     `json:"is_onchange"`
}

// Model is a named data-model declaration. The name is the graph-node
// identity; Inherit entries are references that may dangle.
type Model struct {
	Name        ModelRef           `json:"name"`
	Inherit     []ModelRef         `json:"inherit,omitempty"`
	Description string             `json:"description,omitempty"`
	Order       string             `json:"order,omitempty"`
	RecordName  string             `json:"record_name,omitempty"`
	Constraints []string           `json:"constraints,omitempty"`
	Fields      map[string]*Field  `json:"fields"`
	Methods     map[string]*Method `json:"methods"`
}

// View is a UI-layout declaration.
type View struct {
	Name       string   `json:"name"`
	Model      ModelRef `json:"model"`
	Type       string   `json:"type"`
	Arch       string   `json:"arch"`
	InheritID  string   `json:"inherit_id,omitempty"`
	Priority   int      `json:"priority"`
	FieldNames []string `json:"field_names,omitempty"`
}

// SecurityRule is an access-control declaration from either the tabular
// access file or a row-level rule record. An empty Groups list means the rule
// applies to all groups.
type SecurityRule struct {
	Name        string   `json:"name"`
	ModelID     ModelRef `json:"model_id"`
	Groups      []string `json:"groups"`
	PermRead    bool     `json:"perm_read"`
	PermWrite   bool     `json:"perm_write"`
	PermCreate  bool     `json:"perm_create"`
	PermUnlink  bool     `json:"perm_unlink"`
	DomainForce string   `json:"domain_force,omitempty"`
}

// MenuItem is a menu-item declaration.
type MenuItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id,omitempty"`
	Action   string   `json:"action,omitempty"`
	Sequence int      `json:"sequence"`
	Groups   []string `json:"groups,omitempty"`
}

// Module is the aggregate structural model of one Odoo module. It is filled
// in by the extractors and read by the analyzer and export layers.
type Module struct {
	Name          string                   `json:"name"`
	Path          string                   `json:"path"`
	Manifest      map[string]any           `json:"manifest,omitempty"`
	Models        map[ModelRef]*Model      `json:"models"`
	Views         map[string]*View         `json:"views"`
	SecurityRules map[string]*SecurityRule `json:"security_rules"`
	MenuItems     map[string]*MenuItem     `json:"menu_items"`
}

// NewModule returns an empty aggregate for the module rooted at path.
func NewModule(path, name string) *Module {
	return &Module{
		Name:          name,
		Path:          path,
		Manifest:      map[string]any{},
		Models:        map[ModelRef]*Model{},
		Views:         map[string]*View{},
		SecurityRules: map[string]*SecurityRule{},
		MenuItems:     map[string]*MenuItem{},
	}
}

// NewModel returns a model record with initialized collections.
func NewModel(name ModelRef) *Model {
	return &Model{
		Name:    name,
		Fields:  map[string]*Field{},
		Methods: map[string]*Method{},
	}
}
