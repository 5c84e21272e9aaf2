package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// AccessFileName is the fixed name of the tabular access-rule file inside
// the security directory.
const AccessFileName = "ir.model.access.csv"

// ruleModelSentinel marks a record element as a row-level rule declaration.
const ruleModelSentinel = "ir.rule"

// modelRefPrefix is the prefix carried by model external references in
// security sources.
const modelRefPrefix = "model_"

// normalizeModelRef maps a security-source model reference onto a model
// name: the external-reference prefix is stripped and underscores become
// dots, reversing the framework's external-ID naming. Names that themselves
// contain underscores are ambiguous under this mapping; the common case wins.
func normalizeModelRef(ref string) ModelRef {
	ref = strings.TrimPrefix(ref, modelRefPrefix)
	return ModelRef(strings.ReplaceAll(ref, "_", "."))
}

// ParseAccessFile reads the tabular access file and merges one rule per row
// into mod. Permission cells hold the literal "1" for true; anything else is
// false. Rows without an id or a model reference are dropped.
func ParseAccessFile(path string, mod *Module) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open access file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read access header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read access row: %w", err)
		}

		id := cell(row, "id")
		modelRef := cell(row, "model_id:id")
		if id == "" || modelRef == "" {
			continue
		}

		groups := []string{}
		if g := cell(row, "group_id:id"); g != "" {
			groups = append(groups, g)
		}

		mod.SecurityRules[id] = &SecurityRule{
			Name:       id,
			ModelID:    normalizeModelRef(modelRef),
			Groups:     groups,
			PermRead:   cell(row, "perm_read") == "1",
			PermWrite:  cell(row, "perm_write") == "1",
			PermCreate: cell(row, "perm_create") == "1",
			PermUnlink: cell(row, "perm_unlink") == "1",
		}
	}

	return nil
}

// ParseRuleFile extracts row-level rules from one markup file. Row-level
// rules carry all four permissions: in the source ecosystem they only ever
// restrict scope through the domain filter. A rule with the same id as a
// tabular rule overrides it, since rule files load second.
func ParseRuleFile(path string, mod *Module) error {
	roots, err := parseXMLRoots(path)
	if err != nil {
		return err
	}

	for i := range roots {
		for _, record := range roots[i].findAll("record") {
			if record.attr("model") != ruleModelSentinel {
				continue
			}
			id := record.attr("id")

			var modelID ModelRef
			var domainForce string
			groups := []string{}

			for _, field := range record.findAll("field") {
				switch field.attr("name") {
				case "model_id":
					if ref := field.attr("ref"); ref != "" {
						modelID = normalizeModelRef(ref)
					}
				case "domain_force":
					domainForce = strings.TrimSpace(field.Content)
				case "groups":
					for _, group := range field.findAll("field") {
						if ref := group.attr("ref"); ref != "" {
							groups = append(groups, ref)
						}
					}
				}
			}

			if modelID == "" {
				continue
			}

			mod.SecurityRules[id] = &SecurityRule{
				Name:        id,
				ModelID:     modelID,
				Groups:      groups,
				PermRead:    true,
				PermWrite:   true,
				PermCreate:  true,
				PermUnlink:  true,
				DomainForce: domainForce,
			}
		}
	}

	return nil
}
