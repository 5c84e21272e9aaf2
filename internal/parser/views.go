package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// defaultViewPriority is the framework default when a view declares none.
const defaultViewPriority = 16

// viewModelSentinel marks a record element as a view declaration.
const viewModelSentinel = "ir.ui.view"

// xmlNode is a generic element tree used for the markup dialect. Mixed
// content is not preserved beyond character data, which is sufficient for
// record/field/menuitem declarations.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// findAll returns every descendant element with the given name, depth-first.
// The receiver itself is excluded.
func (n *xmlNode) findAll(name string) []*xmlNode {
	var out []*xmlNode
	for i := range n.Children {
		child := &n.Children[i]
		if child.XMLName.Local == name {
			out = append(out, child)
		}
		out = append(out, child.findAll(name)...)
	}
	return out
}

// parseXMLRoots decodes every top-level element in a markup file. Files with
// multiple roots are tolerated.
func parseXMLRoots(path string) ([]xmlNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open markup file: %w", err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var roots []xmlNode
	for {
		var node xmlNode
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup: %w", err)
		}
		roots = append(roots, node)
	}
	return roots, nil
}

// renderXML serializes an element subtree. Attribute order is preserved;
// inter-element whitespace is not.
func renderXML(n *xmlNode) string {
	var sb strings.Builder
	writeXML(&sb, n)
	return sb.String()
}

func writeXML(sb *strings.Builder, n *xmlNode) {
	sb.WriteString("<" + n.XMLName.Local)
	for _, a := range n.Attrs {
		sb.WriteString(fmt.Sprintf(" %s=%q", a.Name.Local, a.Value))
	}
	if len(n.Children) == 0 && strings.TrimSpace(n.Content) == "" {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	if text := strings.TrimSpace(n.Content); text != "" {
		_ = xml.EscapeText(sb, []byte(text))
	}
	for i := range n.Children {
		writeXML(sb, &n.Children[i])
	}
	sb.WriteString("</" + n.XMLName.Local + ">")
}

// ParseViewFile extracts view declarations from one markup file and merges
// them into mod. A record is a view only when its model attribute equals the
// view sentinel and it carries an id; records missing model, type or arch are
// dropped without diagnostics.
func ParseViewFile(path string, mod *Module) error {
	roots, err := parseXMLRoots(path)
	if err != nil {
		return err
	}

	for i := range roots {
		for _, record := range roots[i].findAll("record") {
			if record.attr("model") != viewModelSentinel {
				continue
			}
			id := record.attr("id")
			if id == "" {
				continue
			}

			view := &View{Name: id, Priority: defaultViewPriority}
			for _, field := range record.findAll("field") {
				switch field.attr("name") {
				case "model":
					view.Model = ModelRef(strings.TrimSpace(field.Content))
				case "type":
					view.Type = strings.TrimSpace(field.Content)
				case "arch":
					view.Arch = renderXML(field)
					view.FieldNames = archFieldNames(field)
				case "inherit_id":
					view.InheritID = field.attr("ref")
				case "priority":
					if p, err := strconv.Atoi(strings.TrimSpace(field.Content)); err == nil {
						view.Priority = p
					}
				}
			}

			if view.Model != "" && view.Type != "" && view.Arch != "" {
				mod.Views[id] = view
			}
		}
	}

	return nil
}

// archFieldNames collects the name attributes of every field element nested
// in a view layout body.
func archFieldNames(arch *xmlNode) []string {
	var names []string
	for _, field := range arch.findAll("field") {
		if name := field.attr("name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}
