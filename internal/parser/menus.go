package parser

import (
	"strconv"
	"strings"
)

// defaultMenuSequence is used when a menu item declares no sequence or the
// declared value does not parse.
const defaultMenuSequence = 10

// ParseMenuFile extracts menu-item declarations from one markup file and
// merges them into mod.
func ParseMenuFile(path string, mod *Module) error {
	roots, err := parseXMLRoots(path)
	if err != nil {
		return err
	}

	for i := range roots {
		for _, item := range roots[i].findAll("menuitem") {
			id := item.attr("id")
			if id == "" {
				continue
			}

			sequence := defaultMenuSequence
			if raw := item.attr("sequence"); raw != "" {
				if s, err := strconv.Atoi(raw); err == nil {
					sequence = s
				}
			}

			var groups []string
			if raw := item.attr("groups"); raw != "" {
				for _, g := range strings.Split(raw, ",") {
					groups = append(groups, strings.TrimSpace(g))
				}
			}

			mod.MenuItems[id] = &MenuItem{
				ID:       id,
				Name:     item.attr("name"),
				ParentID: item.attr("parent"),
				Action:   item.attr("action"),
				Sequence: sequence,
				Groups:   groups,
			}
		}
	}

	return nil
}
