package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ManifestFileName is the fixed name of the module metadata file.
const ManifestFileName = "__manifest__.py"

// ModuleParser reads an Odoo module directory tree and runs every extractor
// once, in sequence, into a shared Module aggregate. Extraction is a
// single-pass batch: per-file failures are logged and skipped, and only a
// missing module root is a blocking error.
type ModuleParser struct {
	Root string

	// Sub-directory names, overridable through project config.
	ModelsDir   string
	ViewsDir    string
	SecurityDir string

	extractor *ModelExtractor
}

// NewModuleParser creates a parser for the module rooted at root.
func NewModuleParser(root string) *ModuleParser {
	return &ModuleParser{
		Root:        root,
		ModelsDir:   "models",
		ViewsDir:    "views",
		SecurityDir: "security",
		extractor:   NewModelExtractor(),
	}
}

// Parse analyzes the whole module and returns the populated aggregate.
func (p *ModuleParser) Parse(ctx context.Context) (*Module, error) {
	info, err := os.Stat(p.Root)
	if err != nil {
		return nil, fmt.Errorf("module root not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("module root is not a directory: %s", p.Root)
	}

	mod := NewModule(p.Root, filepath.Base(p.Root))

	p.parseManifest(ctx, mod)
	p.parseModels(ctx, mod)
	p.parseViews(mod)
	p.parseSecurity(mod)
	p.parseMenus(mod)

	return mod, nil
}

func (p *ModuleParser) parseManifest(ctx context.Context, mod *Module) {
	path := filepath.Join(p.Root, ManifestFileName)
	if _, err := os.Stat(path); err != nil {
		return
	}
	manifest, err := ParseManifest(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not parse manifest")
		return
	}
	mod.Manifest = manifest
	if name, ok := manifest["name"].(string); ok && name != "" {
		mod.Name = name
	}
}

func (p *ModuleParser) parseModels(ctx context.Context, mod *Module) {
	files, err := p.globDir(p.ModelsDir, "*.py")
	if err != nil {
		return
	}
	paths := files[:0]
	for _, f := range files {
		if filepath.Base(f) != "__init__.py" {
			paths = append(paths, f)
		}
	}
	p.extractor.ExtractFiles(ctx, mod, paths)
}

func (p *ModuleParser) parseViews(mod *Module) {
	files, err := p.globDir(p.ViewsDir, "*.xml")
	if err != nil {
		return
	}
	for _, f := range files {
		if err := ParseViewFile(f, mod); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("skipping view file")
		}
	}
}

// parseSecurity loads the tabular access file first, then every rule markup
// file, so a row-level rule with a colliding id overrides the tabular one.
func (p *ModuleParser) parseSecurity(mod *Module) {
	accessPath := filepath.Join(p.Root, p.SecurityDir, AccessFileName)
	if _, err := os.Stat(accessPath); err == nil {
		if err := ParseAccessFile(accessPath, mod); err != nil {
			log.Warn().Err(err).Str("file", accessPath).Msg("skipping access file")
		}
	}

	files, err := p.globDir(p.SecurityDir, "*.xml")
	if err != nil {
		return
	}
	for _, f := range files {
		if !strings.Contains(filepath.Base(f), "rule") {
			continue
		}
		if err := ParseRuleFile(f, mod); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("skipping rule file")
		}
	}
}

func (p *ModuleParser) parseMenus(mod *Module) {
	files, err := p.globDir(p.ViewsDir, "*.xml")
	if err != nil {
		return
	}
	for _, f := range files {
		if err := ParseMenuFile(f, mod); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("skipping menu scan")
		}
	}
}

// globDir lists matching files in a sub-directory of the module root, in
// stable order. A missing directory is not an error: it yields nothing.
func (p *ModuleParser) globDir(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(p.Root, dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
