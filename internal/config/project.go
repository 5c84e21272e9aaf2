package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-module configuration file looked up in the
// module root.
const ProjectFileName = ".odooscope.yaml"

// ProjectConfig represents a .odooscope.yaml file in a module root. It lets
// a module override the conventional sub-directory names the analyzer scans.
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Directory-name overrides, relative to the module root.
	ModelsDir   string `yaml:"models_dir,omitempty"`
	ViewsDir    string `yaml:"views_dir,omitempty"`
	SecurityDir string `yaml:"security_dir,omitempty"`
}

// DefaultProjectConfig returns the conventional layout.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Version:     "1.0",
		ModelsDir:   "models",
		ViewsDir:    "views",
		SecurityDir: "security",
	}
}

// LoadProjectConfig reads the project config from a module root, falling
// back to defaults when the file is absent. Unset fields keep their
// defaults.
func LoadProjectConfig(moduleRoot string) (*ProjectConfig, error) {
	cfg := DefaultProjectConfig()

	path := filepath.Join(moduleRoot, ProjectFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var loaded ProjectConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}

	if loaded.Version != "" {
		cfg.Version = loaded.Version
	}
	if loaded.ModelsDir != "" {
		cfg.ModelsDir = loaded.ModelsDir
	}
	if loaded.ViewsDir != "" {
		cfg.ViewsDir = loaded.ViewsDir
	}
	if loaded.SecurityDir != "" {
		cfg.SecurityDir = loaded.SecurityDir
	}

	return cfg, nil
}
